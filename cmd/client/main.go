package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/upass-project/upass/internal/buildinfo"
	"github.com/upass-project/upass/internal/client/cli"
	"github.com/upass-project/upass/internal/client/config"
	"github.com/upass-project/upass/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	// The interactive prompt owns stdout; diagnostics stay silent
	// unless redirected.
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
