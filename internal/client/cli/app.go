package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/upass-project/upass/internal/client/api"
	"github.com/upass-project/upass/internal/client/config"
	"github.com/upass-project/upass/internal/client/session"
	"github.com/upass-project/upass/internal/client/sync"
	"github.com/upass-project/upass/internal/logging"
	"github.com/upass-project/upass/internal/vault"
)

// vaultService is the sync surface the CLI commands need. The real
// *sync.Service satisfies it; tests provide a stub.
type vaultService interface {
	Login(ctx context.Context, username, masterPassword string) error
	Register(ctx context.Context, username, masterPassword string) error
	Session(ctx context.Context) (*session.Session, error)
	GetEntries(ctx context.Context, forceRefresh bool) ([]vault.Entry, error)
	AddEntry(ctx context.Context, e vault.Entry) error
	UpdateEntry(ctx context.Context, note string, e vault.Entry) error
	DeleteEntry(ctx context.Context, note string) error
	DeleteVault(ctx context.Context) error
	Logout(ctx context.Context) error
	Health(ctx context.Context) error
	Sessions(ctx context.Context) ([]session.Info, error)
	ServerIdentity() string
}

// App is the interactive client. It holds the command surface and the
// username shown in the prompt; all vault state lives in the service.
type App struct {
	svc      vaultService
	reader   *bufio.Reader
	username string
	db       *sql.DB
}

// NewApp wires the HTTP client, the session cache and the sync service
// from configuration.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	db, err := session.InitDatabase(ctx, filepath.Join(c.DataDir, "sessions.db"))
	if err != nil {
		return nil, err
	}

	key, err := session.LoadOrCreateKey(c.DataDir)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	store := session.NewStore(db, key, c.SessionTTL)
	client := api.NewHTTPClient(c.ServerURL, c.RequestTimeout)
	svc := sync.NewService(client, store, logger)

	return &App{svc: svc, reader: bufio.NewReader(os.Stdin), db: db}, nil
}

// Run restores a cached session if one is live, then hands control to
// the REPL. It blocks until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	if sess, err := a.svc.Session(ctx); err == nil {
		a.username = sess.Username
		printlnFn(fmt.Sprintf("Restored session for %s @ %s", sess.Username, sess.ServerIdentity))
	}

	printlnFn("UPass CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
}

// Close releases the session database.
func (a *App) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) isLoggedIn() bool {
	return a.username != ""
}

func (a *App) status() string {
	if a.username == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", a.username)
}
