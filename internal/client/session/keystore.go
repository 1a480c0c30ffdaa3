package session

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/upass-project/upass/internal/common"
)

const keystoreFile = "keystore.key"

// LoadOrCreateKey returns the per-host 32-byte key that seals cached
// sessions at rest. On first use it generates the key from the CSPRNG
// and stores it with owner-only permissions in dir.
func LoadOrCreateKey(dir string) ([]byte, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("keystore dir: %w", err)
	}

	path := filepath.Join(dir, keystoreFile)
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) != 32 {
			return nil, fmt.Errorf("keystore %s: unexpected key length %d", path, len(key))
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("keystore read: %w", err)
	}

	key = common.GenerateRandByteArray(32)
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("keystore write: %w", err)
	}
	return key, nil
}
