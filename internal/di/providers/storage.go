package providers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/listenupapp/bookcatalog/internal/config"
	"github.com/listenupapp/bookcatalog/internal/credentials"
	"github.com/listenupapp/bookcatalog/internal/logger"
	"github.com/listenupapp/bookcatalog/internal/store"
	"github.com/listenupapp/bookcatalog/internal/store/sqlite"
)

// CredentialStoreHandle wraps the configured credential backend with shutdown capability.
type CredentialStoreHandle struct {
	credentials.Store
	Backend string
}

// Shutdown implements do.Shutdownable.
func (h *CredentialStoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideCredentialStore opens the credential backend selected by configuration.
func ProvideCredentialStore(i do.Injector) (*CredentialStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	path := cfg.Credentials.Path
	storeLog := log.Component("credentials")

	var (
		s   credentials.Store
		err error
	)
	switch cfg.Credentials.Backend {
	case config.BackendBadger:
		s, err = store.New(path, storeLog)
	case config.BackendSQLite:
		if err = os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create credentials directory: %w", err)
		}
		s, err = sqlite.Open(path, storeLog)
	case config.BackendFile:
		s, err = credentials.OpenFile(path, storeLog)
	case config.BackendMemory:
		s = credentials.NewMemory(nil)
	default:
		return nil, fmt.Errorf("unknown credentials backend %q", cfg.Credentials.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s credential store: %w", cfg.Credentials.Backend, err)
	}

	log.Info("Credential store initialized", "backend", cfg.Credentials.Backend, "path", path)

	return &CredentialStoreHandle{Store: s, Backend: cfg.Credentials.Backend}, nil
}
