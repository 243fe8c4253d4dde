package store

import (
	"fmt"

	"github.com/snow-ghost/codeassist/pkg/config"
)

// DriverMemory selects the in-process store.
const DriverMemory = "memory"

// Open builds the store selected by cfg.
func Open(cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverSQLite, DriverSQLite3:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("store driver %s requires a dsn", cfg.Driver)
		}
		return NewSQLiteStore(cfg.Driver, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
