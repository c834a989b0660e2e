package app

import (
	"context"
	"fmt"

	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/store"
	"github.com/vovakirdan/wirechat-relay/internal/store/memory"
	"github.com/vovakirdan/wirechat-relay/internal/store/postgres"
	"github.com/vovakirdan/wirechat-relay/internal/store/sqlite"
)

// OpenStore opens the message log selected by db.Driver. The schema is not applied.
func OpenStore(ctx context.Context, db config.Database) (store.Store, error) {
	switch db.Driver {
	case store.DriverSQLite, "":
		st, err := sqlite.New(db.DSN)
		if err != nil {
			return nil, err
		}
		return st, nil
	case store.DriverPostgres:
		st, err := postgres.New(ctx, db.DSN)
		if err != nil {
			return nil, err
		}
		return st, nil
	case store.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", store.ErrUnknownDriver, db.Driver)
	}
}
