package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/calibration-engine/internal/jobs"
	"github.com/sells-group/calibration-engine/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "calibration.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initRunner opens the store, runs migrations, and wires a job runner from
// config. The caller owns closing the returned store.
func initRunner(ctx context.Context) (*jobs.Runner, store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, nil, err
	}
	return cfg.Runner(st), st, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printErrors(errs []string) {
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "error: %s\n", e)
	}
}
