package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/newsdesk/internal/store"
)

// initStore opens the configured store and applies the schema. Callers
// should defer st.Close().
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
