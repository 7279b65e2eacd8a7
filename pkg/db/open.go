package db

import (
	"context"
	"errors"
	"fmt"
)

// Storage backend names accepted by Open.
const (
	BackendSupabase = "supabase"
	BackendMongo    = "mongo"
)

var errNoRESTClient = errors.New("supabase URL and key are required for the article store")

// OpenConfig selects and configures an article store backend.
type OpenConfig struct {
	Backend  string
	Supabase SupabaseConfig
	MongoURI string
	MongoDB  string
}

// Open connects the configured backend. The returned close function releases
// its connections.
func Open(ctx context.Context, cfg OpenConfig) (ArticleStore, func() error, error) {
	switch cfg.Backend {
	case BackendSupabase, "":
		client := NewSupabaseClient(cfg.Supabase)
		if err := client.Connect(ctx); err != nil {
			return nil, nil, err
		}
		if client.SDK() == nil {
			_ = client.Close()
			return nil, nil, errNoRESTClient
		}
		return NewSupabaseStore(client.SDK()), client.Close, nil
	case BackendMongo:
		store, err := NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { return store.Close(context.Background()) }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
