package main

import (
	"context"
	"fmt"

	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/profile/repo"
	subscriberrepo "github.com/ovaphlow/pitchfork/service-storefront-go/internal/subscriber/repo"
	"github.com/ovaphlow/pitchfork/service-storefront-go/pkg/database"
)

// stores groups the repositories of the selected backend.
type stores struct {
	profiles    repo.Store
	claimer     repo.AdminClaimer
	subscribers subscriberrepo.Repo
	close       func(ctx context.Context) error
}

func openStores(cfg config.Config) (*stores, error) {
	switch cfg.Backend {
	case config.BackendMongo:
		h := database.NewMongoHandle(database.MongoConfigFromEnv())
		ps := repo.NewMongoStore(h)
		return &stores{profiles: ps, claimer: ps, subscribers: subscriberrepo.NewMongoRepo(h), close: h.Close}, nil
	case config.BackendPostgres:
		db, err := database.Connect(database.ConfigFromEnv())
		if err != nil {
			return nil, err
		}
		ps := repo.NewPostgresStore(db)
		return &stores{
			profiles:    ps,
			claimer:     ps,
			subscribers: subscriberrepo.NewSubscriberRepo(db),
			close:       func(context.Context) error { return db.Close() },
		}, nil
	case config.BackendMemory:
		ps, err := repo.NewMemoryStore()
		if err != nil {
			return nil, err
		}
		subs, err := subscriberrepo.NewMemoryRepo()
		if err != nil {
			return nil, err
		}
		return &stores{profiles: ps, claimer: ps, subscribers: subs, close: func(context.Context) error { return nil }}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

func (s *stores) ensure(ctx context.Context) error {
	if err := s.profiles.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure profile indexes: %w", err)
	}
	if err := s.subscribers.EnsureTable(ctx); err != nil {
		return fmt.Errorf("ensure subscriber table: %w", err)
	}
	return nil
}
