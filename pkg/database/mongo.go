package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"golang.org/x/sync/singleflight"
)

type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// MongoConfigFromEnv reads MONGO_URI and MONGO_DATABASE.
func MongoConfigFromEnv() MongoConfig {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	name := os.Getenv("MONGO_DATABASE")
	if name == "" {
		name = "storefront"
	}
	return MongoConfig{URI: uri, Database: name, Timeout: 5 * time.Second}
}

// ConnectFunc opens a client. Swapped out in tests.
type ConnectFunc func(ctx context.Context, cfg MongoConfig) (*mongo.Client, error)

// MongoHandle owns the process-wide mongo client. The client is created on first
// use; callers racing on that first use share a single connect attempt and all
// receive the same client. A failed attempt is not cached, so the next call retries.
type MongoHandle struct {
	cfg     MongoConfig
	connect ConnectFunc

	mu     sync.RWMutex
	client *mongo.Client
	sf     singleflight.Group
}

func NewMongoHandle(cfg MongoConfig) *MongoHandle {
	return NewMongoHandleWithConnect(cfg, dialMongo)
}

func NewMongoHandleWithConnect(cfg MongoConfig, connect ConnectFunc) *MongoHandle {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &MongoHandle{cfg: cfg, connect: connect}
}

// Client returns the shared client, connecting on first use.
func (h *MongoHandle) Client(ctx context.Context) (*mongo.Client, error) {
	h.mu.RLock()
	c := h.client
	h.mu.RUnlock()
	if c != nil {
		return c, nil
	}

	ch := h.sf.DoChan("connect", func() (any, error) {
		h.mu.RLock()
		existing := h.client
		h.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		// The attempt is shared, so it must outlive the caller that started it.
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.cfg.Timeout)
		defer cancel()
		client, err := h.connect(cctx, h.cfg)
		if err != nil {
			return nil, err
		}

		h.mu.Lock()
		h.client = client
		h.mu.Unlock()
		return client, nil
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("mongo connect: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("mongo connect: %w", res.Err)
		}
		return res.Val.(*mongo.Client), nil
	}
}

// Database returns the configured database on the shared client.
func (h *MongoHandle) Database(ctx context.Context) (*mongo.Database, error) {
	c, err := h.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.Database(h.cfg.Database), nil
}

// Close disconnects the client if one was opened.
func (h *MongoHandle) Close(ctx context.Context) error {
	h.mu.Lock()
	c := h.client
	h.client = nil
	h.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.Disconnect(ctx)
}

func dialMongo(ctx context.Context, cfg MongoConfig) (*mongo.Client, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo uri is empty")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}
	return client, nil
}
