package database

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// lazyClient builds a client without touching the network; the driver only
// dials when an operation runs.
func lazyClient(t *testing.T) *mongo.Client {
	t.Helper()
	c, err := mongo.Connect(options.Client().ApplyURI("mongodb://127.0.0.1:1"))
	require.NoError(t, err)
	return c
}

func TestMongoHandleConcurrentFirstUseSharesOneClient(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	h := NewMongoHandleWithConnect(MongoConfig{Database: "test"}, func(ctx context.Context, cfg MongoConfig) (*mongo.Client, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return lazyClient(t), nil
	})

	const n = 16
	var wg sync.WaitGroup
	clients := make([]*mongo.Client, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := h.Client(context.Background())
			assert.NoError(t, err)
			clients[i] = c
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, c := range clients {
		assert.Same(t, clients[0], c)
	}

	db, err := h.Database(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test", db.Name())
}

func TestMongoHandleRetriesAfterFailure(t *testing.T) {
	var calls int32
	h := NewMongoHandleWithConnect(MongoConfig{Database: "test"}, func(ctx context.Context, cfg MongoConfig) (*mongo.Client, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("server selection timeout")
		}
		return lazyClient(t), nil
	})

	_, err := h.Client(context.Background())
	require.Error(t, err)

	c, err := h.Client(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestMongoHandleCancelledCallerDoesNotFailOthers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	h := NewMongoHandleWithConnect(MongoConfig{Database: "test", Timeout: time.Second}, func(ctx context.Context, cfg MongoConfig) (*mongo.Client, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-release:
			return lazyClient(t), nil
		}
	})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := h.Client(ctxA)
		errA <- err
	}()
	<-started

	type result struct {
		c   *mongo.Client
		err error
	}
	resB := make(chan result, 1)
	go func() {
		c, err := h.Client(context.Background())
		resB <- result{c, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	b := <-resB
	require.NoError(t, b.err)
	assert.NotNil(t, b.c)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMongoHandleCloseWithoutClient(t *testing.T) {
	h := NewMongoHandle(MongoConfig{})
	assert.NoError(t, h.Close(context.Background()))
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("MONGO_URI", "")
	t.Setenv("MONGO_DATABASE", "shop")

	assert.Contains(t, ConfigFromEnv().DSN, "localhost:5432")
	mc := MongoConfigFromEnv()
	assert.Equal(t, "mongodb://localhost:27017", mc.URI)
	assert.Equal(t, "shop", mc.Database)
}

func TestWithTimeZone(t *testing.T) {
	dsn, err := withTimeZone("postgres://u:p@db:5432/shop?sslmode=disable", "Asia/Shanghai")
	require.NoError(t, err)
	assert.Contains(t, dsn, "sslmode=disable")
	assert.Contains(t, dsn, "timezone=Asia%2FShanghai")

	dsn, err = withTimeZone("host=db dbname=shop", "O'Brien")
	require.NoError(t, err)
	assert.Equal(t, `host=db dbname=shop timezone='O\'Brien'`, dsn)

	dsn, err = withTimeZone("host=db", "")
	require.NoError(t, err)
	assert.Equal(t, "host=db", dsn)
}
