package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/cache"
	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-storefront-go/pkg/utilities"
)

// CachedFetcher keeps identities for ttl and collapses concurrent fetches of one subject.
// With ttl <= 0 nothing is cached.
type CachedFetcher struct {
	next    ProfileFetcher
	cache   cache.Client
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *zap.SugaredLogger
	sf      singleflight.Group
}

func NewCachedFetcher(next ProfileFetcher, c cache.Client, ttl time.Duration, m *metrics.Metrics, logger *zap.SugaredLogger) *CachedFetcher {
	return &CachedFetcher{next: next, cache: c, ttl: ttl, metrics: m, logger: logger}
}

func cacheKey(subjectID string) string { return "identity:" + subjectID }

func (f *CachedFetcher) FetchIdentity(ctx context.Context, subjectID string) (*ExternalIdentity, error) {
	log := utilities.LoggerFrom(ctx, f.logger)
	if f.cache != nil && f.ttl > 0 {
		raw, err := f.cache.Get(ctx, cacheKey(subjectID))
		switch {
		case err == nil:
			var id ExternalIdentity
			if jerr := json.Unmarshal(raw, &id); jerr == nil {
				f.metrics.IdentityLookup(metrics.LookupHit)
				return &id, nil
			}
			if derr := f.cache.Delete(ctx, cacheKey(subjectID)); derr != nil {
				log.Warnw("identity cache delete failed", "subject", subjectID, "err", derr)
			}
		case !errors.Is(err, cache.ErrNotFound):
			log.Warnw("identity cache get failed", "subject", subjectID, "err", err)
		}
	}

	// The shared fetch outlives any single caller; each caller waits on its own ctx.
	sctx := context.WithoutCancel(ctx)
	ch := f.sf.DoChan(subjectID, func() (any, error) {
		id, err := f.next.FetchIdentity(sctx, subjectID)
		if err != nil {
			return nil, err
		}
		if f.cache != nil && f.ttl > 0 {
			if raw, jerr := json.Marshal(id); jerr == nil {
				if serr := f.cache.Set(sctx, cacheKey(subjectID), raw, f.ttl); serr != nil {
					log.Warnw("identity cache set failed", "subject", subjectID, "err", serr)
				}
			}
		}
		return id, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		f.metrics.IdentityLookup(metrics.LookupError)
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		f.metrics.IdentityLookup(metrics.LookupError)
		return nil, res.Err
	}
	f.metrics.IdentityLookup(metrics.LookupMiss)
	cp := *res.Val.(*ExternalIdentity)
	return &cp, nil
}
