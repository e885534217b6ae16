package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-access/core"
)

const (
	requestCacheKeyPrefix = "go-access::grant_request::v1"
	counterCacheKeyPrefix = "go-access::auto_approve_uses::v1"
)

// CachedRequestStore layers read caching over a request registry. Reads by id
// and counter reads hit the cache; every mutation writes through to the base
// registry and drops the affected keys.
type CachedRequestStore struct {
	base  core.RequestRegistry
	cache repositorycache.CacheService
}

func NewCachedRequestStore(
	base core.RequestRegistry,
	cacheService repositorycache.CacheService,
) (*CachedRequestStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base request registry is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: request cache service is required")
	}
	return &CachedRequestStore{base: base, cache: cacheService}, nil
}

// RequestCacheKey returns the deterministic cache key contract for request
// reads: go-access::grant_request::v1::<request_id> with the id URL-path
// escaped.
func RequestCacheKey(requestID string) (string, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return "", fmt.Errorf("sqlstore: request id is required")
	}
	return requestCacheKeyPrefix + "::" + url.PathEscape(requestID), nil
}

func counterCacheKey(requesterID string) (string, error) {
	requesterID = strings.TrimSpace(requesterID)
	if requesterID == "" {
		return "", fmt.Errorf("sqlstore: requester id is required")
	}
	return counterCacheKeyPrefix + "::" + url.PathEscape(requesterID), nil
}

func (s *CachedRequestStore) GenerateRequestID(ctx context.Context) (string, error) {
	if s == nil || s.base == nil {
		return "", fmt.Errorf("sqlstore: cached request store is not configured")
	}
	return s.base.GenerateRequestID(ctx)
}

func (s *CachedRequestStore) Record(ctx context.Context, in core.RecordRequestInput) (core.GrantRequest, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.GrantRequest{}, fmt.Errorf("sqlstore: cached request store is not configured")
	}
	record, err := s.base.Record(ctx, in)
	if err != nil {
		return core.GrantRequest{}, err
	}
	if err := s.invalidateRequest(ctx, record.ID); err != nil {
		return core.GrantRequest{}, err
	}
	return record, nil
}

func (s *CachedRequestStore) Get(ctx context.Context, id string) (core.GrantRequest, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.GrantRequest{}, fmt.Errorf("sqlstore: cached request store is not configured")
	}
	cacheKey, err := RequestCacheKey(id)
	if err != nil {
		return core.GrantRequest{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.GrantRequest, error) {
		return s.base.Get(ctx, id)
	})
}

// ListPending bypasses the cache: the pending set changes on every mutation
// and is only read by admin sweeps.
func (s *CachedRequestStore) ListPending(ctx context.Context) ([]core.GrantRequest, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached request store is not configured")
	}
	return s.base.ListPending(ctx)
}

func (s *CachedRequestStore) Approve(
	ctx context.Context,
	id string,
	granter string,
	autoGranted bool,
) (core.GrantRequest, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.GrantRequest{}, false, fmt.Errorf("sqlstore: cached request store is not configured")
	}
	record, already, err := s.base.Approve(ctx, id, granter, autoGranted)
	if err != nil {
		return core.GrantRequest{}, false, err
	}
	if err := s.invalidateRequest(ctx, record.ID); err != nil {
		return core.GrantRequest{}, false, err
	}
	return record, already, nil
}

func (s *CachedRequestStore) Deny(ctx context.Context, id string, granter string) (core.GrantRequest, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.GrantRequest{}, fmt.Errorf("sqlstore: cached request store is not configured")
	}
	record, err := s.base.Deny(ctx, id, granter)
	if err != nil {
		return core.GrantRequest{}, err
	}
	if err := s.invalidateRequest(ctx, record.ID); err != nil {
		return core.GrantRequest{}, err
	}
	return record, nil
}

func (s *CachedRequestStore) MarkFailed(ctx context.Context, id string, reason string) (core.GrantRequest, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.GrantRequest{}, fmt.Errorf("sqlstore: cached request store is not configured")
	}
	record, err := s.base.MarkFailed(ctx, id, reason)
	if err != nil {
		return core.GrantRequest{}, err
	}
	if err := s.invalidateRequest(ctx, record.ID); err != nil {
		return core.GrantRequest{}, err
	}
	return record, nil
}

func (s *CachedRequestStore) AutoApproveUses(ctx context.Context, requesterID string) (int, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return 0, fmt.Errorf("sqlstore: cached request store is not configured")
	}
	cacheKey, err := counterCacheKey(requesterID)
	if err != nil {
		return 0, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (int, error) {
		return s.base.AutoApproveUses(ctx, requesterID)
	})
}

func (s *CachedRequestStore) IncrementAutoApproveUses(ctx context.Context, requesterID string) (int, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return 0, fmt.Errorf("sqlstore: cached request store is not configured")
	}
	uses, err := s.base.IncrementAutoApproveUses(ctx, requesterID)
	if err != nil {
		return 0, err
	}
	cacheKey, keyErr := counterCacheKey(requesterID)
	if keyErr != nil {
		return 0, keyErr
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return 0, err
	}
	return uses, nil
}

func (s *CachedRequestStore) invalidateRequest(ctx context.Context, id string) error {
	cacheKey, err := RequestCacheKey(id)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}
