package core

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// requestIDLength matches the short correlation tokens admins type back in
// approval commands.
const requestIDLength = 6

// requestIDAlphabet skips visually ambiguous characters (0/O, 1/l/I).
const requestIDAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

const maxIDGenerationAttempts = 16

// MemoryRequestRegistry keeps grant requests and auto-approve counters in
// process memory. Mutation is serialized per request id through striped
// locks; operations on distinct ids proceed concurrently. Records are never
// deleted; terminal records stay for audit and counter purposes.
type MemoryRequestRegistry struct {
	mu       sync.RWMutex
	requests map[string]*GrantRequest
	locks    map[string]*sync.Mutex

	counterMu sync.Mutex
	counters  map[string]int

	nowFunc func() time.Time
}

func NewMemoryRequestRegistry() *MemoryRequestRegistry {
	return &MemoryRequestRegistry{
		requests: map[string]*GrantRequest{},
		locks:    map[string]*sync.Mutex{},
		counters: map[string]int{},
		nowFunc:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRequestRegistry) now() time.Time {
	if r.nowFunc == nil {
		return time.Now().UTC()
	}
	return r.nowFunc()
}

// GenerateRequestID produces a 6-character random identifier that does not
// collide with any recorded id. Collisions are astronomically unlikely but
// the regeneration loop keeps the uniqueness contract unconditional.
func (r *MemoryRequestRegistry) GenerateRequestID(_ context.Context) (string, error) {
	if r == nil {
		return "", internalError("core: request registry is not configured")
	}
	for attempt := 0; attempt < maxIDGenerationAttempts; attempt++ {
		id, err := NewRequestID()
		if err != nil {
			return "", err
		}
		r.mu.RLock()
		_, taken := r.requests[id]
		r.mu.RUnlock()
		if !taken {
			return id, nil
		}
	}
	return "", internalError("core: request id space exhausted")
}

// NewRequestID returns one random candidate identifier. Callers that persist
// requests must still check the id against their own records before use.
func NewRequestID() (string, error) {
	raw := make([]byte, requestIDLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("core: generate request id: %w", err)
	}
	id := make([]byte, requestIDLength)
	for i, b := range raw {
		id[i] = requestIDAlphabet[int(b)%len(requestIDAlphabet)]
	}
	return string(id), nil
}

func (r *MemoryRequestRegistry) Record(_ context.Context, in RecordRequestInput) (GrantRequest, error) {
	if r == nil {
		return GrantRequest{}, internalError("core: request registry is not configured")
	}
	if err := in.Validate(); err != nil {
		return GrantRequest{}, badInputError(err.Error())
	}

	now := r.now()
	record := &GrantRequest{
		ID:          strings.TrimSpace(in.ID),
		RequesterID: strings.TrimSpace(in.Requester.ID),
		Requester:   in.Requester,
		Resource:    in.Resource,
		Account:     in.Account,
		Kind:        in.Kind,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.requests[record.ID]; exists {
		return GrantRequest{}, InvalidStateError(
			fmt.Sprintf("core: request id already recorded: %s", record.ID),
		)
	}
	r.requests[record.ID] = record
	return *record, nil
}

func (r *MemoryRequestRegistry) Get(_ context.Context, id string) (GrantRequest, error) {
	if r == nil {
		return GrantRequest{}, internalError("core: request registry is not configured")
	}
	r.mu.RLock()
	record, ok := r.requests[strings.TrimSpace(id)]
	r.mu.RUnlock()
	if !ok {
		return GrantRequest{}, NotFoundError(
			fmt.Sprintf("core: grant request not found: %s", strings.TrimSpace(id)),
		)
	}
	return *record, nil
}

func (r *MemoryRequestRegistry) ListPending(_ context.Context) ([]GrantRequest, error) {
	if r == nil {
		return nil, internalError("core: request registry is not configured")
	}
	r.mu.RLock()
	pending := make([]GrantRequest, 0, len(r.requests))
	for _, record := range r.requests {
		if record.Status == StatusPending {
			pending = append(pending, *record)
		}
	}
	r.mu.RUnlock()
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].ID < pending[j].ID
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	return pending, nil
}

// lockFor returns the per-id mutation lock, creating it on first use. Locks
// are retained alongside their records for the registry lifetime.
func (r *MemoryRequestRegistry) lockFor(id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[id] = lock
	}
	return lock
}

func (r *MemoryRequestRegistry) Approve(_ context.Context, id string, granter string, autoGranted bool) (GrantRequest, bool, error) {
	if r == nil {
		return GrantRequest{}, false, internalError("core: request registry is not configured")
	}
	id = strings.TrimSpace(id)
	lock := r.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.requests[id]
	if !ok {
		return GrantRequest{}, false, NotFoundError(
			fmt.Sprintf("core: grant request not found: %s", id),
		)
	}
	switch record.Status {
	case StatusApproved:
		return *record, true, nil
	case StatusDenied, StatusFailed:
		return GrantRequest{}, false, InvalidStateError(
			fmt.Sprintf("core: grant request %s already resolved as %s", id, record.Status),
		)
	}
	if err := record.transitionTo(StatusApproved, granter, r.now()); err != nil {
		return GrantRequest{}, false, InvalidStateError(err.Error())
	}
	record.AutoGranted = autoGranted
	return *record, false, nil
}

func (r *MemoryRequestRegistry) Deny(_ context.Context, id string, granter string) (GrantRequest, error) {
	if r == nil {
		return GrantRequest{}, internalError("core: request registry is not configured")
	}
	id = strings.TrimSpace(id)
	lock := r.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.requests[id]
	if !ok {
		return GrantRequest{}, NotFoundError(
			fmt.Sprintf("core: grant request not found: %s", id),
		)
	}
	if record.Status == StatusDenied {
		return *record, nil
	}
	if record.Status != StatusPending {
		return GrantRequest{}, InvalidStateError(
			fmt.Sprintf("core: grant request %s already resolved as %s", id, record.Status),
		)
	}
	if err := record.transitionTo(StatusDenied, granter, r.now()); err != nil {
		return GrantRequest{}, InvalidStateError(err.Error())
	}
	return *record, nil
}

// MarkFailed records an issuer failure on an already approved request. The
// record stays terminal; admins remediate manually.
func (r *MemoryRequestRegistry) MarkFailed(_ context.Context, id string, reason string) (GrantRequest, error) {
	if r == nil {
		return GrantRequest{}, internalError("core: request registry is not configured")
	}
	id = strings.TrimSpace(id)
	lock := r.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.requests[id]
	if !ok {
		return GrantRequest{}, NotFoundError(
			fmt.Sprintf("core: grant request not found: %s", id),
		)
	}
	if err := record.transitionTo(StatusFailed, record.ResolvedBy, r.now()); err != nil {
		return GrantRequest{}, InvalidStateError(err.Error())
	}
	record.FailReason = strings.TrimSpace(reason)
	return *record, nil
}

func (r *MemoryRequestRegistry) AutoApproveUses(_ context.Context, requesterID string) (int, error) {
	if r == nil {
		return 0, internalError("core: request registry is not configured")
	}
	r.counterMu.Lock()
	uses := r.counters[strings.TrimSpace(requesterID)]
	r.counterMu.Unlock()
	return uses, nil
}

func (r *MemoryRequestRegistry) IncrementAutoApproveUses(_ context.Context, requesterID string) (int, error) {
	if r == nil {
		return 0, internalError("core: request registry is not configured")
	}
	key := strings.TrimSpace(requesterID)
	r.counterMu.Lock()
	r.counters[key]++
	uses := r.counters[key]
	r.counterMu.Unlock()
	return uses, nil
}
