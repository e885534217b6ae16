package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidGrantKind               = errors.New("core: invalid grant kind")
	ErrInvalidRequestStatusTransition = errors.New("core: invalid request status transition")
	ErrRequestNotFound                = errors.New("core: grant request not found")
)

type GrantKind string

const (
	GrantKindResource GrantKind = "resource"
	GrantKindRole     GrantKind = "role"
	GrantKindOther    GrantKind = "other"
)

func (k GrantKind) Validate() error {
	switch k {
	case GrantKindResource, GrantKindRole, GrantKindOther:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidGrantKind, string(k))
}

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusDenied   RequestStatus = "denied"
	StatusFailed   RequestStatus = "failed"
)

// IsTerminal reports whether the status admits no further transitions.
// StatusFailed is reserved for approved requests whose issuer call failed;
// those stay terminal and are surfaced to admins for manual remediation.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusDenied || s == StatusFailed
}

// AccountRef is a read-only directory snapshot of the requesting account.
// It is fetched per request and never cached across requests.
type AccountRef struct {
	ID    string
	Email string
	Tags  map[string]string
}

func (a AccountRef) HasTag(key string) bool {
	if len(a.Tags) == 0 {
		return false
	}
	_, ok := a.Tags[strings.TrimSpace(key)]
	return ok
}

// ResourceRef is a read-only directory snapshot of the grant target. Tags
// carry set semantics: membership is key presence, values are incidental.
type ResourceRef struct {
	ID   string
	Name string
	Tags map[string]string
}

func (r ResourceRef) HasTag(key string) bool {
	if len(r.Tags) == 0 {
		return false
	}
	_, ok := r.Tags[strings.TrimSpace(key)]
	return ok
}

// Requester identifies the person asking for access as seen by the chat
// transport. ID is the transport identity used for counters and replies,
// Email is the directory identity.
type Requester struct {
	ID    string
	Nick  string
	Email string
}

func (r Requester) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("core: requester id is required")
	}
	if strings.TrimSpace(r.Email) == "" {
		return fmt.Errorf("core: requester email is required")
	}
	return nil
}

// GrantRequest is the registry-owned record of one access request. Records
// are created PENDING on submission, mutated only through approval, denial,
// or failure marking, and retained for the registry's lifetime.
type GrantRequest struct {
	ID          string
	RequesterID string
	Requester   Requester
	Resource    ResourceRef
	Account     AccountRef
	Kind        GrantKind
	Status      RequestStatus
	ResolvedBy  string
	FailReason  string
	AutoGranted bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r *GrantRequest) transitionTo(status RequestStatus, actor string, now time.Time) error {
	if r == nil {
		return nil
	}
	if !requestTransitionAllowed(r.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidRequestStatusTransition, r.Status, status)
	}
	r.Status = status
	r.ResolvedBy = strings.TrimSpace(actor)
	r.UpdatedAt = now
	return nil
}

func requestTransitionAllowed(from, to RequestStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusApproved || to == StatusDenied
	case StatusApproved:
		// An approved request whose issuer call failed is marked failed.
		return to == StatusFailed
	}
	return false
}

// AccessRequest is the input to the grant workflow: who is asking and the
// name they typed for the target.
type AccessRequest struct {
	Requester    Requester
	SearchedName string
	Kind         GrantKind
}

func (r AccessRequest) Validate() error {
	if err := r.Requester.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.SearchedName) == "" {
		return fmt.Errorf("core: searched name is required")
	}
	return r.Kind.Validate()
}

// RecordRequestInput captures everything the registry needs to persist a
// new PENDING grant request.
type RecordRequestInput struct {
	ID        string
	Requester Requester
	Resource  ResourceRef
	Account   AccountRef
	Kind      GrantKind
}

func (in RecordRequestInput) Validate() error {
	if strings.TrimSpace(in.ID) == "" {
		return fmt.Errorf("core: request id is required")
	}
	if err := in.Requester.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(in.Resource.ID) == "" {
		return fmt.Errorf("core: resource id is required")
	}
	if strings.TrimSpace(in.Account.ID) == "" {
		return fmt.Errorf("core: account id is required")
	}
	return in.Kind.Validate()
}
