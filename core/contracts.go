package core

import (
	"context"
	"iter"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// MessageStream is a lazy, finite, non-restartable sequence of user-facing
// message strings. The transport layer consumes it in order; a non-nil error
// element carries a backend failure that should be reported through the
// transport's own error path.
type MessageStream = iter.Seq2[string, error]

// DirectoryClient resolves accounts, resources, and roles against the
// upstream directory backend. Implementations must return errors that the
// core can classify: not-found conditions wrapped with CategoryNotFound,
// transport failures with CategoryExternal (see errors.go helpers).
type DirectoryClient interface {
	FindResourceByName(ctx context.Context, name string) (ResourceRef, error)
	FindRoleByName(ctx context.Context, name string) (ResourceRef, error)
	FindAccountByIdentity(ctx context.Context, identity string) (AccountRef, error)
	ListResources(ctx context.Context) ([]ResourceRef, error)
	ListRoles(ctx context.Context) ([]ResourceRef, error)
}

// GrantIssuer issues the time-bounded authorization linking an account to a
// resource. The core never retries issuer failures; retry policy belongs to
// the implementation.
type GrantIssuer interface {
	IssueGrant(ctx context.Context, resourceID, accountID string, startFrom, validUntil time.Time) error
}

// Notifier delivers out-of-band messages. Delivery failures are reported by
// the workflow but never roll back a committed state transition.
type Notifier interface {
	SendToRequester(ctx context.Context, requesterID string, text string) error
	SendToAdmins(ctx context.Context, channel string, adminIDs []string, text string) error
}

// RequestRegistry owns grant request records and per-requester auto-approve
// counters. Implementations must serialize mutation per request id while
// allowing concurrent operations across distinct ids.
type RequestRegistry interface {
	GenerateRequestID(ctx context.Context) (string, error)
	Record(ctx context.Context, in RecordRequestInput) (GrantRequest, error)
	Get(ctx context.Context, id string) (GrantRequest, error)
	ListPending(ctx context.Context) ([]GrantRequest, error)

	// Approve transitions PENDING -> APPROVED. Approving an already
	// approved record is an idempotent no-op reported via the second
	// return value so callers skip re-issuing the grant.
	Approve(ctx context.Context, id string, granter string, autoGranted bool) (GrantRequest, bool, error)
	Deny(ctx context.Context, id string, granter string) (GrantRequest, error)
	MarkFailed(ctx context.Context, id string, reason string) (GrantRequest, error)

	AutoApproveUses(ctx context.Context, requesterID string) (int, error)
	IncrementAutoApproveUses(ctx context.Context, requesterID string) (int, error)
}

// GrantStrategy supplies the grant-kind specific behavior the workflow
// engine composes: lookup, inventory listing for fuzzy fallback, the
// permission pre-check veto, and admin-facing wording. Strategies are
// stateless values; the engine holds one per supported kind.
type GrantStrategy interface {
	Kind() GrantKind

	// ObjectName is the lowercase noun used in messages ("resource", "role").
	ObjectName() string

	// OperationDescription is the admin-facing label for the request kind.
	OperationDescription() string

	GetItemByName(ctx context.Context, dir DirectoryClient, name string) (ResourceRef, error)

	// ListItemNames returns the full inventory for fuzzy matching.
	ListItemNames(ctx context.Context, dir DirectoryClient) ([]string, error)

	// HasPermission returns a veto message when the requester may not even
	// enter the request, or "" to proceed. No record is created on veto.
	HasPermission(resource ResourceRef, account AccountRef, searchedName string) string
}

// JobExecutionMessage mirrors the queue execution contract used when the
// reminder runner hands work to an external scheduler.
type JobExecutionMessage struct {
	JobID          string
	Parameters     map[string]any
	IdempotencyKey string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
