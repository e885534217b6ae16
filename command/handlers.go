package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-access/core"
)

// MutatingService is the slice of the access service that commands drive.
// Streams are collected eagerly so command results carry the full reply set.
type MutatingService interface {
	RequestAccess(ctx context.Context, req core.AccessRequest) core.MessageStream
	ApproveRequest(ctx context.Context, requestID string, approver string) core.MessageStream
	DenyRequest(ctx context.Context, requestID string, approver string, reason string) core.MessageStream
}

type RequestAccessCommand struct {
	service MutatingService
}

func NewRequestAccessCommand(service MutatingService) *RequestAccessCommand {
	return &RequestAccessCommand{service: service}
}

func (c *RequestAccessCommand) Execute(ctx context.Context, msg RequestAccessMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: request access service is required")
	}
	out, err := core.CollectMessages(c.service.RequestAccess(ctx, msg.Request))
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ApproveGrantCommand struct {
	service MutatingService
}

func NewApproveGrantCommand(service MutatingService) *ApproveGrantCommand {
	return &ApproveGrantCommand{service: service}
}

func (c *ApproveGrantCommand) Execute(ctx context.Context, msg ApproveGrantMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: approve service is required")
	}
	out, err := core.CollectMessages(c.service.ApproveRequest(ctx, msg.RequestID, msg.Approver))
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DenyGrantCommand struct {
	service MutatingService
}

func NewDenyGrantCommand(service MutatingService) *DenyGrantCommand {
	return &DenyGrantCommand{service: service}
}

func (c *DenyGrantCommand) Execute(ctx context.Context, msg DenyGrantMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: deny service is required")
	}
	out, err := core.CollectMessages(c.service.DenyRequest(ctx, msg.RequestID, msg.Approver, msg.Reason))
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
