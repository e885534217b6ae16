package command

import (
	"strings"

	"github.com/goliatone/go-access/core"
)

const (
	TypeRequestAccess = "access.command.request"
	TypeApproveGrant  = "access.command.approve"
	TypeDenyGrant     = "access.command.deny"
)

type RequestAccessMessage struct {
	Request core.AccessRequest
}

func (RequestAccessMessage) Type() string { return TypeRequestAccess }

func (m RequestAccessMessage) Validate() error {
	if strings.TrimSpace(m.Request.Requester.ID) == "" {
		return commandValidationError("requester.id", "requester id is required")
	}
	if strings.TrimSpace(m.Request.SearchedName) == "" {
		return commandValidationError("searched_name", "searched name is required")
	}
	if err := m.Request.Kind.Validate(); err != nil {
		return commandValidationError("kind", err.Error())
	}
	return nil
}

type ApproveGrantMessage struct {
	RequestID string
	Approver  string
}

func (ApproveGrantMessage) Type() string { return TypeApproveGrant }

func (m ApproveGrantMessage) Validate() error {
	if strings.TrimSpace(m.RequestID) == "" {
		return commandValidationError("request_id", "request id is required")
	}
	if strings.TrimSpace(m.Approver) == "" {
		return commandValidationError("approver", "approver is required")
	}
	return nil
}

type DenyGrantMessage struct {
	RequestID string
	Approver  string
	Reason    string
}

func (DenyGrantMessage) Type() string { return TypeDenyGrant }

func (m DenyGrantMessage) Validate() error {
	if strings.TrimSpace(m.RequestID) == "" {
		return commandValidationError("request_id", "request id is required")
	}
	if strings.TrimSpace(m.Approver) == "" {
		return commandValidationError("approver", "approver is required")
	}
	return nil
}
