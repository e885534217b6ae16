package query

import (
	"strings"

	"github.com/goliatone/go-access/core"
)

const (
	TypeGetRequest          = "access.query.request.get"
	TypeListPendingRequests = "access.query.request.list_pending"
	TypeAutoApproveUsage    = "access.query.auto_approve.usage"
	TypeAccountProfile      = "access.query.account.profile"
)

type GetRequestMessage struct {
	RequestID string
}

func (GetRequestMessage) Type() string { return TypeGetRequest }

func (m GetRequestMessage) Validate() error {
	if strings.TrimSpace(m.RequestID) == "" {
		return queryValidationError("request_id", "request id is required")
	}
	return nil
}

type ListPendingRequestsMessage struct{}

func (ListPendingRequestsMessage) Type() string { return TypeListPendingRequests }

func (ListPendingRequestsMessage) Validate() error { return nil }

type AutoApproveUsageMessage struct {
	RequesterID string
}

func (AutoApproveUsageMessage) Type() string { return TypeAutoApproveUsage }

func (m AutoApproveUsageMessage) Validate() error {
	if strings.TrimSpace(m.RequesterID) == "" {
		return queryValidationError("requester_id", "requester id is required")
	}
	return nil
}

type AccountProfileMessage struct {
	Requester core.Requester
}

func (AccountProfileMessage) Type() string { return TypeAccountProfile }

func (m AccountProfileMessage) Validate() error {
	if strings.TrimSpace(m.Requester.Email) == "" && strings.TrimSpace(m.Requester.ID) == "" {
		return queryValidationError("requester", "requester id or email is required")
	}
	return nil
}
