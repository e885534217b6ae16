package query

import (
	"context"

	"github.com/goliatone/go-access/core"
)

type RequestReader interface {
	Get(ctx context.Context, requestID string) (core.GrantRequest, error)
	ListPending(ctx context.Context) ([]core.GrantRequest, error)
	AutoApproveUses(ctx context.Context, requesterID string) (int, error)
}

type ProfileReader interface {
	ShowProfile(ctx context.Context, requester core.Requester) core.MessageStream
}

type GetRequestQuery struct {
	reader RequestReader
}

func NewGetRequestQuery(reader RequestReader) *GetRequestQuery {
	return &GetRequestQuery{reader: reader}
}

func (q *GetRequestQuery) Query(ctx context.Context, msg GetRequestMessage) (core.GrantRequest, error) {
	if q == nil || q.reader == nil {
		return core.GrantRequest{}, queryDependencyError("query: request reader is required")
	}
	return q.reader.Get(ctx, msg.RequestID)
}

type ListPendingRequestsQuery struct {
	reader RequestReader
}

func NewListPendingRequestsQuery(reader RequestReader) *ListPendingRequestsQuery {
	return &ListPendingRequestsQuery{reader: reader}
}

func (q *ListPendingRequestsQuery) Query(
	ctx context.Context,
	msg ListPendingRequestsMessage,
) ([]core.GrantRequest, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: request reader is required")
	}
	return q.reader.ListPending(ctx)
}

type AutoApproveUsageQuery struct {
	reader RequestReader
}

func NewAutoApproveUsageQuery(reader RequestReader) *AutoApproveUsageQuery {
	return &AutoApproveUsageQuery{reader: reader}
}

func (q *AutoApproveUsageQuery) Query(ctx context.Context, msg AutoApproveUsageMessage) (int, error) {
	if q == nil || q.reader == nil {
		return 0, queryDependencyError("query: request reader is required")
	}
	return q.reader.AutoApproveUses(ctx, msg.RequesterID)
}

type AccountProfileQuery struct {
	reader ProfileReader
}

func NewAccountProfileQuery(reader ProfileReader) *AccountProfileQuery {
	return &AccountProfileQuery{reader: reader}
}

func (q *AccountProfileQuery) Query(ctx context.Context, msg AccountProfileMessage) ([]string, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: profile reader is required")
	}
	return core.CollectMessages(q.reader.ShowProfile(ctx, msg.Requester))
}
