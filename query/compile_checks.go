package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-access/core"
)

var (
	_ gocmd.Querier[GetRequestMessage, core.GrantRequest]            = (*GetRequestQuery)(nil)
	_ gocmd.Querier[ListPendingRequestsMessage, []core.GrantRequest] = (*ListPendingRequestsQuery)(nil)
	_ gocmd.Querier[AutoApproveUsageMessage, int]                    = (*AutoApproveUsageQuery)(nil)
	_ gocmd.Querier[AccountProfileMessage, []string]                 = (*AccountProfileQuery)(nil)
)
