package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-access/core"
)

func newGrantRequestRecord(in core.RecordRequestInput, now time.Time) *grantRequestRecord {
	return &grantRequestRecord{
		ID:             strings.TrimSpace(in.ID),
		RequesterID:    strings.TrimSpace(in.Requester.ID),
		RequesterNick:  in.Requester.Nick,
		RequesterEmail: in.Requester.Email,
		ResourceID:     in.Resource.ID,
		ResourceName:   in.Resource.Name,
		ResourceTags:   copyTags(in.Resource.Tags),
		AccountID:      in.Account.ID,
		AccountEmail:   in.Account.Email,
		AccountTags:    copyTags(in.Account.Tags),
		Kind:           string(in.Kind),
		Status:         string(core.StatusPending),
		AutoGranted:    false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (r *grantRequestRecord) toDomain() core.GrantRequest {
	if r == nil {
		return core.GrantRequest{}
	}
	return core.GrantRequest{
		ID:          r.ID,
		RequesterID: r.RequesterID,
		Requester: core.Requester{
			ID:    r.RequesterID,
			Nick:  r.RequesterNick,
			Email: r.RequesterEmail,
		},
		Resource: core.ResourceRef{
			ID:   r.ResourceID,
			Name: r.ResourceName,
			Tags: copyTags(r.ResourceTags),
		},
		Account: core.AccountRef{
			ID:    r.AccountID,
			Email: r.AccountEmail,
			Tags:  copyTags(r.AccountTags),
		},
		Kind:        core.GrantKind(r.Kind),
		Status:      core.RequestStatus(r.Status),
		ResolvedBy:  r.ResolvedBy,
		FailReason:  r.FailReason,
		AutoGranted: r.AutoGranted,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func copyTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}
