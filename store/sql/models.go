package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type grantRequestRecord struct {
	bun.BaseModel `bun:"table:access_grant_requests,alias:agr"`

	ID             string            `bun:"id,pk"`
	RequesterID    string            `bun:"requester_id,notnull"`
	RequesterNick  string            `bun:"requester_nick"`
	RequesterEmail string            `bun:"requester_email"`
	ResourceID     string            `bun:"resource_id"`
	ResourceName   string            `bun:"resource_name,notnull"`
	ResourceTags   map[string]string `bun:"resource_tags,type:jsonb"`
	AccountID      string            `bun:"account_id"`
	AccountEmail   string            `bun:"account_email"`
	AccountTags    map[string]string `bun:"account_tags,type:jsonb"`
	Kind           string            `bun:"kind,notnull"`
	Status         string            `bun:"status,notnull"`
	ResolvedBy     string            `bun:"resolved_by"`
	FailReason     string            `bun:"fail_reason"`
	AutoGranted    bool              `bun:"auto_granted,notnull,default:false"`
	CreatedAt      time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time         `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type autoApproveCounterRecord struct {
	bun.BaseModel `bun:"table:access_auto_approve_counters,alias:aac"`

	ID          string    `bun:"id,pk"`
	RequesterID string    `bun:"requester_id,notnull,unique"`
	Uses        int       `bun:"uses,notnull,default:0"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
