package core

import (
	"fmt"
	"strings"
	"time"
)

// Config carries the auto-approval policy plus engine tunables. It is
// immutable for the duration of an evaluation; the workflow never mutates
// it after construction.
type Config struct {
	ServiceName string `koanf:"service_name" mapstructure:"service_name"`

	// AutoApproveAll bypasses manual approval for every request kind.
	AutoApproveAll bool `koanf:"auto_approve_all" mapstructure:"auto_approve_all"`

	// AutoApproveTag bypasses manual approval for resource-access requests
	// whose resource carries the tag. Empty means unset.
	AutoApproveTag string `koanf:"auto_approve_tag" mapstructure:"auto_approve_tag"`

	// MaxAutoApproveUses caps auto-approvals per requester. Zero means
	// unlimited; the counter is monotonic for the process lifetime.
	MaxAutoApproveUses int `koanf:"max_auto_approve_uses" mapstructure:"max_auto_approve_uses"`

	// AdminsChannel, when set, receives admin notifications instead of the
	// individual AdminIDs.
	AdminsChannel string   `koanf:"admins_channel" mapstructure:"admins_channel"`
	AdminIDs      []string `koanf:"admin_ids" mapstructure:"admin_ids"`

	// GrantStartDelay and GrantDuration define the issued grant window:
	// [now+delay, now+delay+duration].
	GrantStartDelay time.Duration `koanf:"grant_start_delay" mapstructure:"grant_start_delay"`
	GrantDuration   time.Duration `koanf:"grant_duration" mapstructure:"grant_duration"`

	// FuzzyMinSimilarity is the normalized edit-distance floor below which
	// no "did you mean" suggestion is offered.
	FuzzyMinSimilarity float64 `koanf:"fuzzy_min_similarity" mapstructure:"fuzzy_min_similarity"`

	// PendingReminderAge is how long a request may sit PENDING before the
	// reminder runner re-notifies admins.
	PendingReminderAge time.Duration `koanf:"pending_reminder_age" mapstructure:"pending_reminder_age"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:        "access",
		GrantStartDelay:    time.Minute,
		GrantDuration:      time.Hour,
		FuzzyMinSimilarity: defaultFuzzyMinSimilarity,
		PendingReminderAge: 30 * time.Minute,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.MaxAutoApproveUses < 0 {
		return fmt.Errorf("core: max_auto_approve_uses must be >= 0")
	}
	if c.GrantStartDelay < 0 {
		return fmt.Errorf("core: grant_start_delay must be >= 0")
	}
	if c.GrantDuration <= 0 {
		return fmt.Errorf("core: grant_duration must be > 0")
	}
	if c.FuzzyMinSimilarity <= 0 || c.FuzzyMinSimilarity > 1 {
		return fmt.Errorf("core: fuzzy_min_similarity must be in (0, 1]")
	}
	if c.PendingReminderAge < 0 {
		return fmt.Errorf("core: pending_reminder_age must be >= 0")
	}
	return nil
}

// autoApproveTagSet reports whether a tag-based bypass is configured.
func (c Config) autoApproveTagSet() bool {
	return strings.TrimSpace(c.AutoApproveTag) != ""
}
