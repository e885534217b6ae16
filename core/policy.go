package core

// RequiresManualApproval decides whether a request for the given resource
// must wait for a human approver. Auto-approval applies when the policy
// approves everything, or when a bypass tag is configured and the resource
// carries it. The tag check only applies to resource-access requests; for
// other kinds tag presence alone never bypasses approval.
func RequiresManualApproval(kind GrantKind, resource ResourceRef, cfg Config) bool {
	if cfg.AutoApproveAll {
		return false
	}
	taggedBypass := cfg.autoApproveTagSet()
	if kind == GrantKindResource {
		taggedBypass = taggedBypass && resource.HasTag(cfg.AutoApproveTag)
	} else {
		taggedBypass = false
	}
	return !taggedBypass
}

// AutoApproveLimitReached reports whether the requester has exhausted the
// configured auto-approval budget. A zero or negative max means no limit.
func AutoApproveLimitReached(uses int, cfg Config) bool {
	if cfg.MaxAutoApproveUses <= 0 {
		return false
	}
	return uses >= cfg.MaxAutoApproveUses
}
