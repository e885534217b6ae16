package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func registerAccount(env *testEnv) {
	env.directory.addAccount("gandalf@test.com", AccountRef{
		ID:    "a1",
		Email: "gandalf@test.com",
		Tags:  map[string]string{"team": "fellowship"},
	})
}

func TestRequestAccess_ManualApprovalFlow(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.AdminIDs = []string{"@admin1", "@admin2"}
	env := newTestEnv(t, cfg)
	env.directory.addResource(ResourceRef{ID: "r1", Name: "myresource"})
	registerAccount(env)

	messages, err := CollectMessages(env.service.RequestAccess(ctx, AccessRequest{
		Requester:    testRequester(),
		SearchedName: "myresource",
		Kind:         GrantKindResource,
	}))
	if err != nil {
		t.Fatalf("request access: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected one confirmation message, got %d: %#v", len(messages), messages)
	}

	// Confirmation carries a 6-character request id in backticks.
	confirmation := messages[0]
	if !strings.Contains(confirmation, "Your request id is `") {
		t.Fatalf("confirmation missing request id: %q", confirmation)
	}
	start := strings.Index(confirmation, "`") + 1
	end := strings.Index(confirmation[start:], "`") + start
	requestID := confirmation[start:end]
	if len(requestID) != 6 {
		t.Fatalf("expected 6-character request id, got %q", requestID)
	}

	// Exactly one admin notification naming the resource and the id, and
	// no issuer invocation at submission time.
	admin := env.notifier.adminMessages()
	if len(admin) != 1 {
		t.Fatalf("expected exactly one admin notification, got %d", len(admin))
	}
	if !strings.Contains(admin[0], "myresource") || !strings.Contains(admin[0], requestID) {
		t.Fatalf("admin notification missing resource or id: %q", admin[0])
	}
	if got := len(env.issuer.issued()); got != 0 {
		t.Fatalf("manual approval must not issue grants at submission, got %d", got)
	}

	record, err := env.registry.Get(ctx, requestID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.Status != StatusPending {
		t.Fatalf("expected pending record, got %s", record.Status)
	}
}

func TestRequestAccess_AutoApproveAll(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.AutoApproveAll = true
	env := newTestEnv(t, cfg)
	env.directory.addResource(ResourceRef{ID: "r1", Name: "myresource"})
	registerAccount(env)

	messages, err := CollectMessages(env.service.RequestAccess(ctx, AccessRequest{
		Requester:    testRequester(),
		SearchedName: "myresource",
		Kind:         GrantKindResource,
	}))
	if err != nil {
		t.Fatalf("request access: %v", err)
	}
	if len(messages) != 1 || !strings.Contains(messages[0], "Granting") {
		t.Fatalf("expected a granting message, got %#v", messages)
	}

	// Exactly one issuer invocation, zero admin notifications.
	grants := env.issuer.issued()
	if len(grants) != 1 {
		t.Fatalf("expected exactly one issued grant, got %d", len(grants))
	}
	if grants[0].ResourceID != "r1" || grants[0].AccountID != "a1" {
		t.Fatalf("unexpected grant parties: %#v", grants[0])
	}
	if got := len(env.notifier.adminMessages()); got != 0 {
		t.Fatalf("auto-approval must not notify admins, got %d", got)
	}

	uses, err := env.registry.AutoApproveUses(ctx, "U123")
	if err != nil {
		t.Fatalf("uses: %v", err)
	}
	if uses != 1 {
		t.Fatalf("expected one auto-approve use recorded, got %d", uses)
	}
}

func TestRequestAccess_TagAutoApprove(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.AutoApproveTag = "auto-approve"
	env := newTestEnv(t, cfg)
	env.directory.addResource(ResourceRef{
		ID: "r1", Name: "myresource",
		Tags: map[string]string{"auto-approve": "true"},
	})
	registerAccount(env)

	if _, err := CollectMessages(env.service.RequestAccess(ctx, AccessRequest{
		Requester:    testRequester(),
		SearchedName: "myresource",
		Kind:         GrantKindResource,
	})); err != nil {
		t.Fatalf("request access: %v", err)
	}
	if got := len(env.issuer.issued()); got != 1 {
		t.Fatalf("expected tag bypass to issue a grant, got %d", got)
	}
}

func TestRequestAccess_AutoApproveLimitRoutesToManual(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.AutoApproveAll = true
	cfg.MaxAutoApproveUses = 2
	cfg.AdminIDs = []string{"@admin1"}
	env := newTestEnv(t, cfg)
	env.directory.addResource(ResourceRef{ID: "r1", Name: "myresource"})
	registerAccount(env)

	request := AccessRequest{
		Requester:    testRequester(),
		SearchedName: "myresource",
		Kind:         GrantKindResource,
	}
	for i := 0; i < 2; i++ {
		if _, err := CollectMessages(env.service.RequestAccess(ctx, request)); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if got := len(env.issuer.issued()); got != 2 {
		t.Fatalf("expected two auto-grants before the limit, got %d", got)
	}

	// Third request hits the cap and must wait for manual approval even
	// though auto_approve_all is set.
	messages, err := CollectMessages(env.service.RequestAccess(ctx, request))
	if err != nil {
		t.Fatalf("capped request: %v", err)
	}
	if len(messages) != 1 || !strings.Contains(messages[0], "request id") {
		t.Fatalf("expected pending confirmation after limit, got %#v", messages)
	}
	if got := len(env.issuer.issued()); got != 2 {
		t.Fatalf("capped request must not auto-issue, got %d grants", got)
	}
	if got := len(env.notifier.adminMessages()); got != 1 {
		t.Fatalf("expected one admin notification for the capped request, got %d", got)
	}
}

func TestRequestAccess_UnresolvedNameSuggestsMatch(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, DefaultConfig())
	env.directory.addResource(ResourceRef{ID: "r1", Name: "myresource"})
	registerAccount(env)

	messages, err := CollectMessages(env.service.RequestAccess(ctx, AccessRequest{
		Requester:    testRequester(),
		SearchedName: "myresrc",
		Kind:         GrantKindResource,
	}))
	if err != nil {
		t.Fatalf("request access: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected not-found message plus suggestion, got %#v", messages)
	}
	if !strings.Contains(messages[0], "myresrc") {
		t.Fatalf("not-found message must name the unresolved term: %q", messages[0])
	}
	if messages[1] != `Did you mean "myresource"?` {
		t.Fatalf("unexpected suggestion: %q", messages[1])
	}

	// Resolution failure terminates before any record is created.
	pending, err := env.registry.ListPending(ctx)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("no record should exist after a failed resolution, got %d", len(pending))
	}
}

func TestRequestAccess_UnresolvedNameNoSuggestion(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, DefaultConfig())
	env.directory.addResource(ResourceRef{ID: "r1", Name: "myresource"})
	registerAccount(env)

	messages, err := CollectMessages(env.service.RequestAccess(ctx, AccessRequest{
		Requester:    testRequester(),
		SearchedName: "completely-unrelated",
		Kind:         GrantKindResource,
	}))
	if err != nil {
		t.Fatalf("request access: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected only the not-found message, got %#v", messages)
	}
}

func TestRequestAccess_DirectoryBackendErrorPropagates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, DefaultConfig())
	env.directory.failResources = true
	registerAccount(env)

	_, err := CollectMessages(env.service.RequestAccess(ctx, AccessRequest{
		Requester:    testRequester(),
		SearchedName: "myresource",
		Kind:         GrantKindResource,
	}))
	if err == nil {
		t.Fatalf("expected backend error to propagate")
	}
}

func TestRequestAccess_AccountNotFound(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, DefaultConfig())
	env.directory.addResource(ResourceRef{ID: "r1", Name: "myresource"})

	messages, err := CollectMessages(env.service.RequestAccess(ctx, AccessRequest{
		Requester:    testRequester(),
		SearchedName: "myresource",
		Kind:         GrantKindResource,
	}))
	if err != nil {
		t.Fatalf("request access: %v", err)
	}
	// Account lookups get no fuzzy fallback.
	if len(messages) != 1 || !strings.Contains(messages[0], "gandalf@test.com") {
		t.Fatalf("expected a single account not-found message, got %#v", messages)
	}
}

func TestRequestAccess_PermissionVeto(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, DefaultConfig(),
		WithGrantStrategy(ResourceAccessStrategy{AllowedTag: "requestable"}))
	env.directory.addResource(ResourceRef{ID: "r1", Name: "myresource"})
	registerAccount(env)

	messages, err := CollectMessages(env.service.RequestAccess(ctx, AccessRequest{
		Requester:    testRequester(),
		SearchedName: "myresource",
		Kind:         GrantKindResource,
	}))
	if err != nil {
		t.Fatalf("request access: %v", err)
	}
	if len(messages) != 1 || !strings.Contains(messages[0], "cannot request access") {
		t.Fatalf("expected a veto message, got %#v", messages)
	}
	pending, err := env.registry.ListPending(ctx)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("veto must not create a record, got %d", len(pending))
	}
}

func TestRequestAccess_RoleKindUsesRoleInventory(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.AdminIDs = []string{"@admin1"}
	env := newTestEnv(t, cfg)
	env.directory.addRole(ResourceRef{ID: "role1", Name: "oncall"})
	registerAccount(env)

	messages, err := CollectMessages(env.service.RequestAccess(ctx, AccessRequest{
		Requester:    testRequester(),
		SearchedName: "oncall",
		Kind:         GrantKindRole,
	}))
	if err != nil {
		t.Fatalf("request access: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected pending confirmation, got %#v", messages)
	}
	admin := env.notifier.adminMessages()
	if len(admin) != 1 || !strings.Contains(admin[0], "ROLE") {
		t.Fatalf("expected role admin notification, got %#v", admin)
	}
}

func TestRequestAccess_NotifierFailureKeepsRecord(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.AdminIDs = []string{"@admin1"}
	env := newTestEnv(t, cfg)
	env.directory.addResource(ResourceRef{ID: "r1", Name: "myresource"})
	registerAccount(env)
	env.notifier.err = errors.New("chat transport down")

	messages, err := CollectMessages(env.service.RequestAccess(ctx, AccessRequest{
		Requester:    testRequester(),
		SearchedName: "myresource",
		Kind:         GrantKindResource,
	}))
	if err != nil {
		t.Fatalf("notification failure must not fail the request: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected confirmation plus delivery warning, got %#v", messages)
	}

	pending, listErr := env.registry.ListPending(ctx)
	if listErr != nil {
		t.Fatalf("list pending: %v", listErr)
	}
	if len(pending) != 1 {
		t.Fatalf("record must survive a notification failure, got %d", len(pending))
	}
}

func TestApproveRequest_FullFlow(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.AdminIDs = []string{"@admin1"}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env := newTestEnv(t, cfg, WithNowFunc(func() time.Time { return now }))
	env.directory.addResource(ResourceRef{ID: "r1", Name: "myresource"})
	registerAccount(env)

	if _, err := CollectMessages(env.service.RequestAccess(ctx, AccessRequest{
		Requester:    testRequester(),
		SearchedName: "myresource",
		Kind:         GrantKindResource,
	})); err != nil {
		t.Fatalf("request access: %v", err)
	}
	pending, err := env.registry.ListPending(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected one pending record, got %d (%v)", len(pending), err)
	}
	requestID := pending[0].ID

	messages, err := CollectMessages(env.service.ApproveRequest(ctx, requestID, "admin"))
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if len(messages) != 1 || !strings.Contains(messages[0], "Granting") {
		t.Fatalf("expected granting confirmation, got %#v", messages)
	}

	grants := env.issuer.issued()
	if len(grants) != 1 {
		t.Fatalf("expected one issued grant, got %d", len(grants))
	}
	wantStart := now.Add(cfg.GrantStartDelay)
	if !grants[0].StartFrom.Equal(wantStart) {
		t.Fatalf("expected grant start %v, got %v", wantStart, grants[0].StartFrom)
	}
	if !grants[0].ValidUntil.Equal(wantStart.Add(cfg.GrantDuration)) {
		t.Fatalf("unexpected grant end %v", grants[0].ValidUntil)
	}

	// Requester is told out-of-band about the manual approval.
	if got := env.notifier.requesterMessages(); len(got) != 1 {
		t.Fatalf("expected one requester notification, got %#v", got)
	}
}

func TestApproveRequest_IdempotentNoDoubleIssue(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.AdminIDs = []string{"@admin1"}
	env := newTestEnv(t, cfg)
	env.directory.addResource(ResourceRef{ID: "r1", Name: "myresource"})
	registerAccount(env)

	if _, err := CollectMessages(env.service.RequestAccess(ctx, AccessRequest{
		Requester:    testRequester(),
		SearchedName: "myresource",
		Kind:         GrantKindResource,
	})); err != nil {
		t.Fatalf("request access: %v", err)
	}
	pending, _ := env.registry.ListPending(ctx)
	requestID := pending[0].ID

	if _, err := CollectMessages(env.service.ApproveRequest(ctx, requestID, "admin")); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	messages, err := CollectMessages(env.service.ApproveRequest(ctx, requestID, "admin"))
	if err != nil {
		t.Fatalf("second approve: %v", err)
	}
	if len(messages) != 1 || !strings.Contains(messages[0], "already approved") {
		t.Fatalf("expected idempotent no-op message, got %#v", messages)
	}
	if got := len(env.issuer.issued()); got != 1 {
		t.Fatalf("double approval must not double-issue, got %d grants", got)
	}
}

func TestApproveRequest_UnknownID(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, DefaultConfig())

	_, err := CollectMessages(env.service.ApproveRequest(ctx, "nope42", "admin"))
	if !IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestApproveRequest_IssuerFailureMarksFailed(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.AdminIDs = []string{"@admin1"}
	env := newTestEnv(t, cfg)
	env.directory.addResource(ResourceRef{ID: "r1", Name: "myresource"})
	registerAccount(env)

	if _, err := CollectMessages(env.service.RequestAccess(ctx, AccessRequest{
		Requester:    testRequester(),
		SearchedName: "myresource",
		Kind:         GrantKindResource,
	})); err != nil {
		t.Fatalf("request access: %v", err)
	}
	pending, _ := env.registry.ListPending(ctx)
	requestID := pending[0].ID

	env.issuer.err = errors.New("issuer backend down")
	if _, err := CollectMessages(env.service.ApproveRequest(ctx, requestID, "admin")); err == nil {
		t.Fatalf("expected issuer failure to surface")
	}

	record, err := env.registry.Get(ctx, requestID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Status != StatusFailed {
		t.Fatalf("expected failed status after issuer error, got %s", record.Status)
	}

	// The failure is surfaced to admins for manual remediation (submission
	// notice plus failure notice).
	admin := env.notifier.adminMessages()
	if len(admin) != 2 || !strings.Contains(admin[1], "Manual remediation") {
		t.Fatalf("expected remediation notice, got %#v", admin)
	}
}

func TestDenyRequest_Flow(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.AdminIDs = []string{"@admin1"}
	env := newTestEnv(t, cfg)
	env.directory.addResource(ResourceRef{ID: "r1", Name: "myresource"})
	registerAccount(env)

	if _, err := CollectMessages(env.service.RequestAccess(ctx, AccessRequest{
		Requester:    testRequester(),
		SearchedName: "myresource",
		Kind:         GrantKindResource,
	})); err != nil {
		t.Fatalf("request access: %v", err)
	}
	pending, _ := env.registry.ListPending(ctx)
	requestID := pending[0].ID

	messages, err := CollectMessages(env.service.DenyRequest(ctx, requestID, "admin", "not this week"))
	if err != nil {
		t.Fatalf("deny: %v", err)
	}
	if len(messages) != 1 || !strings.Contains(messages[0], "denied") {
		t.Fatalf("expected denial confirmation, got %#v", messages)
	}
	if got := len(env.issuer.issued()); got != 0 {
		t.Fatalf("denial must not issue grants, got %d", got)
	}

	record, err := env.registry.Get(ctx, requestID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Status != StatusDenied {
		t.Fatalf("expected denied status, got %s", record.Status)
	}
}

func TestRequestAccess_CancelledContextCreatesNoRecord(t *testing.T) {
	cfg := DefaultConfig()
	env := newTestEnv(t, cfg)
	env.directory.addResource(ResourceRef{ID: "r1", Name: "myresource"})
	registerAccount(env)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CollectMessages(env.service.RequestAccess(ctx, AccessRequest{
		Requester:    testRequester(),
		SearchedName: "myresource",
		Kind:         GrantKindResource,
	}))
	if err == nil {
		t.Fatalf("expected cancellation to surface")
	}
	pending, listErr := env.registry.ListPending(context.Background())
	if listErr != nil {
		t.Fatalf("list pending: %v", listErr)
	}
	if len(pending) != 0 {
		t.Fatalf("cancellation before recording must not create a record, got %d", len(pending))
	}
}

func TestRequestAccess_LazyConsumptionStopsEarly(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, DefaultConfig())
	env.directory.addResource(ResourceRef{ID: "r1", Name: "myresource"})
	registerAccount(env)

	stream := env.service.RequestAccess(ctx, AccessRequest{
		Requester:    testRequester(),
		SearchedName: "myresrc",
		Kind:         GrantKindResource,
	})
	count := 0
	for msg, err := range stream {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_ = msg
		count++
		break
	}
	if count != 1 {
		t.Fatalf("expected early termination after one message, got %d", count)
	}
}
