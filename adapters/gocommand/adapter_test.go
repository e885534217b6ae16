package gocommand

import (
	"context"
	"testing"

	accesscommand "github.com/goliatone/go-access/command"
	"github.com/goliatone/go-access/core"
	accessquery "github.com/goliatone/go-access/query"
	gocmd "github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
)

type untypedMessage struct{}

func (untypedMessage) Type() string { return "" }

type recordingService struct {
	requests []core.AccessRequest
	approved []string
	denied   []string
}

func (s *recordingService) RequestAccess(_ context.Context, req core.AccessRequest) core.MessageStream {
	s.requests = append(s.requests, req)
	return replies("valid request", "admins notified")
}

func (s *recordingService) ApproveRequest(_ context.Context, requestID string, _ string) core.MessageStream {
	s.approved = append(s.approved, requestID)
	return replies("approved " + requestID)
}

func (s *recordingService) DenyRequest(_ context.Context, requestID string, _ string, _ string) core.MessageStream {
	s.denied = append(s.denied, requestID)
	return replies("denied " + requestID)
}

type staticProfileReader struct{}

func (staticProfileReader) ShowProfile(_ context.Context, requester core.Requester) core.MessageStream {
	return replies("profile for " + requester.Email)
}

func replies(lines ...string) core.MessageStream {
	return func(yield func(string, error) bool) {
		for _, line := range lines {
			if !yield(line, nil) {
				return
			}
		}
	}
}

func TestValidateMessageContract(t *testing.T) {
	valid := accesscommand.ApproveGrantMessage{RequestID: "a1b2c3", Approver: "admin1"}
	if err := ValidateMessageContract(valid); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
	if err := ValidateMessageContract(untypedMessage{}); err == nil {
		t.Fatalf("expected empty type to fail contract validation")
	}
	missingApprover := accesscommand.ApproveGrantMessage{RequestID: "a1b2c3"}
	if err := ValidateMessageContract(missingApprover); err == nil {
		t.Fatalf("expected Validate() failure to bubble")
	}
}

func TestMount_RequiresService(t *testing.T) {
	if _, err := Mount(MountConfig{}); err == nil {
		t.Fatalf("expected error for missing service")
	}
}

func TestMount_CommandAndQueryRoundTrip(t *testing.T) {
	svc := &recordingService{}
	registry := core.NewMemoryRequestRegistry()

	mounted, err := Mount(MountConfig{
		Service:  svc,
		Requests: registry,
		Profiles: staticProfileReader{},
	})
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	defer mounted.Unmount()

	if mounted.Registry() == nil {
		t.Fatalf("expected registry accessor")
	}

	collector := gocmd.NewResult[[]string]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	err = commanddispatcher.Dispatch(ctx, accesscommand.RequestAccessMessage{
		Request: core.AccessRequest{
			Requester:    core.Requester{ID: "U123", Nick: "gandalf", Email: "gandalf@test.com"},
			SearchedName: "prod-db",
			Kind:         core.GrantKindResource,
		},
	})
	if err != nil {
		t.Fatalf("dispatch request access: %v", err)
	}
	if len(svc.requests) != 1 {
		t.Fatalf("expected one request delegation, got %d", len(svc.requests))
	}
	stored, ok := collector.Load()
	if !ok || len(stored) != 2 {
		t.Fatalf("expected streamed replies to be stored, got %#v", stored)
	}

	id, err := registry.GenerateRequestID(context.Background())
	if err != nil {
		t.Fatalf("generate request id: %v", err)
	}
	if _, err := registry.Record(context.Background(), core.RecordRequestInput{
		ID:        id,
		Requester: core.Requester{ID: "U123", Email: "gandalf@test.com"},
		Resource:  core.ResourceRef{ID: "res_1", Name: "prod-db"},
		Kind:      core.GrantKindResource,
	}); err != nil {
		t.Fatalf("record request: %v", err)
	}

	found, err := commanddispatcher.Query[accessquery.GetRequestMessage, core.GrantRequest](
		context.Background(),
		accessquery.GetRequestMessage{RequestID: id},
	)
	if err != nil {
		t.Fatalf("query request: %v", err)
	}
	if found.ID != id {
		t.Fatalf("expected request %s, got %s", id, found.ID)
	}

	profile, err := commanddispatcher.Query[accessquery.AccountProfileMessage, []string](
		context.Background(),
		accessquery.AccountProfileMessage{Requester: core.Requester{ID: "U123", Email: "gandalf@test.com"}},
	)
	if err != nil {
		t.Fatalf("query profile: %v", err)
	}
	if len(profile) != 1 || profile[0] != "profile for gandalf@test.com" {
		t.Fatalf("unexpected profile output: %#v", profile)
	}
}
