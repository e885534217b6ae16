package access

import (
	"context"
	"fmt"
	"strings"
	"testing"

	accesscommand "github.com/goliatone/go-access/command"
	"github.com/goliatone/go-access/core"
	accessquery "github.com/goliatone/go-access/query"
)

type facadeDirectory struct{}

func (facadeDirectory) FindResourceByName(_ context.Context, name string) (core.ResourceRef, error) {
	if name != "prod-db" {
		return core.ResourceRef{}, core.NotFoundError(fmt.Sprintf("resource %q not found", name))
	}
	return core.ResourceRef{ID: "res_1", Name: "prod-db"}, nil
}

func (facadeDirectory) FindRoleByName(_ context.Context, name string) (core.ResourceRef, error) {
	return core.ResourceRef{}, core.NotFoundError(fmt.Sprintf("role %q not found", name))
}

func (facadeDirectory) FindAccountByIdentity(_ context.Context, identity string) (core.AccountRef, error) {
	return core.AccountRef{ID: "acct_1", Email: identity}, nil
}

func (facadeDirectory) ListResources(context.Context) ([]core.ResourceRef, error) {
	return []core.ResourceRef{{ID: "res_1", Name: "prod-db"}}, nil
}

func (facadeDirectory) ListRoles(context.Context) ([]core.ResourceRef, error) {
	return nil, nil
}

type facadeNotifier struct{}

func (facadeNotifier) SendToRequester(context.Context, string, string) error { return nil }

func (facadeNotifier) SendToAdmins(context.Context, string, []string, string) error { return nil }

func newFacadeService(t *testing.T) *core.Service {
	t.Helper()
	svc, err := core.NewService(core.DefaultConfig(),
		core.WithDirectoryClient(facadeDirectory{}),
		core.WithNotifier(facadeNotifier{}),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestNewFacade_WiresCommandsAndQueries(t *testing.T) {
	facade, err := NewFacade(newFacadeService(t))
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	commands := facade.Commands()
	if commands.RequestAccess == nil || commands.ApproveGrant == nil || commands.DenyGrant == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	queries := facade.Queries()
	if queries.GetRequest == nil || queries.ListPendingRequests == nil || queries.AccountProfile == nil {
		t.Fatalf("expected query handlers to be wired")
	}
}

func TestFacade_CommandAndQueryDelegation(t *testing.T) {
	facade, err := NewFacade(newFacadeService(t))
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	err = facade.Commands().RequestAccess.Execute(context.Background(), accesscommand.RequestAccessMessage{
		Request: core.AccessRequest{
			Requester:    core.Requester{ID: "U123", Nick: "gandalf", Email: "gandalf@test.com"},
			SearchedName: "prod-db",
			Kind:         core.GrantKindResource,
		},
	})
	if err != nil {
		t.Fatalf("execute request access command: %v", err)
	}

	pending, err := facade.Queries().ListPendingRequests.Query(context.Background(), accessquery.ListPendingRequestsMessage{})
	if err != nil {
		t.Fatalf("query pending requests: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending request, got %d", len(pending))
	}

	record, err := facade.Queries().GetRequest.Query(context.Background(), accessquery.GetRequestMessage{
		RequestID: pending[0].ID,
	})
	if err != nil {
		t.Fatalf("query request by id: %v", err)
	}
	if record.Resource.Name != "prod-db" {
		t.Fatalf("unexpected request record: %#v", record)
	}

	profile, err := facade.Queries().AccountProfile.Query(context.Background(), accessquery.AccountProfileMessage{
		Requester: core.Requester{ID: "U123", Email: "gandalf@test.com"},
	})
	if err != nil {
		t.Fatalf("query account profile: %v", err)
	}
	joined := strings.Join(profile, "\n")
	if !strings.Contains(joined, "gandalf@test.com") {
		t.Fatalf("expected profile output to carry the account email, got %q", joined)
	}
}

func TestNewFacade_RequiresService(t *testing.T) {
	facade, err := NewFacade(nil)
	if err == nil {
		t.Fatalf("expected nil service error")
	}
	if facade != nil {
		t.Fatalf("expected nil facade on error")
	}
}
