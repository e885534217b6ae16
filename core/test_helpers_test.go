package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

type fakeDirectory struct {
	mu        sync.Mutex
	resources []ResourceRef
	roles     []ResourceRef
	accounts  map[string]AccountRef

	failResources bool
	failAccounts  bool
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{accounts: map[string]AccountRef{}}
}

func (d *fakeDirectory) addResource(res ResourceRef) {
	d.mu.Lock()
	d.resources = append(d.resources, res)
	d.mu.Unlock()
}

func (d *fakeDirectory) addRole(role ResourceRef) {
	d.mu.Lock()
	d.roles = append(d.roles, role)
	d.mu.Unlock()
}

func (d *fakeDirectory) addAccount(identity string, account AccountRef) {
	d.mu.Lock()
	d.accounts[identity] = account
	d.mu.Unlock()
}

func (d *fakeDirectory) FindResourceByName(_ context.Context, name string) (ResourceRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failResources {
		return ResourceRef{}, BackendError("directory backend unavailable", nil)
	}
	for _, res := range d.resources {
		if res.Name == name {
			return res, nil
		}
	}
	return ResourceRef{}, NotFoundError(fmt.Sprintf("resource not found: %s", name))
}

func (d *fakeDirectory) FindRoleByName(_ context.Context, name string) (ResourceRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, role := range d.roles {
		if role.Name == name {
			return role, nil
		}
	}
	return ResourceRef{}, NotFoundError(fmt.Sprintf("role not found: %s", name))
}

func (d *fakeDirectory) FindAccountByIdentity(_ context.Context, identity string) (AccountRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAccounts {
		return AccountRef{}, BackendError("directory backend unavailable", nil)
	}
	account, ok := d.accounts[identity]
	if !ok {
		return AccountRef{}, NotFoundError(fmt.Sprintf("account not found: %s", identity))
	}
	return account, nil
}

func (d *fakeDirectory) ListResources(_ context.Context) ([]ResourceRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failResources {
		return nil, BackendError("directory backend unavailable", nil)
	}
	return append([]ResourceRef(nil), d.resources...), nil
}

func (d *fakeDirectory) ListRoles(_ context.Context) ([]ResourceRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]ResourceRef(nil), d.roles...), nil
}

type issuedGrant struct {
	ResourceID string
	AccountID  string
	StartFrom  time.Time
	ValidUntil time.Time
}

type fakeIssuer struct {
	mu     sync.Mutex
	grants []issuedGrant
	err    error
}

func (i *fakeIssuer) IssueGrant(_ context.Context, resourceID, accountID string, startFrom, validUntil time.Time) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.err != nil {
		return i.err
	}
	i.grants = append(i.grants, issuedGrant{
		ResourceID: resourceID,
		AccountID:  accountID,
		StartFrom:  startFrom,
		ValidUntil: validUntil,
	})
	return nil
}

func (i *fakeIssuer) issued() []issuedGrant {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]issuedGrant(nil), i.grants...)
}

type fakeNotifier struct {
	mu        sync.Mutex
	requester []string
	admin     []string
	err       error
}

func (n *fakeNotifier) SendToRequester(_ context.Context, requesterID string, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.requester = append(n.requester, requesterID+": "+text)
	return nil
}

func (n *fakeNotifier) SendToAdmins(_ context.Context, channel string, adminIDs []string, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	target := channel
	if target == "" {
		target = strings.Join(adminIDs, ",")
	}
	n.admin = append(n.admin, target+": "+text)
	return nil
}

func (n *fakeNotifier) adminMessages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.admin...)
}

func (n *fakeNotifier) requesterMessages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.requester...)
}

type testEnv struct {
	service   *Service
	directory *fakeDirectory
	issuer    *fakeIssuer
	notifier  *fakeNotifier
	registry  *MemoryRequestRegistry
}

func newTestEnv(t interface{ Fatalf(string, ...any) }, cfg Config, extra ...Option) *testEnv {
	directory := newFakeDirectory()
	issuer := &fakeIssuer{}
	notifier := &fakeNotifier{}
	registry := NewMemoryRequestRegistry()

	options := append([]Option{
		WithDirectoryClient(directory),
		WithGrantIssuer(issuer),
		WithNotifier(notifier),
		WithRequestRegistry(registry),
	}, extra...)

	svc, err := NewService(cfg, options...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &testEnv{
		service:   svc,
		directory: directory,
		issuer:    issuer,
		notifier:  notifier,
		registry:  registry,
	}
}

func testRequester() Requester {
	return Requester{ID: "U123", Nick: "gandalf", Email: "gandalf@test.com"}
}
