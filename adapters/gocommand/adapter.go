// Package gocommand mounts the access command and query handlers on the
// go-command registry and dispatcher so embedding applications can drive
// the grant workflow through typed messages.
package gocommand

import (
	"fmt"
	"strings"

	accesscommand "github.com/goliatone/go-access/command"
	accessquery "github.com/goliatone/go-access/query"
	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
)

// ValidateMessageContract enforces the Type() plus optional Validate()
// contract every access message follows.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	typed, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(typed.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

// Mounted holds the registry and live dispatcher subscriptions for one
// mounted access surface. Unmount releases the subscriptions.
type Mounted struct {
	registry      *command.Registry
	subscriptions []commanddispatcher.Subscription
}

// MountConfig names the collaborators the handlers are built around.
// Service is required; Requests and Profiles default to nothing, leaving
// the matching queries unmounted.
type MountConfig struct {
	Registry *command.Registry
	Service  accesscommand.MutatingService
	Requests accessquery.RequestReader
	Profiles accessquery.ProfileReader
	Runner   []runner.Option
}

// Mount registers the grant commands (request, approve, deny) and the read
// queries on the registry, subscribes each to the dispatcher, and
// initializes the registry.
func Mount(cfg MountConfig) (*Mounted, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("gocommand: mutating service is required")
	}
	registry := cfg.Registry
	if registry == nil {
		registry = command.NewRegistry()
	}

	mounted := &Mounted{registry: registry}
	fail := func(err error) (*Mounted, error) {
		mounted.Unmount()
		return nil, err
	}

	requestCmd := accesscommand.NewRequestAccessCommand(cfg.Service)
	approveCmd := accesscommand.NewApproveGrantCommand(cfg.Service)
	denyCmd := accesscommand.NewDenyGrantCommand(cfg.Service)
	for _, cmd := range []any{requestCmd, approveCmd, denyCmd} {
		if err := registry.RegisterCommand(cmd); err != nil {
			return fail(fmt.Errorf("gocommand: register command: %w", err))
		}
	}
	mounted.track(
		commanddispatcher.SubscribeCommand(requestCmd, cfg.Runner...),
		commanddispatcher.SubscribeCommand(approveCmd, cfg.Runner...),
		commanddispatcher.SubscribeCommand(denyCmd, cfg.Runner...),
	)

	if cfg.Requests != nil {
		getQry := accessquery.NewGetRequestQuery(cfg.Requests)
		listQry := accessquery.NewListPendingRequestsQuery(cfg.Requests)
		usageQry := accessquery.NewAutoApproveUsageQuery(cfg.Requests)
		for _, qry := range []any{getQry, listQry, usageQry} {
			if err := registry.RegisterCommand(qry); err != nil {
				return fail(fmt.Errorf("gocommand: register query: %w", err))
			}
		}
		mounted.track(
			commanddispatcher.SubscribeQuery(getQry, cfg.Runner...),
			commanddispatcher.SubscribeQuery(listQry, cfg.Runner...),
			commanddispatcher.SubscribeQuery(usageQry, cfg.Runner...),
		)
	}

	if cfg.Profiles != nil {
		profileQry := accessquery.NewAccountProfileQuery(cfg.Profiles)
		if err := registry.RegisterCommand(profileQry); err != nil {
			return fail(fmt.Errorf("gocommand: register query: %w", err))
		}
		mounted.track(commanddispatcher.SubscribeQuery(profileQry, cfg.Runner...))
	}

	if err := registry.Initialize(); err != nil {
		return fail(fmt.Errorf("gocommand: initialize registry: %w", err))
	}
	return mounted, nil
}

func (m *Mounted) track(subs ...commanddispatcher.Subscription) {
	for _, sub := range subs {
		if sub != nil {
			m.subscriptions = append(m.subscriptions, sub)
		}
	}
}

func (m *Mounted) Registry() *command.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Unmount releases every dispatcher subscription taken during Mount.
func (m *Mounted) Unmount() {
	if m == nil {
		return
	}
	for _, sub := range m.subscriptions {
		sub.Unsubscribe()
	}
	m.subscriptions = nil
}
