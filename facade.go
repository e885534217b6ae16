package access

import (
	"fmt"

	accesscommand "github.com/goliatone/go-access/command"
	"github.com/goliatone/go-access/core"
	accessquery "github.com/goliatone/go-access/query"
)

type CommandQueryService interface {
	accesscommand.MutatingService
	accessquery.ProfileReader
}

type Commands struct {
	RequestAccess *accesscommand.RequestAccessCommand
	ApproveGrant  *accesscommand.ApproveGrantCommand
	DenyGrant     *accesscommand.DenyGrantCommand
}

type Queries struct {
	GetRequest          *accessquery.GetRequestQuery
	ListPendingRequests *accessquery.ListPendingRequestsQuery
	AutoApproveUsage    *accessquery.AutoApproveUsageQuery
	AccountProfile      *accessquery.AccountProfileQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	requestReader accessquery.RequestReader
}

// WithRequestReader overrides the read-side source for request queries,
// e.g. to route reads through a cached store.
func WithRequestReader(reader accessquery.RequestReader) FacadeOption {
	return func(options *facadeOptions) {
		options.requestReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("access: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.requestReader
	if reader == nil {
		reader = resolveRequestReader(service)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		RequestAccess: accesscommand.NewRequestAccessCommand(service),
		ApproveGrant:  accesscommand.NewApproveGrantCommand(service),
		DenyGrant:     accesscommand.NewDenyGrantCommand(service),
	}
	facade.queries = Queries{
		GetRequest:          accessquery.NewGetRequestQuery(reader),
		ListPendingRequests: accessquery.NewListPendingRequestsQuery(reader),
		AutoApproveUsage:    accessquery.NewAutoApproveUsageQuery(reader),
		AccountProfile:      accessquery.NewAccountProfileQuery(service),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

func resolveRequestReader(service CommandQueryService) accessquery.RequestReader {
	if service == nil {
		return nil
	}
	if reader, ok := service.(accessquery.RequestReader); ok {
		return reader
	}
	provider, ok := service.(interface {
		Registry() core.RequestRegistry
	})
	if !ok {
		return nil
	}
	registry := provider.Registry()
	if registry == nil {
		return nil
	}
	return registry
}
