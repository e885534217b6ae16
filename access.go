package access

import "github.com/goliatone/go-access/core"

type Config = core.Config

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type GrantKind = core.GrantKind

type RequestStatus = core.RequestStatus

type Requester = core.Requester
type AccountRef = core.AccountRef
type ResourceRef = core.ResourceRef
type AccessRequest = core.AccessRequest
type GrantRequest = core.GrantRequest
type MessageStream = core.MessageStream

type DirectoryClient = core.DirectoryClient
type GrantIssuer = core.GrantIssuer
type Notifier = core.Notifier
type RequestRegistry = core.RequestRegistry
type GrantStrategy = core.GrantStrategy

const (
	GrantKindResource = core.GrantKindResource
	GrantKindRole     = core.GrantKindRole

	StatusPending  = core.StatusPending
	StatusApproved = core.StatusApproved
	StatusDenied   = core.StatusDenied
	StatusFailed   = core.StatusFailed
)

var (
	WithLogger          = core.WithLogger
	WithLoggerProvider  = core.WithLoggerProvider
	WithMetricsRecorder = core.WithMetricsRecorder
	WithErrorFactory    = core.WithErrorFactory
	WithErrorMapper     = core.WithErrorMapper
	WithConfigProvider  = core.WithConfigProvider
	WithOptionsResolver = core.WithOptionsResolver
	WithDirectoryClient = core.WithDirectoryClient
	WithGrantIssuer     = core.WithGrantIssuer
	WithNotifier        = core.WithNotifier
	WithRequestRegistry = core.WithRequestRegistry
	WithGrantStrategy   = core.WithGrantStrategy
	WithNowFunc         = core.WithNowFunc

	NewService               = core.NewService
	NewMemoryRequestRegistry = core.NewMemoryRequestRegistry
	NewReminderRunner        = core.NewReminderRunner
	CollectMessages          = core.CollectMessages
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}
