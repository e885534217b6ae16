package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type serviceBuilder struct {
	runtimeConfig   Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorFactory    ErrorFactory
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	directory       DirectoryClient
	issuer          GrantIssuer
	notifier        Notifier
	registry        RequestRegistry
	strategies      []GrantStrategy
	nowFunc         func() time.Time
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *serviceBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithDirectoryClient(client DirectoryClient) Option {
	return func(b *serviceBuilder) {
		b.directory = client
	}
}

func WithGrantIssuer(issuer GrantIssuer) Option {
	return func(b *serviceBuilder) {
		b.issuer = issuer
	}
}

func WithNotifier(notifier Notifier) Option {
	return func(b *serviceBuilder) {
		b.notifier = notifier
	}
}

func WithRequestRegistry(registry RequestRegistry) Option {
	return func(b *serviceBuilder) {
		b.registry = registry
	}
}

// WithGrantStrategy registers an additional or replacement strategy for its
// grant kind. The resource and role strategies are installed by default.
func WithGrantStrategy(strategy GrantStrategy) Option {
	return func(b *serviceBuilder) {
		if strategy == nil {
			return
		}
		b.strategies = append(b.strategies, strategy)
	}
}

// WithNowFunc overrides the clock, primarily for tests asserting on the
// issued grant window.
func WithNowFunc(now func() time.Time) Option {
	return func(b *serviceBuilder) {
		b.nowFunc = now
	}
}

func defaultServiceBuilder(cfg Config) serviceBuilder {
	return serviceBuilder{
		runtimeConfig: cfg,
	}
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || cfg.AutoApproveAll {
		layer["auto_approve_all"] = cfg.AutoApproveAll
	}
	if includeZero || strings.TrimSpace(cfg.AutoApproveTag) != "" {
		layer["auto_approve_tag"] = cfg.AutoApproveTag
	}
	if includeZero || cfg.MaxAutoApproveUses > 0 {
		layer["max_auto_approve_uses"] = cfg.MaxAutoApproveUses
	}
	if includeZero || strings.TrimSpace(cfg.AdminsChannel) != "" {
		layer["admins_channel"] = cfg.AdminsChannel
	}
	if includeZero || len(cfg.AdminIDs) > 0 {
		layer["admin_ids"] = append([]string(nil), cfg.AdminIDs...)
	}
	if includeZero || cfg.GrantStartDelay > 0 {
		layer["grant_start_delay"] = cfg.GrantStartDelay
	}
	if includeZero || cfg.GrantDuration > 0 {
		layer["grant_duration"] = cfg.GrantDuration
	}
	if includeZero || cfg.FuzzyMinSimilarity > 0 {
		layer["fuzzy_min_similarity"] = cfg.FuzzyMinSimilarity
	}
	if includeZero || cfg.PendingReminderAge > 0 {
		layer["pending_reminder_age"] = cfg.PendingReminderAge
	}
	return layer
}
