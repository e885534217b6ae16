package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service is the grant workflow engine. It composes the directory client,
// grant issuer, notifier, request registry, and policy configuration into
// the end-to-end request lifecycle:
//
//	resolve -> evaluate -> grant or queue -> notify -> approve/deny later
//
// All collaborators arrive through constructor options; the engine holds no
// process-wide state of its own.
type Service struct {
	config          Config
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
	strategies      map[GrantKind]GrantStrategy
	nowFunc         func() time.Time
}

// ServiceDependencies is a read-only snapshot of the engine's resolved
// collaborators, used by facades that need to share them.
type ServiceDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorMapper     ErrorMapper
	Directory       DirectoryClient
	Issuer          GrantIssuer
	Notifier        Notifier
	Registry        RequestRegistry
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("access", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("access"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.errorMapper == nil {
		builder.errorMapper = accessErrorMapper
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.registry == nil {
		builder.registry = NewMemoryRequestRegistry()
	}
	if builder.nowFunc == nil {
		builder.nowFunc = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, err
	}
	resolved, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, err
	}

	strategies := map[GrantKind]GrantStrategy{}
	for _, strategy := range defaultStrategies() {
		strategies[strategy.Kind()] = strategy
	}
	for _, strategy := range builder.strategies {
		strategies[strategy.Kind()] = strategy
	}

	return &Service{
		config:          resolved,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorFactory:    builder.errorFactory,
		errorMapper:     builder.errorMapper,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		directory:       builder.directory,
		issuer:          builder.issuer,
		notifier:        builder.notifier,
		registry:        builder.registry,
		strategies:      strategies,
		nowFunc:         builder.nowFunc,
	}, nil
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:          s.logger,
		LoggerProvider:  s.loggerProvider,
		MetricsRecorder: s.metricsRecorder,
		ErrorMapper:     s.errorMapper,
		Directory:       s.directory,
		Issuer:          s.issuer,
		Notifier:        s.notifier,
		Registry:        s.registry,
	}
}

func (s *Service) Registry() RequestRegistry {
	if s == nil {
		return nil
	}
	return s.registry
}

func (s *Service) now() time.Time {
	if s == nil || s.nowFunc == nil {
		return time.Now().UTC()
	}
	return s.nowFunc()
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	if mapped := s.errorMapper(err); mapped != nil {
		return mapped
	}
	return err
}

func (s *Service) strategyFor(kind GrantKind) (GrantStrategy, error) {
	if s == nil {
		return nil, internalError("core: service is not configured")
	}
	strategy, ok := s.strategies[kind]
	if !ok {
		return nil, badInputError(
			fmt.Sprintf("core: no strategy registered for grant kind %q", string(kind)),
		)
	}
	return strategy, nil
}

// RequestAccess runs the full request lifecycle for one inbound chat event
// and lazily yields the user-facing replies. Resolution failures become
// guidance messages (with a fuzzy-match suggestion for resources); backend
// failures surface as the stream's error element.
func (s *Service) RequestAccess(ctx context.Context, req AccessRequest) MessageStream {
	return func(yield func(string, error) bool) {
		startedAt := time.Now()
		if s == nil {
			yield("", internalError("core: service is not configured"))
			return
		}
		if err := req.Validate(); err != nil {
			yield("", s.mapError(badInputError(err.Error())))
			return
		}
		strategy, err := s.strategyFor(req.Kind)
		if err != nil {
			yield("", s.mapError(err))
			return
		}
		if s.directory == nil {
			yield("", internalError("core: directory client is not configured"))
			return
		}

		fields := map[string]any{
			"requester_id":  req.Requester.ID,
			"searched_name": req.SearchedName,
			"grant_kind":    string(req.Kind),
		}

		resource, err := strategy.GetItemByName(ctx, s.directory, req.SearchedName)
		if err != nil {
			if IsNotFound(err) {
				s.handleUnresolvedItem(ctx, strategy, req, fields, yield)
				return
			}
			s.observeOperation(ctx, startedAt, "request_access", err, fields)
			yield("", s.mapError(err))
			return
		}
		fields["resource_id"] = resource.ID

		account, err := s.directory.FindAccountByIdentity(ctx, req.Requester.Email)
		if err != nil {
			if IsNotFound(err) {
				s.observeOperation(ctx, startedAt, "request_access", err, fields)
				yield(fmt.Sprintf("Sorry, I can't find an account for %s.", req.Requester.Email), nil)
				return
			}
			s.observeOperation(ctx, startedAt, "request_access", err, fields)
			yield("", s.mapError(err))
			return
		}
		fields["account_id"] = account.ID

		if veto := strategy.HasPermission(resource, account, req.SearchedName); veto != "" {
			s.observeOperation(ctx, startedAt, "request_access", nil, fields)
			yield(veto, nil)
			return
		}

		// Cancellation before the record exists means no record is created;
		// afterwards the PENDING record survives cancellation.
		if err := ctx.Err(); err != nil {
			yield("", s.mapError(err))
			return
		}

		requestID, err := s.registry.GenerateRequestID(ctx)
		if err != nil {
			s.observeOperation(ctx, startedAt, "request_access", err, fields)
			yield("", s.mapError(err))
			return
		}
		fields["request_id"] = requestID

		record, err := s.registry.Record(ctx, RecordRequestInput{
			ID:        requestID,
			Requester: req.Requester,
			Resource:  resource,
			Account:   account,
			Kind:      req.Kind,
		})
		if err != nil {
			s.observeOperation(ctx, startedAt, "request_access", err, fields)
			yield("", s.mapError(err))
			return
		}

		uses, err := s.registry.AutoApproveUses(ctx, req.Requester.ID)
		if err != nil {
			s.observeOperation(ctx, startedAt, "request_access", err, fields)
			yield("", s.mapError(err))
			return
		}

		needsManual := RequiresManualApproval(req.Kind, resource, s.config) ||
			AutoApproveLimitReached(uses, s.config)
		fields["manual_approval"] = needsManual

		if needsManual {
			s.emitPendingNotifications(ctx, strategy, record, yield)
			s.observeOperation(ctx, startedAt, "request_access", nil, fields)
			return
		}

		s.approveAndIssue(ctx, record.ID, record.Requester.ID, true, yield)
		s.observeOperation(ctx, startedAt, "request_access", nil, fields)
	}
}

func (s *Service) handleUnresolvedItem(
	ctx context.Context,
	strategy GrantStrategy,
	req AccessRequest,
	fields map[string]any,
	yield func(string, error) bool,
) {
	objectName := strategy.ObjectName()
	if !yield(fmt.Sprintf("Sorry, I can't find the %s \"%s\".", objectName, req.SearchedName), nil) {
		return
	}
	names, err := strategy.ListItemNames(ctx, s.directory)
	if err != nil {
		s.logError(ctx, "inventory listing for fuzzy match failed", withField(fields, "error", err.Error()))
		yield("", s.mapError(err))
		return
	}
	match, ok := BestMatch(names, req.SearchedName, s.config.FuzzyMinSimilarity)
	if !ok {
		s.logInfo(ctx, "no similar "+objectName+" found", fields)
		return
	}
	s.logInfo(ctx, "similar "+objectName+" found", withField(fields, "suggestion", match))
	yield(fmt.Sprintf("Did you mean \"%s\"?", match), nil)
}

func (s *Service) emitPendingNotifications(
	ctx context.Context,
	strategy GrantStrategy,
	record GrantRequest,
	yield func(string, error) bool,
) {
	admins := strings.TrimSpace(s.config.AdminsChannel)
	if admins == "" {
		admins = strings.Join(s.config.AdminIDs, ", ")
	}
	confirmation := fmt.Sprintf(
		"Thanks %s, that is a valid request. Let me check with the team admins: %s\nYour request id is `%s`",
		record.Requester.Nick, admins, record.ID,
	)
	if !yield(confirmation, nil) {
		return
	}

	notice := fmt.Sprintf(
		"Hey I have an %s request from USER `%s` for %s `%s`! To approve, enter: **yes %s**",
		strategy.OperationDescription(),
		record.Requester.Nick,
		strings.ToUpper(strategy.ObjectName()),
		record.Resource.Name,
		record.ID,
	)
	// Delivery failure is reported but never rolls back the record; the
	// request stays approvable through the admin command.
	if err := s.notifyAdmins(ctx, notice); err != nil {
		s.logError(ctx, "admin notification failed", map[string]any{
			"request_id": record.ID,
			"error":      err.Error(),
		})
		yield(fmt.Sprintf(
			"I couldn't reach the admins just now, but your request `%s` is recorded and can still be approved.",
			record.ID,
		), nil)
	}
}

func (s *Service) notifyAdmins(ctx context.Context, text string) error {
	if s.notifier == nil {
		return internalError("core: notifier is not configured")
	}
	return s.notifier.SendToAdmins(ctx, s.config.AdminsChannel, s.config.AdminIDs, text)
}

// ApproveRequest is the admin entry point that resolves a pending request.
// Approving an already approved request is an idempotent success that never
// re-issues the grant.
func (s *Service) ApproveRequest(ctx context.Context, requestID string, approver string) MessageStream {
	return func(yield func(string, error) bool) {
		startedAt := time.Now()
		if s == nil {
			yield("", internalError("core: service is not configured"))
			return
		}
		fields := map[string]any{"request_id": requestID, "approver": approver}
		s.approveAndIssue(ctx, requestID, approver, false, yield)
		s.observeOperation(ctx, startedAt, "approve_request", nil, fields)
	}
}

// approveAndIssue transitions the record and performs the issuer call.
// autoGranted marks the policy-driven path, which also burns one
// auto-approve use for the requester.
func (s *Service) approveAndIssue(
	ctx context.Context,
	requestID string,
	granter string,
	autoGranted bool,
	yield func(string, error) bool,
) bool {
	record, already, err := s.registry.Approve(ctx, requestID, granter, autoGranted)
	if err != nil {
		return yield("", s.mapError(err))
	}
	if already {
		return yield(fmt.Sprintf("Request `%s` was already approved; nothing to do.", record.ID), nil)
	}

	if s.issuer == nil {
		return yield("", internalError("core: grant issuer is not configured"))
	}
	startFrom := s.now().Add(s.config.GrantStartDelay)
	validUntil := startFrom.Add(s.config.GrantDuration)
	if err := s.issuer.IssueGrant(ctx, record.Resource.ID, record.Account.ID, startFrom, validUntil); err != nil {
		// The approval already committed; the record is marked failed and
		// surfaced to admins for manual remediation.
		if _, markErr := s.registry.MarkFailed(ctx, record.ID, err.Error()); markErr != nil {
			s.logError(ctx, "marking request failed after issuer error", map[string]any{
				"request_id": record.ID,
				"error":      markErr.Error(),
			})
		}
		failure := fmt.Sprintf(
			"Request `%s` was approved but issuing the grant for `%s` failed: %s. Manual remediation needed.",
			record.ID, record.Resource.Name, err.Error(),
		)
		if notifyErr := s.notifyAdmins(ctx, failure); notifyErr != nil {
			s.logError(ctx, "admin failure notification failed", map[string]any{
				"request_id": record.ID,
				"error":      notifyErr.Error(),
			})
		}
		return yield("", s.mapError(err))
	}

	if autoGranted {
		if _, err := s.registry.IncrementAutoApproveUses(ctx, record.Requester.ID); err != nil {
			s.logError(ctx, "auto-approve counter increment failed", map[string]any{
				"request_id": record.ID,
				"error":      err.Error(),
			})
		}
	} else if s.notifier != nil {
		note := fmt.Sprintf(
			"Your request `%s` was approved by %s. Access to \"%s\" starts at %s and lasts %s.",
			record.ID, granter, record.Resource.Name,
			startFrom.Format(time.RFC3339), s.config.GrantDuration,
		)
		if err := s.notifier.SendToRequester(ctx, record.Requester.ID, note); err != nil {
			s.logError(ctx, "requester notification failed", map[string]any{
				"request_id": record.ID,
				"error":      err.Error(),
			})
		}
	}

	return yield(fmt.Sprintf(
		"Granting %s access to %s \"%s\" for %s.",
		record.Requester.Nick, string(record.Kind), record.Resource.Name, s.config.GrantDuration,
	), nil)
}

// DenyRequest is the symmetric admin entry point: PENDING -> DENIED with no
// issuer call.
func (s *Service) DenyRequest(ctx context.Context, requestID string, approver string, reason string) MessageStream {
	return func(yield func(string, error) bool) {
		startedAt := time.Now()
		if s == nil {
			yield("", internalError("core: service is not configured"))
			return
		}
		fields := map[string]any{"request_id": requestID, "approver": approver}
		record, err := s.registry.Deny(ctx, requestID, approver)
		if err != nil {
			s.observeOperation(ctx, startedAt, "deny_request", err, fields)
			yield("", s.mapError(err))
			return
		}
		if s.notifier != nil {
			note := fmt.Sprintf("Your request `%s` for \"%s\" was denied.", record.ID, record.Resource.Name)
			if strings.TrimSpace(reason) != "" {
				note += " Reason: " + strings.TrimSpace(reason)
			}
			if err := s.notifier.SendToRequester(ctx, record.Requester.ID, note); err != nil {
				s.logError(ctx, "requester notification failed", map[string]any{
					"request_id": record.ID,
					"error":      err.Error(),
				})
			}
		}
		s.observeOperation(ctx, startedAt, "deny_request", nil, fields)
		yield(fmt.Sprintf("Request `%s` denied.", record.ID), nil)
	}
}

// CollectMessages drains a message stream, returning the emitted messages
// and the first error encountered. Intended for transports and tests that
// prefer a strict result over lazy consumption.
func CollectMessages(stream MessageStream) ([]string, error) {
	var messages []string
	var firstErr error
	for msg, err := range stream {
		if err != nil {
			firstErr = err
			break
		}
		if msg != "" {
			messages = append(messages, msg)
		}
	}
	return messages, firstErr
}

func withField(fields map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out[key] = value
	return out
}
