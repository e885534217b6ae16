package core

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// tag keys promoted from log fields onto metric series
var metricTagKeys = []string{"grant_kind", "request_id", "requester_id"}

// observeOperation emits one log line and one counter/histogram pair for a
// finished workflow operation.
func (s *Service) observeOperation(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
) {
	if s == nil {
		return
	}
	operation = strings.TrimSpace(strings.ToLower(operation))
	if operation == "" {
		operation = "unknown"
	}
	elapsed := time.Since(startedAt)

	entry := maps.Clone(fields)
	if entry == nil {
		entry = map[string]any{}
	}
	entry["event_type"] = operation
	entry["duration_ms"] = elapsed.Milliseconds()

	tags := map[string]string{"operation": operation, "status": "success"}
	if err != nil {
		entry["status"] = "failure"
		entry["error"] = err.Error()
		tags["status"] = "failure"
	} else {
		entry["status"] = "success"
	}
	for _, key := range metricTagKeys {
		raw, ok := entry[key]
		if !ok {
			continue
		}
		if value := strings.TrimSpace(fmt.Sprint(raw)); value != "" && value != "<nil>" {
			tags[key] = value
		}
	}

	if s.metricsRecorder != nil {
		s.metricsRecorder.IncCounter(ctx, "access."+operation+".total", 1, cloneTags(tags))
		s.metricsRecorder.ObserveHistogram(
			ctx,
			"access."+operation+".duration_ms",
			float64(elapsed.Milliseconds()),
			cloneTags(tags),
		)
	}

	if err != nil {
		s.logError(ctx, operation+" failed", entry)
		return
	}
	s.logInfo(ctx, operation+" succeeded", entry)
}

func (s *Service) logInfo(ctx context.Context, message string, fields map[string]any) {
	s.emit(ctx, false, message, fields)
}

func (s *Service) logError(ctx context.Context, message string, fields map[string]any) {
	s.emit(ctx, true, message, fields)
}

func (s *Service) emit(ctx context.Context, isError bool, message string, fields map[string]any) {
	if s == nil || s.logger == nil {
		return
	}
	logger := s.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(maps.Clone(fields))
	}
	args := sortedArgs(fields)
	if isError {
		logger.Error(message, args...)
		return
	}
	logger.Info(message, args...)
}

// sortedArgs flattens fields to key/value pairs in deterministic order.
func sortedArgs(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := slices.Sorted(maps.Keys(fields))
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}
