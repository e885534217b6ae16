package gologger

import (
	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

// LoggerName is the namespace every access logger resolves under.
const LoggerName = "access"

// ResolveService resolves the provider/logger pair the access service and
// its adapters share. Precedence is provider > logger > nop, and the
// returned logger is never nil.
func ResolveService(provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	resolvedProvider, resolvedLogger := glog.Resolve(LoggerName, provider, logger)
	return resolvedProvider, glog.Ensure(resolvedLogger)
}

// JobLoggers resolves the access loggers and bridges them to the go-job
// contracts, for wiring the pending-reminder sweep into a queue worker.
func JobLoggers(provider glog.LoggerProvider, logger glog.Logger) (job.LoggerProvider, job.Logger) {
	resolvedProvider, resolvedLogger := ResolveService(provider, logger)
	var jobProvider job.LoggerProvider
	if resolvedProvider != nil {
		jobProvider = job.GoLoggerProvider(resolvedProvider)
	}
	return jobProvider, job.GoLogger(resolvedLogger)
}
