package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ RequestRegistry = (*MemoryRequestRegistry)(nil)
	_ GrantStrategy   = ResourceAccessStrategy{}
	_ GrantStrategy   = RoleAccessStrategy{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
