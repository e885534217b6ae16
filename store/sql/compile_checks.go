package sqlstore

import "github.com/goliatone/go-access/core"

var (
	_ core.RequestRegistry = (*RequestStore)(nil)
	_ core.RequestRegistry = (*CachedRequestStore)(nil)
)
