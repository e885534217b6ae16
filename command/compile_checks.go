package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[RequestAccessMessage] = (*RequestAccessCommand)(nil)
	_ gocmd.Commander[ApproveGrantMessage]  = (*ApproveGrantCommand)(nil)
	_ gocmd.Commander[DenyGrantMessage]     = (*DenyGrantCommand)(nil)
)
