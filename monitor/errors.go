package monitor

import (
	liberr "github.com/icap-oss/icapd/errors"
)

const (
	CodePIDFileLocked liberr.CodeError = liberr.MinPkgMonitor + iota
	CodePIDFileWrite
	CodeSpawnFailed
	CodeListenFailed
	CodeReconfigureFailed
	CodeShutdownFailed
	CodeFIFOCreate
	CodeFIFOOpen
)

func init() {
	liberr.RegisterIdFctMessage(CodePIDFileLocked, func(code liberr.CodeError) string {
		switch code {
		case CodePIDFileLocked:
			return "pid file already held by a live process"
		case CodePIDFileWrite:
			return "pid file write failed"
		case CodeSpawnFailed:
			return "child spawn failed"
		case CodeListenFailed:
			return "listener bind failed"
		case CodeReconfigureFailed:
			return "reconfigure failed"
		case CodeShutdownFailed:
			return "shutdown failed"
		case CodeFIFOCreate:
			return "control fifo create failed"
		case CodeFIFOOpen:
			return "control fifo open failed"
		default:
			return liberr.UnknownMessage
		}
	})
}
