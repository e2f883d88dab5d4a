package logger

import liberr "github.com/icap-oss/icapd/errors"

const (
	CodeFileHookOpen liberr.CodeError = liberr.MinPkgLogger + iota
	CodeSyslogDial
	CodeInvalidLevel
)

func init() {
	liberr.RegisterIdFctMessage(CodeFileHookOpen, func(code liberr.CodeError) string {
		switch code {
		case CodeFileHookOpen:
			return "failed to open log file"
		case CodeSyslogDial:
			return "failed to dial syslog daemon"
		case CodeInvalidLevel:
			return "invalid log level"
		default:
			return liberr.UnknownMessage
		}
	})
}
