package config

import liberr "github.com/icap-oss/icapd/errors"

const (
	CodeReadConfig liberr.CodeError = liberr.MinPkgConfig + iota
	CodeDecodeConfig
	CodeInvalidListener
	CodeWatchConfig
	CodeInvalidValue
)

func init() {
	liberr.RegisterIdFctMessage(CodeReadConfig, func(code liberr.CodeError) string {
		switch code {
		case CodeReadConfig:
			return "failed to read config file"
		case CodeDecodeConfig:
			return "failed to decode config into struct"
		case CodeInvalidListener:
			return "invalid listener specification"
		case CodeWatchConfig:
			return "failed to watch config file for changes"
		case CodeInvalidValue:
			return "invalid configuration value"
		default:
			return liberr.UnknownMessage
		}
	})
}
