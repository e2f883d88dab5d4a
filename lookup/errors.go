package lookup

import liberr "github.com/icap-oss/icapd/errors"

const (
	CodeOpenFile liberr.CodeError = liberr.MinPkgLookup + iota
	CodeParseLine
	CodeUnknownBackend
	CodeInvalidRegex
	CodeDuplicateBackend
)

func init() {
	liberr.RegisterIdFctMessage(CodeOpenFile, func(code liberr.CodeError) string {
		switch code {
		case CodeOpenFile:
			return "failed to open lookup-table file"
		case CodeParseLine:
			return "failed to parse lookup-table line"
		case CodeUnknownBackend:
			return "unknown lookup-table backend"
		case CodeInvalidRegex:
			return "invalid regular expression key"
		case CodeDuplicateBackend:
			return "backend name already registered"
		default:
			return liberr.UnknownMessage
		}
	})
}
