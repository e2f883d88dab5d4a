package child

import liberr "github.com/icap-oss/icapd/errors"

const (
	CodeAcceptFailed liberr.CodeError = liberr.MinPkgChild + iota
	CodeNoFreeServers
	CodeRequestBuildFailed
)

func init() {
	liberr.RegisterIdFctMessage(CodeAcceptFailed, func(code liberr.CodeError) string {
		switch code {
		case CodeAcceptFailed:
			return "accept failed"
		case CodeNoFreeServers:
			return "connection accepted with no free worker to hand it to"
		case CodeRequestBuildFailed:
			return "failed to build or recycle a request object"
		default:
			return liberr.UnknownMessage
		}
	})
}
