// Package mutex implements the three inter-process mutex schemes: a POSIX
// named semaphore, a SysV semaphore, and a POSIX advisory file lock. The
// scheme is chosen once at config-parse time and frozen into the registry
// before the first child is spawned, per the "cross-process mutex schemes
// as a pick-one-at-init global" design note — children inherit the choice
// by value (the Scheme is in the config they're exec'd with), never by a
// package-level lookup.
package mutex

import (
	"fmt"

	liberr "github.com/icap-oss/icapd/errors"
)

type Scheme int

const (
	SchemePosixSem Scheme = iota
	SchemeSysVSem
	SchemeFlock
)

const (
	CodeCreateFailed liberr.CodeError = liberr.MinPkgMutex + iota
	CodeLockFailed
	CodeUnlockFailed
)

func init() {
	liberr.RegisterIdFctMessage(CodeCreateFailed, func(code liberr.CodeError) string {
		switch code {
		case CodeCreateFailed:
			return "inter-process mutex create failed"
		case CodeLockFailed:
			return "inter-process mutex lock failed"
		case CodeUnlockFailed:
			return "inter-process mutex unlock failed"
		default:
			return liberr.UnknownMessage
		}
	})
}

// Mutex is the capability every scheme implements. Name is kept on the
// value (<=64 bytes like the spec's C struct) purely for PrintInfo; it has
// no behavioral role in Go since the scheme is selected by type, not by a
// vtable pointer.
type Mutex interface {
	Lock() error
	Unlock() error
	Destroy() error
	PrintInfo() string
}

// New constructs a Mutex of the given scheme, retrying name collisions for
// the POSIX-named-semaphore scheme the way sem_open(O_CREAT|O_EXCL) does in
// the spec: monotonic suffix up to maxNameAttempts.
func New(scheme Scheme, baseName string) (Mutex, error) {
	switch scheme {
	case SchemePosixSem:
		return newPosixSem(baseName)
	case SchemeSysVSem:
		return newSysVSem(baseName)
	case SchemeFlock:
		return newFlock(baseName)
	default:
		return nil, CodeCreateFailed.Error(nil)
	}
}

func printInfo(scheme, name string) string {
	return fmt.Sprintf("mutex[%s]:%s", scheme, name)
}
