// Package shm implements the three shared-memory backing schemes the spec
// allows: POSIX shm_open-style named objects under /dev/shm, SysV shmget
// segments, and anonymous mmap for single-process mode. All three are
// exposed behind one Region interface so the child registry and statistics
// block never know which scheme is in effect.
package shm

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	liberr "github.com/icap-oss/icapd/errors"
)

type Scheme int

const (
	SchemePosix Scheme = iota
	SchemeSysV
	SchemeAnon
)

const (
	CodeCreateFailed liberr.CodeError = liberr.MinPkgShm + iota
	CodeAttachFailed
)

func init() {
	liberr.RegisterIdFctMessage(CodeCreateFailed, func(code liberr.CodeError) string {
		switch code {
		case CodeCreateFailed:
			return "shared memory region create failed"
		case CodeAttachFailed:
			return "shared memory region attach failed"
		default:
			return liberr.UnknownMessage
		}
	})
}

// Region is a named block of memory addressable across process boundaries.
// Offset/length pairs into Bytes() are the only inter-process references
// ever handed out; no raw pointer crosses a process boundary.
type Region interface {
	Bytes() []byte
	Name() string
	// ID is the platform handle (SysV shmid, or the posix path) a child
	// process needs on its command line to Attach to this same region.
	ID() string
	Detach() error
	Destroy() error
}

// Create allocates a fresh region of size bytes under the given scheme.
// name is used as-is for SchemePosix (a leading "/" is added if missing)
// and as a human label for SchemeSysV and SchemeAnon.
func Create(scheme Scheme, name string, size int) (Region, error) {
	switch scheme {
	case SchemePosix:
		return createPosix(name, size)
	case SchemeSysV:
		return createSysV(name, size)
	case SchemeAnon:
		return createAnon(name, size)
	default:
		return nil, CodeCreateFailed.Error(nil)
	}
}

// Attach opens a region a monitor process already Created, using the id it
// printed on the command line. Anonymous regions cannot be attached by a
// second process (they only exist for single-process mode), so SchemeAnon
// is rejected here.
func Attach(scheme Scheme, name, id string, size int) (Region, error) {
	switch scheme {
	case SchemePosix:
		return attachPosix(name, size)
	case SchemeSysV:
		return attachSysV(id, size)
	default:
		return nil, CodeAttachFailed.Error(nil)
	}
}

type posixRegion struct {
	name string
	path string
	buf  []byte
}

func posixPath(name string) string {
	if len(name) == 0 || name[0] != '/' {
		name = "/" + name
	}
	return "/dev/shm" + name
}

func createPosix(name string, size int) (Region, error) {
	path := posixPath(name)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, CodeCreateFailed.Error(err)
	}
	defer f.Close()
	if err := f.Truncate(int64(size)); err != nil {
		return nil, CodeCreateFailed.Error(err)
	}
	buf, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, CodeCreateFailed.Error(err)
	}
	return &posixRegion{name: name, path: path, buf: buf}, nil
}

func attachPosix(name string, size int) (Region, error) {
	path := posixPath(name)
	f, err := os.OpenFile(path, os.O_RDWR, 0600)
	if err != nil {
		return nil, CodeAttachFailed.Error(err)
	}
	defer f.Close()
	buf, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, CodeAttachFailed.Error(err)
	}
	return &posixRegion{name: name, path: path, buf: buf}, nil
}

func (r *posixRegion) Bytes() []byte { return r.buf }
func (r *posixRegion) Name() string  { return r.name }
func (r *posixRegion) ID() string    { return r.path }

func (r *posixRegion) Detach() error {
	return unix.Munmap(r.buf)
}

func (r *posixRegion) Destroy() error {
	_ = unix.Munmap(r.buf)
	return os.Remove(r.path)
}

type sysvRegion struct {
	name string
	id   int
	buf  []byte
}

func createSysV(name string, size int) (Region, error) {
	id, _, errno := unix.Syscall(unix.SYS_SHMGET, uintptr(unix.IPC_PRIVATE), uintptr(size), uintptr(unix.IPC_CREAT|0600))
	if errno != 0 {
		return nil, CodeCreateFailed.Error(errno)
	}
	return attachSysVID(name, int(id), size)
}

func attachSysV(idStr string, size int) (Region, error) {
	var id int
	if _, err := fmt.Sscanf(idStr, "%d", &id); err != nil {
		return nil, CodeAttachFailed.Error(err)
	}
	return attachSysVID("", id, size)
}

func attachSysVID(name string, id, size int) (Region, error) {
	addr, _, errno := unix.Syscall(unix.SYS_SHMAT, uintptr(id), 0, 0)
	if errno != 0 {
		return nil, CodeAttachFailed.Error(errno)
	}
	buf := unsafeSlice(addr, size)
	return &sysvRegion{name: name, id: id, buf: buf}, nil
}

func (r *sysvRegion) Bytes() []byte { return r.buf }
func (r *sysvRegion) Name() string  { return r.name }
func (r *sysvRegion) ID() string    { return fmt.Sprintf("%d", r.id) }

func (r *sysvRegion) Detach() error {
	_, _, errno := unix.Syscall(unix.SYS_SHMDT, uintptr(addrOf(r.buf)), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func (r *sysvRegion) Destroy() error {
	_ = r.Detach()
	_, _, errno := unix.Syscall(unix.SYS_SHMCTL, uintptr(r.id), uintptr(unix.IPC_RMID), 0)
	if errno != 0 {
		return errno
	}
	return nil
}

type anonRegion struct {
	name string
	buf  []byte
}

func createAnon(name string, size int) (Region, error) {
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, CodeCreateFailed.Error(err)
	}
	return &anonRegion{name: name, buf: buf}, nil
}

func (r *anonRegion) Bytes() []byte  { return r.buf }
func (r *anonRegion) Name() string   { return r.name }
func (r *anonRegion) ID() string     { return "" }
func (r *anonRegion) Detach() error  { return nil }
func (r *anonRegion) Destroy() error { return unix.Munmap(r.buf) }
