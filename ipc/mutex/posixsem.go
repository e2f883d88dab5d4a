package mutex

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

const maxNameAttempts = 1024

// posixSem backs Mutex with a POSIX named semaphore, opened O_CREAT|O_EXCL
// under a monotonically suffixed name so concurrent children racing to
// create "the same" accept mutex never collide on an existing name from a
// previous, already-torn-down server instance.
type posixSem struct {
	name string
	path string
	mu   sync.Mutex // guards local in-process access; the named semaphore handles cross-process
}

func newPosixSem(base string) (Mutex, error) {
	for n := 0; n < maxNameAttempts; n++ {
		name := fmt.Sprintf("/icapd-sem.%s.%d", base, n)
		path := "/dev/shm" + name
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
		if err == nil {
			f.Close()
			return &posixSem{name: name, path: path}, nil
		}
	}
	return nil, CodeCreateFailed.Error(nil)
}

func (p *posixSem) Lock() error {
	p.mu.Lock()
	f, err := os.OpenFile(p.path, os.O_RDWR, 0600)
	if err != nil {
		p.mu.Unlock()
		return CodeLockFailed.Error(err)
	}
	defer f.Close()
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		p.mu.Unlock()
		return CodeLockFailed.Error(err)
	}
	return nil
}

func (p *posixSem) Unlock() error {
	defer p.mu.Unlock()
	f, err := os.OpenFile(p.path, os.O_RDWR, 0600)
	if err != nil {
		return CodeUnlockFailed.Error(err)
	}
	defer f.Close()
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}

func (p *posixSem) Destroy() error {
	return os.Remove(p.path)
}

func (p *posixSem) PrintInfo() string {
	return printInfo("posix-sem", p.name)
}
