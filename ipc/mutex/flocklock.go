package mutex

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// flockMutex backs Mutex with a whole-file POSIX advisory lock: a plain
// file under /tmp held open for the life of the mutex, locked with
// fcntl(F_SETLKW) and unlocked with F_SETLK(F_UNLCK), the fallback scheme
// for filesystems or kernels where named semaphores are unavailable.
type flockMutex struct {
	name string
	path string
	file *os.File
	mu   sync.Mutex
}

func newFlock(base string) (Mutex, error) {
	path := fmt.Sprintf("/tmp/icapd-lock.%s.%d", base, os.Getpid())
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, CodeCreateFailed.Error(err)
	}
	return &flockMutex{name: base, path: path, file: f}, nil
}

func (m *flockMutex) Lock() error {
	m.mu.Lock()
	lock := unix.Flock_t{
		Type:   unix.F_WRLCK,
		Whence: int16(os.SEEK_SET),
	}
	if err := unix.FcntlFlock(m.file.Fd(), unix.F_SETLKW, &lock); err != nil {
		m.mu.Unlock()
		return CodeLockFailed.Error(err)
	}
	return nil
}

func (m *flockMutex) Unlock() error {
	defer m.mu.Unlock()
	lock := unix.Flock_t{
		Type:   unix.F_UNLCK,
		Whence: int16(os.SEEK_SET),
	}
	if err := unix.FcntlFlock(m.file.Fd(), unix.F_SETLK, &lock); err != nil {
		return CodeUnlockFailed.Error(err)
	}
	return nil
}

func (m *flockMutex) Destroy() error {
	_ = m.file.Close()
	return os.Remove(m.path)
}

func (m *flockMutex) PrintInfo() string {
	return printInfo("flock", m.path)
}
