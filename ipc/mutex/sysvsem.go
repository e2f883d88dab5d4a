package mutex

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// sembuf mirrors struct sembuf from <sys/sem.h>; golang.org/x/sys/unix does
// not export a portable Semop wrapper with a matching struct on every
// platform, so it is defined here for the fields semop(2) actually reads.
type sembuf struct {
	SemNum uint16
	SemOp  int16
	SemFlg int16
}

type sysvSem struct {
	name string
	id   int
	mu   sync.Mutex
}

func newSysVSem(base string) (Mutex, error) {
	id, _, errno := unix.Syscall(unix.SYS_SEMGET, uintptr(unix.IPC_PRIVATE), 1, uintptr(unix.IPC_CREAT|0600))
	if errno != 0 {
		return nil, CodeCreateFailed.Error(errno)
	}
	return &sysvSem{name: base, id: int(id)}, nil
}

func (s *sysvSem) semop(ops []sembuf) error {
	_, _, errno := unix.Syscall(unix.SYS_SEMOP, uintptr(s.id), uintptr(unsafe.Pointer(&ops[0])), uintptr(len(ops)))
	if errno != 0 {
		return errno
	}
	return nil
}

// Lock waits for the semaphore to reach zero, then increments it: the
// spec's "wait==0; then inc" pair.
func (s *sysvSem) Lock() error {
	s.mu.Lock()
	err := s.semop([]sembuf{
		{SemNum: 0, SemOp: 0, SemFlg: 0},
		{SemNum: 0, SemOp: 1, SemFlg: 0},
	})
	if err != nil {
		s.mu.Unlock()
		return CodeLockFailed.Error(err)
	}
	return nil
}

// Unlock decrements with NOWAIT|UNDO so a crashed holder's decrement is
// rolled back by the kernel on process exit.
func (s *sysvSem) Unlock() error {
	defer s.mu.Unlock()
	err := s.semop([]sembuf{
		{SemNum: 0, SemOp: -1, SemFlg: unix.IPC_NOWAIT | unix.SEM_UNDO},
	})
	if err != nil {
		return CodeUnlockFailed.Error(err)
	}
	return nil
}

func (s *sysvSem) Destroy() error {
	_, _, errno := unix.Syscall(unix.SYS_SEMCTL, uintptr(s.id), 0, uintptr(unix.IPC_RMID))
	if errno != 0 {
		return errno
	}
	return nil
}

func (s *sysvSem) PrintInfo() string {
	return printInfo("sysv-sem", fmt.Sprintf("%s(id=%d)", s.name, s.id))
}
