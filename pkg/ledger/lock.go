package ledger

import (
	"fmt"
	"os"
	"time"
)

// acquireLock takes an exclusive per-trace append lock via atomic exclusive
// file creation, spinning with a bounded delay until lockTimeout elapses.
// Grounded on spec.md §5's requirement that concurrent Append calls on the
// same trace serialize rather than race; the teacher's Ledger instead relies
// on an in-process sync.Mutex, which does not extend across processes, so
// this uses an OS-visible lockfile instead.
func (l *Ledger) acquireLock(traceID string) (unlock func(), err error) {
	path := l.traces.Dir(traceID) + ".lock"
	deadline := time.Now().Add(lockTimeout)

	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644) //nolint:gosec
		if err == nil {
			pid := fmt.Sprintf("%d\n", os.Getpid())
			_, _ = f.WriteString(pid)
			_ = f.Close()
			return func() { _ = os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("ledger: create lock %s: %w", path, err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: trace %s", ErrLockTimeout, traceID)
		}
		time.Sleep(lockPollInterval)
	}
}
