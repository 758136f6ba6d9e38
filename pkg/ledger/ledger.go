// Package ledger implements the Ledger (C7): an append-only,
// hash-chained event log with crash-safe single-line appends and a
// per-trace exclusive lock for concurrent writers.
//
// Grounded on the teacher's core/pkg/ledger/ledger.go (hash-chain-and-Verify
// structure: each entry's hash folds in sequence, type, data, and the prior
// entry's hash), adapted from an in-memory entries slice guarded by a
// sync.Mutex to a file-backed JSONL log guarded by an OS-level exclusive
// lockfile, since spec.md §4.7 requires the chain to survive process
// restarts and to serialize writers across process boundaries.
package ledger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Adjoshi06/chainofCommand/pkg/contracts"
	"github.com/Adjoshi06/chainofCommand/pkg/tracestore"
)

// ErrDuplicateEvent is returned when an event_id already appears in the log.
var ErrDuplicateEvent = errors.New("ledger: duplicate event_id")

// ErrChainMismatch is returned when an event's prev_event_hash does not
// match the trace's current head.
var ErrChainMismatch = errors.New("ledger: prev_event_hash does not match head")

// ErrLockTimeout is returned when the per-trace lockfile cannot be acquired
// within the bounded wait.
var ErrLockTimeout = errors.New("ledger: timed out acquiring trace lock")

// ErrTraceMismatch is returned when an event's trace_id is not the trace
// it is being appended to.
var ErrTraceMismatch = errors.New("ledger: event trace_id does not match trace")

const (
	lockPollInterval = 20 * time.Millisecond
	lockTimeout      = 5 * time.Second
)

// Ledger appends events to, and reads events from, trace directories
// managed by a tracestore.Store.
type Ledger struct {
	traces *tracestore.Store
}

// New wraps a trace store with append/read/recover operations.
func New(traces *tracestore.Store) *Ledger {
	return &Ledger{traces: traces}
}

// Append appends event to traceID's log under an exclusive per-trace lock,
// verifying the trace_id, prev_event_hash and duplicate-event-id
// preconditions before writing, then atomically updates the trace's head
// hash and counts.
func (l *Ledger) Append(traceID string, event contracts.ProtocolEvent) error {
	if event.TraceID != traceID {
		return fmt.Errorf("%w: event carries %s, appending to %s", ErrTraceMismatch, event.TraceID, traceID)
	}

	unlock, err := l.acquireLock(traceID)
	if err != nil {
		return err
	}
	defer unlock()

	session, err := l.traces.LoadTrace(traceID)
	if err != nil {
		return fmt.Errorf("ledger: load trace %s: %w", traceID, err)
	}

	if event.PrevEventHash != session.HeadEventHash {
		return fmt.Errorf("%w: trace %s head is %s, event carries %s", ErrChainMismatch, traceID, session.HeadEventHash, event.PrevEventHash)
	}

	events, _, err := l.readRaw(traceID)
	if err != nil {
		return err
	}
	for _, existing := range events {
		if existing.EventID == event.EventID {
			return fmt.Errorf("%w: %s", ErrDuplicateEvent, event.EventID)
		}
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("ledger: marshal event %s: %w", event.EventID, err)
	}

	f, err := os.OpenFile(l.traces.EventsPath(traceID), os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec
	if err != nil {
		return fmt.Errorf("ledger: open events log for %s: %w", traceID, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("ledger: append event %s: %w", event.EventID, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("ledger: sync events log for %s: %w", traceID, err)
	}

	session.HeadEventHash = event.EventHash
	session.EventCount++
	if len(event.Artifacts) > 0 {
		session.ArtifactCount += len(event.Artifacts)
	}
	return l.traces.SaveTrace(session)
}

// ReadEvents returns every well-formed event in traceID's log, in append
// order, recovering a malformed tail by default (recover_malformed_tail=true
// per spec.md §4.7): the first malformed line stops the parse, the events
// before it are returned, and the file itself is truncated to that point so
// a second read (or a process restart) converges on the same prefix without
// re-surfacing the error. Explicit Repair exists only to resync a trace's
// head hash and event count with the file once it is clean.
func (l *Ledger) ReadEvents(traceID string) ([]contracts.ProtocolEvent, error) {
	events, goodOffset, parseErr := l.readRaw(traceID)
	if parseErr == nil {
		return events, nil
	}
	if err := l.truncateMalformedTail(traceID, goodOffset); err != nil {
		return events, fmt.Errorf("ledger: recover malformed tail for %s: %w", traceID, err)
	}
	return events, nil
}

// truncateMalformedTail discards everything in traceID's events log past
// goodOffset, the byte offset ending the last cleanly parsed line.
func (l *Ledger) truncateMalformedTail(traceID string, goodOffset int64) error {
	path := l.traces.EventsPath(traceID)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("ledger: stat events log for %s: %w", traceID, err)
	}
	if info.Size() == goodOffset {
		return nil
	}
	if err := os.Truncate(path, goodOffset); err != nil {
		return fmt.Errorf("ledger: truncate events log for %s: %w", traceID, err)
	}
	return nil
}

// readRaw parses events.jsonl, returning the parsed events and the byte
// offset up to which the file parsed cleanly (used by Repair to truncate).
func (l *Ledger) readRaw(traceID string) ([]contracts.ProtocolEvent, int64, error) {
	f, err := os.Open(l.traces.EventsPath(traceID)) //nolint:gosec
	if err != nil {
		return nil, 0, fmt.Errorf("ledger: open events log for %s: %w", traceID, err)
	}
	defer f.Close()

	var events []contracts.ProtocolEvent
	var goodOffset int64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			goodOffset += int64(len(line)) + 1
			continue
		}
		var event contracts.ProtocolEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return events, goodOffset, fmt.Errorf("ledger: malformed line in %s at offset %d: %w", traceID, goodOffset, err)
		}
		events = append(events, event)
		goodOffset += int64(len(line)) + 1
	}
	if err := scanner.Err(); err != nil {
		return events, goodOffset, fmt.Errorf("ledger: scan events log for %s: %w", traceID, err)
	}
	return events, goodOffset, nil
}

// Repair truncates traceID's events log at the first line that fails to
// parse, wherever it is, discarding that line and everything after it (if
// ReadEvents has not already done so), and recomputes the trace's head hash,
// event count and artifact count from what remains, resyncing
// trace.meta.json with a file that crashed mid-append or was recovered out
// from under it. It refuses only when the very first line is malformed. It
// does not take or check the per-trace append lock.
func (l *Ledger) Repair(traceID string) (truncatedBytes int64, err error) {
	path := l.traces.EventsPath(traceID)
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("ledger: stat events log for %s: %w", traceID, err)
	}

	events, goodOffset, parseErr := l.readRaw(traceID)
	if parseErr != nil && goodOffset == 0 && len(events) == 0 {
		return 0, fmt.Errorf("ledger: cannot repair %s: first line is malformed: %w", traceID, parseErr)
	}

	truncatedBytes = info.Size() - goodOffset
	if truncatedBytes > 0 {
		if err := l.truncateMalformedTail(traceID, goodOffset); err != nil {
			return 0, err
		}
	}

	session, err := l.traces.LoadTrace(traceID)
	if err != nil {
		return truncatedBytes, fmt.Errorf("ledger: load trace %s: %w", traceID, err)
	}
	session.EventCount = len(events)
	session.ArtifactCount = 0
	for _, e := range events {
		session.ArtifactCount += len(e.Artifacts)
	}
	session.HeadEventHash = contracts.GenesisPrevHash
	if len(events) > 0 {
		session.HeadEventHash = events[len(events)-1].EventHash
	}
	if err := l.traces.SaveTrace(session); err != nil {
		return truncatedBytes, err
	}
	return truncatedBytes, nil
}
