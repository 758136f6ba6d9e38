// Package tracestore implements the Trace Store (C6): per-trace directory
// layout (trace.meta.json, events.jsonl, reports/, verification.latest.json)
// and the lookups the CLI and read API need to resolve a trace by ID.
//
// Grounded on the teacher's core/pkg/ledger/ledger.go for the
// metadata-plus-append-log split (a Ledger's in-memory entries slice here
// becomes a directory with an append-only events.jsonl), and on
// core/cmd/helm/verify_cmd.go for the reports/ + "latest" pointer-file
// convention used for verification reports.
package tracestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Adjoshi06/chainofCommand/pkg/contracts"
)

// ErrNotFound is returned when a trace ID has no directory on disk.
var ErrNotFound = errors.New("tracestore: trace not found")

// Store roots the trace directory tree at baseDir (conventionally
// <COC_HOME>/traces).
type Store struct {
	baseDir string
}

// Open opens (creating if absent) a trace store rooted at baseDir.
func Open(baseDir string) (*Store, error) {
	//nolint:gosec // G301: trace directory tree is not secret
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("tracestore: mkdir %s: %w", baseDir, err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Dir returns the directory for traceID, whether or not it exists yet.
func (s *Store) Dir(traceID string) string {
	return filepath.Join(s.baseDir, traceID)
}

func (s *Store) metaPath(traceID string) string {
	return filepath.Join(s.Dir(traceID), "trace.meta.json")
}

// EventsPath returns the path to a trace's append-only event log.
func (s *Store) EventsPath(traceID string) string {
	return filepath.Join(s.Dir(traceID), "events.jsonl")
}

// ReportsDir returns the directory holding a trace's verification reports.
func (s *Store) ReportsDir(traceID string) string {
	return filepath.Join(s.Dir(traceID), "reports")
}

func (s *Store) latestReportPath(traceID string) string {
	return filepath.Join(s.Dir(traceID), "verification.latest.json")
}

// CreateTrace initializes a new trace directory and writes its initial
// metadata. Returns ErrNotFound's sibling condition as a plain error if the
// trace already exists, since re-initializing silently would corrupt an
// in-flight chain.
func (s *Store) CreateTrace(session contracts.TraceSession) error {
	dir := s.Dir(session.TraceID)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("tracestore: trace %s already exists", session.TraceID)
	}
	//nolint:gosec // G301: trace directory tree is not secret
	if err := os.MkdirAll(s.ReportsDir(session.TraceID), 0o755); err != nil {
		return fmt.Errorf("tracestore: mkdir %s: %w", dir, err)
	}
	if err := s.SaveTrace(session); err != nil {
		return err
	}
	if _, err := os.OpenFile(s.EventsPath(session.TraceID), os.O_CREATE|os.O_WRONLY, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("tracestore: create events log: %w", err)
	}
	return nil
}

// LoadTrace reads a trace's metadata record.
func (s *Store) LoadTrace(traceID string) (contracts.TraceSession, error) {
	data, err := os.ReadFile(s.metaPath(traceID))
	if errors.Is(err, os.ErrNotExist) {
		return contracts.TraceSession{}, ErrNotFound
	}
	if err != nil {
		return contracts.TraceSession{}, fmt.Errorf("tracestore: read %s: %w", traceID, err)
	}
	var session contracts.TraceSession
	if err := json.Unmarshal(data, &session); err != nil {
		return contracts.TraceSession{}, fmt.Errorf("tracestore: parse %s: %w", traceID, err)
	}
	return session, nil
}

// SaveTrace writes session to its metadata file, atomically.
func (s *Store) SaveTrace(session contracts.TraceSession) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("tracestore: marshal %s: %w", session.TraceID, err)
	}
	tmp := s.metaPath(session.TraceID) + ".tmp"
	//nolint:gosec // G306: trace metadata is not secret
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("tracestore: write %s: %w", tmp, err)
	}
	return os.Rename(tmp, s.metaPath(session.TraceID))
}

// UpdateStatus loads, mutates, and persists a trace's status in one step.
func (s *Store) UpdateStatus(traceID string, status contracts.TraceStatus) error {
	session, err := s.LoadTrace(traceID)
	if err != nil {
		return err
	}
	session.Status = status
	if status != contracts.TraceRunning && session.EndedAt == "" {
		session.EndedAt = contracts.NowISO()
	}
	return s.SaveTrace(session)
}

// ListTraceIDs returns every trace ID present in the store, sorted (ULIDs
// sort lexicographically by creation time).
func (s *Store) ListTraceIDs() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("tracestore: readdir %s: %w", s.baseDir, err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ListTraces loads every trace's metadata record, in ID order.
func (s *Store) ListTraces() ([]contracts.TraceSession, error) {
	ids, err := s.ListTraceIDs()
	if err != nil {
		return nil, err
	}
	sessions := make([]contracts.TraceSession, 0, len(ids))
	for _, id := range ids {
		session, err := s.LoadTrace(id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// ResolveTraceID accepts a bare trace ID, a path to a trace directory, or a
// path to a file inside one, and returns the canonical trace ID. This
// mirrors spec.md §4.6's CLI convenience of accepting any of the three.
func (s *Store) ResolveTraceID(input string) (string, error) {
	if contracts.IsULID(input) {
		if _, err := os.Stat(s.Dir(input)); err == nil {
			return input, nil
		}
		return "", ErrNotFound
	}

	info, err := os.Stat(input)
	if err != nil {
		return "", ErrNotFound
	}
	dir := input
	if !info.IsDir() {
		dir = filepath.Dir(input)
	}
	traceID := filepath.Base(dir)
	if !contracts.IsULID(traceID) {
		return "", ErrNotFound
	}
	if _, err := os.Stat(s.Dir(traceID)); err != nil {
		return "", ErrNotFound
	}
	return traceID, nil
}

// SaveReport persists a verification report both under reports/<id>.json and
// as the trace's new verification.latest.json pointer.
func (s *Store) SaveReport(traceID string, report contracts.VerificationReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("tracestore: marshal report %s: %w", report.ReportID, err)
	}
	reportPath := filepath.Join(s.ReportsDir(traceID), report.ReportID+".json")
	//nolint:gosec // G306: verification reports are not secret
	if err := os.WriteFile(reportPath, data, 0o644); err != nil {
		return fmt.Errorf("tracestore: write report %s: %w", reportPath, err)
	}
	tmp := s.latestReportPath(traceID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("tracestore: write latest report: %w", err)
	}
	return os.Rename(tmp, s.latestReportPath(traceID))
}

// LoadLatestReport returns the most recently written verification report.
func (s *Store) LoadLatestReport(traceID string) (contracts.VerificationReport, error) {
	data, err := os.ReadFile(s.latestReportPath(traceID))
	if errors.Is(err, os.ErrNotExist) {
		return contracts.VerificationReport{}, ErrNotFound
	}
	if err != nil {
		return contracts.VerificationReport{}, fmt.Errorf("tracestore: read latest report: %w", err)
	}
	var report contracts.VerificationReport
	if err := json.Unmarshal(data, &report); err != nil {
		return contracts.VerificationReport{}, fmt.Errorf("tracestore: parse latest report: %w", err)
	}
	return report, nil
}

// LoadReport returns a specific report by ID.
func (s *Store) LoadReport(traceID, reportID string) (contracts.VerificationReport, error) {
	data, err := os.ReadFile(filepath.Join(s.ReportsDir(traceID), reportID+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return contracts.VerificationReport{}, ErrNotFound
	}
	if err != nil {
		return contracts.VerificationReport{}, fmt.Errorf("tracestore: read report %s: %w", reportID, err)
	}
	var report contracts.VerificationReport
	if err := json.Unmarshal(data, &report); err != nil {
		return contracts.VerificationReport{}, fmt.Errorf("tracestore: parse report %s: %w", reportID, err)
	}
	return report, nil
}
