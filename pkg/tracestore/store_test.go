package tracestore

import (
	"path/filepath"
	"testing"

	"github.com/Adjoshi06/chainofCommand/pkg/contracts"
	"github.com/stretchr/testify/require"
)

func newTestSession(traceID string) contracts.TraceSession {
	return contracts.NewTraceSession(traceID, "01TASK0000000000000000000A", []contracts.Role{contracts.RolePlanner, contracts.RoleExecutor}, contracts.PolicyDefault)
}

func TestCreateAndLoadTrace(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	session := newTestSession("01TRACE000000000000000000A")
	require.NoError(t, store.CreateTrace(session))

	loaded, err := store.LoadTrace(session.TraceID)
	require.NoError(t, err)
	require.Equal(t, session.TraceID, loaded.TraceID)
	require.Equal(t, contracts.TraceRunning, loaded.Status)

	require.FileExists(t, store.EventsPath(session.TraceID))
	require.DirExists(t, store.ReportsDir(session.TraceID))
}

func TestCreateTrace_RejectsDuplicate(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	session := newTestSession("01TRACE000000000000000000B")
	require.NoError(t, store.CreateTrace(session))
	err = store.CreateTrace(session)
	require.Error(t, err)
}

func TestUpdateStatus_SetsEndedAt(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	session := newTestSession("01TRACE000000000000000000C")
	require.NoError(t, store.CreateTrace(session))

	require.NoError(t, store.UpdateStatus(session.TraceID, contracts.TraceSucceeded))

	loaded, err := store.LoadTrace(session.TraceID)
	require.NoError(t, err)
	require.Equal(t, contracts.TraceSucceeded, loaded.Status)
	require.NotEmpty(t, loaded.EndedAt)
}

func TestListTraceIDsAndTraces(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.CreateTrace(newTestSession("01TRACE000000000000000000D")))
	require.NoError(t, store.CreateTrace(newTestSession("01TRACE000000000000000000E")))

	ids, err := store.ListTraceIDs()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"01TRACE000000000000000000D", "01TRACE000000000000000000E"}, ids)

	sessions, err := store.ListTraces()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
}

func TestResolveTraceID_AcceptsIDDirectoryOrFile(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	session := newTestSession("01TRACE000000000000000000F")
	require.NoError(t, store.CreateTrace(session))

	byID, err := store.ResolveTraceID(session.TraceID)
	require.NoError(t, err)
	require.Equal(t, session.TraceID, byID)

	byDir, err := store.ResolveTraceID(store.Dir(session.TraceID))
	require.NoError(t, err)
	require.Equal(t, session.TraceID, byDir)

	byFile, err := store.ResolveTraceID(filepath.Join(store.Dir(session.TraceID), "trace.meta.json"))
	require.NoError(t, err)
	require.Equal(t, session.TraceID, byFile)
}

func TestResolveTraceID_UnknownIDReturnsErrNotFound(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	_, err = store.ResolveTraceID("01ZZZZZZZZZZZZZZZZZZZZZZZZ")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSaveAndLoadReport(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	session := newTestSession("01TRACE000000000000000000G")
	require.NoError(t, store.CreateTrace(session))

	report := contracts.VerificationReport{
		ReportID:           "01REPORT00000000000000000A",
		TraceID:            session.TraceID,
		VerifiedAt:         contracts.NowISO(),
		VerificationStatus: contracts.StatusPass,
		PolicyProfile:      contracts.PolicyDefault,
	}
	require.NoError(t, store.SaveReport(session.TraceID, report))

	latest, err := store.LoadLatestReport(session.TraceID)
	require.NoError(t, err)
	require.Equal(t, report.ReportID, latest.ReportID)

	byID, err := store.LoadReport(session.TraceID, report.ReportID)
	require.NoError(t, err)
	require.Equal(t, report.ReportID, byID.ReportID)
}
