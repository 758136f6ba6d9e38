package verifier

import (
	"testing"

	"github.com/Adjoshi06/chainofCommand/pkg/artifacts"
	"github.com/Adjoshi06/chainofCommand/pkg/contracts"
	"github.com/Adjoshi06/chainofCommand/pkg/keyregistry"
	"github.com/Adjoshi06/chainofCommand/pkg/ledger"
	"github.com/Adjoshi06/chainofCommand/pkg/signing"
	"github.com/Adjoshi06/chainofCommand/pkg/tracestore"
	"github.com/stretchr/testify/require"
)

type harness struct {
	pipeline     *Pipeline
	traces       *tracestore.Store
	ledger       *ledger.Ledger
	store        *artifacts.Store
	keys         *keyregistry.Registry
	traceID      string
	artifactsDir string
}

func newHarness(t *testing.T, profile contracts.PolicyProfile) *harness {
	t.Helper()
	dir := t.TempDir()

	traces, err := tracestore.Open(dir + "/traces")
	require.NoError(t, err)
	store, err := artifacts.Open(dir + "/artifacts")
	require.NoError(t, err)
	keys, err := keyregistry.Open(dir+"/keys", nil)
	require.NoError(t, err)
	led := ledger.New(traces)

	session := contracts.NewTraceSession("01TRACE0000000000000000VFY", "01TASK00000000000000000VFY",
		[]contracts.Role{contracts.RolePlanner, contracts.RoleExecutor}, profile)
	require.NoError(t, traces.CreateTrace(session))

	return &harness{
		pipeline:     New(traces, led, store, keys, profile),
		traces:       traces,
		ledger:       led,
		store:        store,
		keys:         keys,
		traceID:      session.TraceID,
		artifactsDir: dir + "/artifacts",
	}
}

func (h *harness) signedEvent(t *testing.T, mat keyregistry.KeyMaterial, role contracts.Role, eventType contracts.EventType, prevHash, eventID string, claims []string, arts []contracts.ArtifactDescriptor) contracts.ProtocolEvent {
	t.Helper()
	e := contracts.ProtocolEvent{
		SchemaVersion: contracts.SchemaVersion,
		TraceID:       h.traceID,
		EventID:       eventID,
		EventType:     eventType,
		CreatedAt:     contracts.NowISO(),
		Actor: contracts.Actor{
			AgentID: mat.Identity.AgentID,
			Role:    role,
			KeyID:   mat.Identity.KeyID,
		},
		PayloadHash:   contracts.GenesisPrevHash,
		PrevEventHash: prevHash,
		PayloadType:   "application/json",
		Payload:       map[string]interface{}{"ok": true},
		Claims:        claims,
		Artifacts:     arts,
	}
	signer := signing.NewSigner(mat.Private)
	require.NoError(t, signer.SignEvent(&e))
	return e
}

func TestVerify_GoodPathPasses(t *testing.T) {
	h := newHarness(t, contracts.PolicyDefault)

	planner, err := h.keys.EnsureKey("agent.planner", "Planner", []contracts.Role{contracts.RolePlanner})
	require.NoError(t, err)
	executor, err := h.keys.EnsureKey("agent.executor", "Executor", []contracts.Role{contracts.RoleExecutor})
	require.NoError(t, err)

	e1 := h.signedEvent(t, planner, contracts.RolePlanner, contracts.EventSessionInitialized, contracts.GenesisPrevHash, "01EVT000000000000000000VF1", nil, nil)
	require.NoError(t, h.ledger.Append(h.traceID, e1))

	e2 := h.signedEvent(t, planner, contracts.RolePlanner, contracts.EventProposalCreated, e1.EventHash, "01EVT000000000000000000VF2", nil, nil)
	require.NoError(t, h.ledger.Append(h.traceID, e2))

	desc, err := h.store.Write(h.traceID, "01EVT000000000000000000VF3", []byte("evidence bytes"), "text/plain", "", contracts.RedactionNone)
	require.NoError(t, err)

	e3 := h.signedEvent(t, executor, contracts.RoleExecutor, contracts.EventClaimIssued, e2.EventHash, "01EVT000000000000000000VF3",
		[]string{"claim_01CLAIM000000000000000001"}, []contracts.ArtifactDescriptor{desc})
	require.NoError(t, h.ledger.Append(h.traceID, e3))

	e4 := h.signedEvent(t, executor, contracts.RoleExecutor, contracts.EventFinalStatementSigned, e3.EventHash, "01EVT000000000000000000VF4", nil, nil)
	require.NoError(t, h.ledger.Append(h.traceID, e4))

	auditor, err := h.keys.EnsureKey("agent.auditor", "Auditor", []contracts.Role{contracts.RoleAuditor})
	require.NoError(t, err)

	e5 := h.signedEvent(t, auditor, contracts.RoleAuditor, contracts.EventVerificationRunStarted, e4.EventHash, "01EVT000000000000000000VF5", nil, nil)
	require.NoError(t, h.ledger.Append(h.traceID, e5))

	e6 := h.signedEvent(t, auditor, contracts.RoleAuditor, contracts.EventVerificationCompleted, e5.EventHash, "01EVT000000000000000000VF6", nil, nil)
	require.NoError(t, h.ledger.Append(h.traceID, e6))

	require.NoError(t, h.traces.UpdateStatus(h.traceID, contracts.TraceSucceeded))

	report, err := h.pipeline.Verify(h.traceID)
	require.NoError(t, err)
	require.Empty(t, report.Failures)
	require.Equal(t, contracts.StatusPass, report.VerificationStatus)
	require.Len(t, report.Checks, len(contracts.OrderedCheckIDs))
}

func TestVerify_DetectsPayloadTamperAfterTheFact(t *testing.T) {
	h := newHarness(t, contracts.PolicyDefault)
	planner, err := h.keys.EnsureKey("agent.planner", "Planner", []contracts.Role{contracts.RolePlanner})
	require.NoError(t, err)

	e1 := h.signedEvent(t, planner, contracts.RolePlanner, contracts.EventSessionInitialized, contracts.GenesisPrevHash, "01EVT000000000000000000VG1", nil, nil)
	require.NoError(t, h.ledger.Append(h.traceID, e1))

	events, err := h.ledger.ReadEvents(h.traceID)
	require.NoError(t, err)
	require.Len(t, events, 1)

	tampered := events[0]
	tampered.Payload["ok"] = false

	ok, _, err := signing.VerifyEventHash(tampered)
	require.NoError(t, err)
	require.False(t, ok, "mutating payload after signing must invalidate the event hash")
}

func TestVerify_RejectsUnregisteredSigner(t *testing.T) {
	h := newHarness(t, contracts.PolicyDefault)

	planner, err := h.keys.EnsureKey("agent.planner", "Planner", []contracts.Role{contracts.RolePlanner})
	require.NoError(t, err)
	e1 := h.signedEvent(t, planner, contracts.RolePlanner, contracts.EventSessionInitialized, contracts.GenesisPrevHash, "01EVT000000000000000000VH1", nil, nil)
	e1.Actor.KeyID = "key_doesnotexist000000"
	require.NoError(t, h.ledger.Append(h.traceID, e1))

	report, err := h.pipeline.Verify(h.traceID)
	require.NoError(t, err)
	require.NotEmpty(t, report.Failures)
	require.Equal(t, contracts.StatusFail, report.VerificationStatus)
}

func TestVerify_FlagsRolePolicyViolation(t *testing.T) {
	h := newHarness(t, contracts.PolicyDefault)
	planner, err := h.keys.EnsureKey("agent.planner", "Planner", []contracts.Role{contracts.RolePlanner})
	require.NoError(t, err)

	e1 := h.signedEvent(t, planner, contracts.RolePlanner, contracts.EventClaimIssued, contracts.GenesisPrevHash, "01EVT000000000000000000VI1", nil, nil)
	require.NoError(t, h.ledger.Append(h.traceID, e1))

	report, err := h.pipeline.Verify(h.traceID)
	require.NoError(t, err)

	found := false
	for _, f := range report.Failures {
		if f.FailureCode == contracts.CodeRolePolicyViolation {
			found = true
		}
	}
	require.True(t, found, "planner authoring claim_issued must be flagged")
}

func TestVerify_IsIdempotentAcrossRuns(t *testing.T) {
	h := newHarness(t, contracts.PolicyDefault)
	planner, err := h.keys.EnsureKey("agent.planner", "Planner", []contracts.Role{contracts.RolePlanner})
	require.NoError(t, err)
	e1 := h.signedEvent(t, planner, contracts.RolePlanner, contracts.EventSessionInitialized, contracts.GenesisPrevHash, "01EVT000000000000000000VJ1", nil, nil)
	require.NoError(t, h.ledger.Append(h.traceID, e1))

	r1, err := h.pipeline.Verify(h.traceID)
	require.NoError(t, err)
	r2, err := h.pipeline.Verify(h.traceID)
	require.NoError(t, err)

	require.Equal(t, r1.VerificationStatus, r2.VerificationStatus)
	require.Equal(t, len(r1.Failures), len(r2.Failures))
	require.Equal(t, len(r1.Checks), len(r2.Checks))
	require.NotEqual(t, r1.ReportID, r2.ReportID)
}
