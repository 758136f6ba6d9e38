// Package demo runs a single scripted, good-path protocol trace end to end:
// planner opens a session and proposes work, a critic reviews it, an
// executor signs a tool intent, runs it, records an artifact, issues a
// claim backed by that artifact, and signs a final statement; an auditor
// then runs and records a verification pass. Every event type except
// tool_execution_failed and claim_challenged appears in the trace. This
// package is not a dependency of any other package — nothing in pkg/
// imports this one.
//
// Grounded on the teacher's core/cmd/helm-node/demo.go (a self-contained
// demo driver wired up independently of the production server) and on
// the internal/demo_* convention observed in the quantumlife example
// repo; rewritten from an HTTP demo UI to a scripted, one-shot trace
// producer since spec.md's demo protocol run is peripheral CLI output,
// not a served page.
package demo

import (
	"fmt"

	"github.com/Adjoshi06/chainofCommand/pkg/artifacts"
	"github.com/Adjoshi06/chainofCommand/pkg/contracts"
	"github.com/Adjoshi06/chainofCommand/pkg/hashing"
	"github.com/Adjoshi06/chainofCommand/pkg/keyregistry"
	"github.com/Adjoshi06/chainofCommand/pkg/ledger"
	"github.com/Adjoshi06/chainofCommand/pkg/signing"
	"github.com/Adjoshi06/chainofCommand/pkg/tracestore"
	"github.com/Adjoshi06/chainofCommand/pkg/verifier"
)

// Result summarizes what Run produced, for the CLI to print.
type Result struct {
	TraceID  string
	EventIDs []string
	Report   contracts.VerificationReport
}

// Run builds and appends a complete demo trace into the given stores. It
// runs the verifier once after the final statement (that report's ID goes
// into the auditor's events), then again after the auditor's events, and
// saves and returns the second report.
func Run(traces *tracestore.Store, store *artifacts.Store, keys *keyregistry.Registry) (Result, error) {
	planner, err := keys.EnsureKey("demo.planner", "Demo Planner", []contracts.Role{contracts.RolePlanner})
	if err != nil {
		return Result{}, fmt.Errorf("demo: ensure planner key: %w", err)
	}
	executor, err := keys.EnsureKey("demo.executor", "Demo Executor", []contracts.Role{contracts.RoleExecutor})
	if err != nil {
		return Result{}, fmt.Errorf("demo: ensure executor key: %w", err)
	}
	critic, err := keys.EnsureKey("demo.critic", "Demo Critic", []contracts.Role{contracts.RoleCritic})
	if err != nil {
		return Result{}, fmt.Errorf("demo: ensure critic key: %w", err)
	}
	auditor, err := keys.EnsureKey("demo.auditor", "Demo Auditor", []contracts.Role{contracts.RoleAuditor})
	if err != nil {
		return Result{}, fmt.Errorf("demo: ensure auditor key: %w", err)
	}

	traceID := contracts.NewULID()
	session := contracts.NewTraceSession(traceID, contracts.NewULID(),
		[]contracts.Role{contracts.RolePlanner, contracts.RoleExecutor, contracts.RoleCritic, contracts.RoleAuditor},
		contracts.PolicyDefault)
	if err := traces.CreateTrace(session); err != nil {
		return Result{}, fmt.Errorf("demo: create trace: %w", err)
	}
	led := ledger.New(traces)

	chain := &chainBuilder{traceID: traceID, head: contracts.GenesisPrevHash}

	var eventIDs []string
	appendSigned := func(mat keyregistry.KeyMaterial, role contracts.Role, eventType contracts.EventType, payload map[string]interface{}, claims []string, arts []contracts.ArtifactDescriptor) error {
		e := chain.next(mat, role, eventType, payload, claims, arts)
		signer := signing.NewSigner(mat.Private)
		if err := signer.SignEvent(&e); err != nil {
			return fmt.Errorf("sign %s: %w", eventType, err)
		}
		if err := led.Append(traceID, e); err != nil {
			return fmt.Errorf("append %s: %w", eventType, err)
		}
		chain.head = e.EventHash
		eventIDs = append(eventIDs, e.EventID)
		return nil
	}

	if err := appendSigned(planner, contracts.RolePlanner, contracts.EventSessionInitialized,
		map[string]interface{}{"task": "demonstrate a verifiable multi-agent run"}, nil, nil); err != nil {
		return Result{}, err
	}
	if err := appendSigned(planner, contracts.RolePlanner, contracts.EventProposalCreated,
		map[string]interface{}{"proposal": "fetch the current release notes and summarize them"}, nil, nil); err != nil {
		return Result{}, err
	}
	if err := appendSigned(critic, contracts.RoleCritic, contracts.EventProposalReviewed,
		map[string]interface{}{"verdict": "approved", "notes": "scope is well bounded"}, nil, nil); err != nil {
		return Result{}, err
	}
	if err := appendSigned(executor, contracts.RoleExecutor, contracts.EventToolIntentSigned,
		map[string]interface{}{"tool": "fetch_url", "args": map[string]interface{}{"url": "https://example.invalid/release-notes"}}, nil, nil); err != nil {
		return Result{}, err
	}
	if err := appendSigned(executor, contracts.RoleExecutor, contracts.EventToolExecutionStarted,
		map[string]interface{}{"tool": "fetch_url"}, nil, nil); err != nil {
		return Result{}, err
	}

	artifactBytes := []byte("release notes summary: three bug fixes, one new feature, no breaking changes.")
	if err := appendSigned(executor, contracts.RoleExecutor, contracts.EventToolExecutionCompleted,
		map[string]interface{}{"tool": "fetch_url", "status": "ok"}, nil, nil); err != nil {
		return Result{}, err
	}

	artifactEventID := contracts.NewULID()
	desc, err := store.Write(traceID, artifactEventID, artifactBytes, "text/plain", "", contracts.RedactionNone)
	if err != nil {
		return Result{}, fmt.Errorf("demo: write artifact: %w", err)
	}
	if err := appendSigned(executor, contracts.RoleExecutor, contracts.EventArtifactRecorded,
		map[string]interface{}{"artifact_hash": desc.ArtifactHash}, nil, []contracts.ArtifactDescriptor{desc}); err != nil {
		return Result{}, err
	}

	claimID := "claim_" + contracts.NewULID()
	if err := appendSigned(executor, contracts.RoleExecutor, contracts.EventClaimIssued,
		map[string]interface{}{"statement": "the release notes were fetched and summarized accurately"},
		[]string{claimID}, []contracts.ArtifactDescriptor{desc}); err != nil {
		return Result{}, err
	}
	if err := appendSigned(executor, contracts.RoleExecutor, contracts.EventFinalStatementSigned,
		map[string]interface{}{"outcome": "task complete"}, nil, nil); err != nil {
		return Result{}, err
	}

	if err := traces.UpdateStatus(traceID, contracts.TraceSucceeded); err != nil {
		return Result{}, fmt.Errorf("demo: update status: %w", err)
	}

	pipeline := verifier.New(traces, led, store, keys, contracts.PolicyDefault)
	report, err := pipeline.Verify(traceID)
	if err != nil {
		return Result{}, fmt.Errorf("demo: verify: %w", err)
	}
	if err := appendSigned(auditor, contracts.RoleAuditor, contracts.EventVerificationRunStarted,
		map[string]interface{}{"report_id": report.ReportID}, nil, nil); err != nil {
		return Result{}, err
	}
	if err := appendSigned(auditor, contracts.RoleAuditor, contracts.EventVerificationCompleted,
		map[string]interface{}{"report_id": report.ReportID, "status": string(report.VerificationStatus)}, nil, nil); err != nil {
		return Result{}, err
	}

	final, err := pipeline.Verify(traceID)
	if err != nil {
		return Result{}, fmt.Errorf("demo: final verify: %w", err)
	}
	if err := traces.SaveReport(traceID, final); err != nil {
		return Result{}, fmt.Errorf("demo: save report: %w", err)
	}

	return Result{TraceID: traceID, EventIDs: eventIDs, Report: final}, nil
}

// chainBuilder threads prev_event_hash/trace_id/event_id bookkeeping through
// a sequence of demo events so callers only supply role, type, and payload.
type chainBuilder struct {
	traceID string
	head    string
}

func (c *chainBuilder) next(mat keyregistry.KeyMaterial, role contracts.Role, eventType contracts.EventType, payload map[string]interface{}, claims []string, arts []contracts.ArtifactDescriptor) contracts.ProtocolEvent {
	payloadBytes, _ := hashing.HashCanonical(payload)
	return contracts.ProtocolEvent{
		SchemaVersion: contracts.SchemaVersion,
		TraceID:       c.traceID,
		EventID:       contracts.NewULID(),
		EventType:     eventType,
		CreatedAt:     contracts.NowISO(),
		Actor: contracts.Actor{
			AgentID: mat.Identity.AgentID,
			Role:    role,
			KeyID:   mat.Identity.KeyID,
		},
		PayloadHash:   payloadBytes,
		PrevEventHash: c.head,
		PayloadType:   "application/json",
		Payload:       payload,
		Claims:        claims,
		Artifacts:     arts,
	}
}
