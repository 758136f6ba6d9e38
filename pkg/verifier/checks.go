package verifier

import (
	"fmt"
	"time"

	"github.com/Adjoshi06/chainofCommand/pkg/contracts"
	"github.com/Adjoshi06/chainofCommand/pkg/signing"
)

// checkSchemaConformance validates that the log parsed cleanly and every
// event satisfies its own structural invariants.
func (p *Pipeline) checkSchemaConformance(r *run, readErr error) {
	start := time.Now()
	before := len(r.report.Failures)

	if readErr != nil {
		r.addFailure(contracts.CheckSchemaConformance, contracts.CodeSchemaInvalid, contracts.SeverityCritical,
			"", "", fmt.Sprintf("events log failed to parse: %v", readErr),
			"run `coc repair` to truncate a malformed trailing write, or inspect the log by hand if the damage is not at the tail")
	}
	for _, e := range r.events {
		if err := e.Validate(); err != nil {
			r.addFailure(contracts.CheckSchemaConformance, contracts.CodeSchemaInvalid, contracts.SeverityHigh,
				e.EventID, "", fmt.Sprintf("event failed structural validation: %v", err), "discard or hand-correct the offending event; it cannot be trusted as written")
		}
	}
	r.recordCheck(contracts.CheckSchemaConformance, "schema conformance", "trace", start, before)
}

// checkEventHashIntegrity recomputes each event's hash and compares it to
// the recorded event_hash.
func (p *Pipeline) checkEventHashIntegrity(r *run) {
	start := time.Now()
	before := len(r.report.Failures)

	for _, e := range r.events {
		ok, computed, err := signing.VerifyEventHash(e)
		if err != nil {
			r.addFailure(contracts.CheckEventHashIntegrity, contracts.CodeHashMismatch, contracts.SeverityCritical,
				e.EventID, "", fmt.Sprintf("could not recompute event hash: %v", err), "inspect the event's raw JSON for corruption")
			continue
		}
		if !ok {
			r.addFailure(contracts.CheckEventHashIntegrity, contracts.CodeHashMismatch, contracts.SeverityCritical,
				e.EventID, "", fmt.Sprintf("event_hash %s does not match recomputed %s; the event was altered after being written", e.EventHash, computed),
				"treat this trace as tampered; do not trust any claim or artifact downstream of this event")
		}
	}
	r.recordCheck(contracts.CheckEventHashIntegrity, "event hash integrity", "trace", start, before)
}

// checkChainContinuity walks prev_event_hash links from genesis and
// confirms they match, in order, and that the final link equals the
// trace's recorded head.
func (p *Pipeline) checkChainContinuity(r *run, session contracts.TraceSession) {
	start := time.Now()
	before := len(r.report.Failures)

	expected := contracts.GenesisPrevHash
	for _, e := range r.events {
		if e.PrevEventHash != expected {
			r.addFailure(contracts.CheckChainContinuity, contracts.CodeChainBreak, contracts.SeverityCritical,
				e.EventID, "", fmt.Sprintf("prev_event_hash %s does not match expected head %s", e.PrevEventHash, expected),
				"an event was deleted, reordered, or inserted; the chain must be treated as broken from this point forward")
		}
		expected = e.EventHash
	}
	if len(r.events) > 0 && expected != session.HeadEventHash {
		r.addFailure(contracts.CheckChainContinuity, contracts.CodeChainBreak, contracts.SeverityHigh,
			"", "", fmt.Sprintf("trace head_event_hash %s does not match the log's final event hash %s", session.HeadEventHash, expected),
			"reconcile trace.meta.json against events.jsonl, or run `coc repair`")
	}
	r.recordCheck(contracts.CheckChainContinuity, "chain continuity", "trace", start, before)
}

// checkSignatureValidity verifies the Ed25519 signature on every event whose
// event_type is in contracts.RequiredSignedEventTypes, and validates any
// signature present on other event types too.
func (p *Pipeline) checkSignatureValidity(r *run) {
	start := time.Now()
	before := len(r.report.Failures)

	for _, e := range r.events {
		required := contracts.RequiredSignedEventTypes[e.EventType]
		if e.Signature.IsZero() {
			if required {
				r.addFailure(contracts.CheckSignatureValidity, contracts.CodeSigMissing, contracts.SeverityCritical,
					e.EventID, "", fmt.Sprintf("event_type %s requires a signature but none is present", e.EventType),
					"this event cannot be attributed to its claimed actor; exclude it from any trust decision")
			}
			continue
		}

		pub, ok, err := p.keys.ResolvePublicKey(e.Actor.KeyID)
		if err != nil {
			r.addFailure(contracts.CheckSignatureValidity, contracts.CodeSigInvalid, contracts.SeverityCritical,
				e.EventID, "", fmt.Sprintf("could not resolve public key for key_id %s: %v", e.Actor.KeyID, err),
				"register the signing key before trusting this event")
			continue
		}
		if !ok {
			r.addFailure(contracts.CheckSignatureValidity, contracts.CodeSigInvalid, contracts.SeverityCritical,
				e.EventID, "", fmt.Sprintf("key_id %s is not registered", e.Actor.KeyID),
				"register the signing key before trusting this event")
			continue
		}

		valid, err := signing.VerifyEvent(pub, e)
		if err != nil {
			r.addFailure(contracts.CheckSignatureValidity, contracts.CodeSigInvalid, contracts.SeverityCritical,
				e.EventID, "", fmt.Sprintf("signature verification error: %v", err), "treat the event as unsigned")
			continue
		}
		if !valid {
			r.addFailure(contracts.CheckSignatureValidity, contracts.CodeSigInvalid, contracts.SeverityCritical,
				e.EventID, "", "signature does not verify against the event's signed-field subset",
				"the signed content was altered after signing; treat this event as forged or corrupted")
		}
	}
	r.recordCheck(contracts.CheckSignatureValidity, "signature validity", "trace", start, before)
}

// checkKeyStatus confirms that, for every event, actor.key_id resolves to a
// registered identity whose agent_id matches actor.agent_id, and that the
// key was not revoked at or before the event's created_at timestamp.
func (p *Pipeline) checkKeyStatus(r *run) {
	start := time.Now()
	before := len(r.report.Failures)

	for _, e := range r.events {
		identity, ok, err := p.keys.ResolveIdentity(e.Actor.KeyID)
		if err != nil || !ok {
			r.addFailure(contracts.CheckKeyStatus, contracts.CodeSchemaInvalid, contracts.SeverityMedium,
				e.EventID, "", fmt.Sprintf("actor.key_id %s does not resolve to a registered identity", e.Actor.KeyID),
				"register the signing key, or correct the event's key_id")
			continue
		}
		if identity.AgentID != e.Actor.AgentID {
			r.addFailure(contracts.CheckKeyStatus, contracts.CodeSchemaInvalid, contracts.SeverityMedium,
				e.EventID, "", fmt.Sprintf("actor.key_id %s resolves to agent_id %s, not the claimed actor.agent_id %s", e.Actor.KeyID, identity.AgentID, e.Actor.AgentID),
				"correct the event's agent_id or key_id; an event's actor must name the agent that owns the signing key")
			continue
		}
		if identity.RevokedBefore(e.CreatedAt) {
			r.addFailure(contracts.CheckKeyStatus, contracts.CodeSchemaInvalid, contracts.SeverityMedium,
				e.EventID, "", fmt.Sprintf("key_id %s was revoked at %s, at or before this event's created_at %s", e.Actor.KeyID, identity.RevokedAt, e.CreatedAt),
				"a signature from a revoked key cannot attest to an event at or after revocation; investigate how this was produced")
		}
	}
	r.recordCheck(contracts.CheckKeyStatus, "key status", "trace", start, before)
}

// checkArtifactExistence confirms every artifact an event references has a
// blob present in the store.
func (p *Pipeline) checkArtifactExistence(r *run) {
	start := time.Now()
	before := len(r.report.Failures)

	for _, e := range r.events {
		for _, a := range e.Artifacts {
			if !p.store.Has(a.ArtifactHash) {
				r.addFailure(contracts.CheckArtifactExistence, contracts.CodeArtifactMissing, contracts.SeverityHigh,
					e.EventID, a.ArtifactHash, fmt.Sprintf("artifact %s referenced by event %s has no blob in the store", a.ArtifactHash, e.EventID),
					"restore the artifact from backup, or mark the referencing claim as unprovable")
			}
		}
	}
	r.recordCheck(contracts.CheckArtifactExistence, "artifact existence", "trace", start, before)
}

// checkArtifactHashMatch recomputes each referenced artifact's digest and
// compares it to the hash recorded in the event.
func (p *Pipeline) checkArtifactHashMatch(r *run) {
	start := time.Now()
	before := len(r.report.Failures)

	for _, e := range r.events {
		for _, a := range e.Artifacts {
			if !p.store.Has(a.ArtifactHash) {
				continue // already reported by checkArtifactExistence
			}
			ok, err := p.store.VerifyIntegrity(a.ArtifactHash)
			if err != nil {
				r.addFailure(contracts.CheckArtifactHashMatch, contracts.CodeArtifactHashMismatch, contracts.SeverityHigh,
					e.EventID, a.ArtifactHash, fmt.Sprintf("could not verify artifact integrity: %v", err), "inspect the blob for filesystem corruption")
				continue
			}
			if !ok {
				r.addFailure(contracts.CheckArtifactHashMatch, contracts.CodeArtifactHashMismatch, contracts.SeverityCritical,
					e.EventID, a.ArtifactHash, fmt.Sprintf("stored blob content does not hash to %s", a.ArtifactHash),
					"the artifact was substituted after being written; treat the referencing claim as unproven")
			}
		}
	}
	r.recordCheck(contracts.CheckArtifactHashMatch, "artifact hash match", "trace", start, before)
}

// failedEvents returns the set of event IDs that failed the given check
// step, so later checks can tell whether an event they depend on was
// already found untrustworthy.
func failedEvents(failures []contracts.Failure, step contracts.CheckID) map[string]bool {
	ids := map[string]bool{}
	for _, f := range failures {
		if f.VerificationStep == step && f.EventID != "" {
			ids[f.EventID] = true
		}
	}
	return ids
}

// failedArtifacts returns the set of artifact hashes that failed any of the
// given check steps.
func failedArtifacts(failures []contracts.Failure, steps ...contracts.CheckID) map[string]bool {
	want := map[contracts.CheckID]bool{}
	for _, s := range steps {
		want[s] = true
	}
	hashes := map[string]bool{}
	for _, f := range failures {
		if want[f.VerificationStep] && f.ArtifactHash != "" {
			hashes[f.ArtifactHash] = true
		}
	}
	return hashes
}

// checkClaimEvidenceSufficiency confirms every claim_issued is backed by at
// least one evidence artifact that itself passed CHK_ARTIFACT_EXISTENCE and
// CHK_ARTIFACT_HASH_MATCH, issued by an event that itself passed
// CHK_SIGNATURE_VALIDITY, then applies policy-profile strictness to
// disputed claims: strict treats any unresolved challenge as fatal
// (CLAIM_UNPROVEN, high), default and lenient downgrade it to a warning.
func (p *Pipeline) checkClaimEvidenceSufficiency(r *run) {
	start := time.Now()
	before := len(r.report.Failures)

	badEvents := failedEvents(r.report.Failures, contracts.CheckSignatureValidity)
	badArtifacts := failedArtifacts(r.report.Failures, contracts.CheckArtifactExistence, contracts.CheckArtifactHashMatch)

	type claimState struct {
		eventID       string
		validEvidence int
	}
	claims := map[string]*claimState{}
	challenged := map[string]bool{}

	for _, e := range r.events {
		if e.EventType == contracts.EventClaimIssued {
			for _, c := range e.Claims {
				cs, ok := claims[c]
				if !ok {
					cs = &claimState{eventID: e.EventID}
					claims[c] = cs
				}
				if !badEvents[e.EventID] {
					for _, a := range e.Artifacts {
						if !badArtifacts[a.ArtifactHash] {
							cs.validEvidence++
						}
					}
				}
			}
		}
		if e.EventType == contracts.EventClaimChallenged {
			resolved, _ := e.Payload["resolved"].(bool)
			if !resolved {
				for _, c := range e.Claims {
					challenged[c] = true
				}
			}
		}
	}

	for claim := range challenged {
		if _, ok := claims[claim]; !ok {
			r.addFailure(contracts.CheckClaimEvidenceSufficient, contracts.CodeClaimUnproven, contracts.SeverityHigh,
				"", "", fmt.Sprintf("claim %s was challenged but no claim_issued event for it exists", claim),
				"an orphan challenge cannot be resolved; investigate how it was produced")
		}
	}

	for claim, cs := range claims {
		if cs.validEvidence == 0 {
			r.addFailure(contracts.CheckClaimEvidenceSufficient, contracts.CodeClaimUnproven, contracts.SeverityHigh,
				cs.eventID, "", fmt.Sprintf("claim %s has no supporting evidence that passed both existence and hash checks, or its issuing event failed signature validation", claim),
				"attach evidence that passes artifact existence and hash checks, signed by a valid actor, or retract the claim")
			continue
		}
		if !challenged[claim] {
			continue
		}
		switch p.profile {
		case contracts.PolicyStrict:
			r.addFailure(contracts.CheckClaimEvidenceSufficient, contracts.CodeClaimUnproven, contracts.SeverityHigh,
				cs.eventID, "", fmt.Sprintf("claim %s was challenged and remains unresolved under a strict policy profile", claim),
				"resolve the challenge (uphold or retract the claim) before treating the trace as conclusive")
		default:
			r.addWarning(contracts.CheckClaimEvidenceSufficient, "CLAIM_DISPUTED", cs.eventID,
				fmt.Sprintf("claim %s was challenged and remains unresolved", claim))
		}
	}
	r.recordCheck(contracts.CheckClaimEvidenceSufficient, "claim evidence sufficiency", "trace", start, before)
}

// checkRolePolicyConformance confirms every event's type is one its actor's
// role is permitted to author, per contracts.RolePolicy.
func (p *Pipeline) checkRolePolicyConformance(r *run) {
	start := time.Now()
	before := len(r.report.Failures)

	for _, e := range r.events {
		permitted := contracts.RolePolicy[e.Actor.Role]
		if permitted == nil || !permitted[e.EventType] {
			r.addFailure(contracts.CheckRolePolicyConformance, contracts.CodeRolePolicyViolation, contracts.SeverityMedium,
				e.EventID, "", fmt.Sprintf("role %s is not permitted to author event_type %s", e.Actor.Role, e.EventType),
				"this event was authored outside its role's mandate; treat its payload as untrusted")
		}
	}
	r.recordCheck(contracts.CheckRolePolicyConformance, "role policy conformance", "trace", start, before)
}

// checkFinalizationIntegrity implements CHK_FINALIZATION_INTEGRITY:
// exactly one final_statement_signed must be present; one
// verification_run_started is required; verification_run_completed is
// required unless the pipeline was built with AllowIncompleteFinalization,
// in which case its absence is only a FINALIZATION_INCOMPLETE warning. When
// both final_statement_signed and verification_run_completed exist, the
// former must precede the latter.
func (p *Pipeline) checkFinalizationIntegrity(r *run) {
	start := time.Now()
	before := len(r.report.Failures)

	finalIdx, startedIdx, completedIdx := -1, -1, -1
	finalCount := 0
	for i, e := range r.events {
		switch e.EventType {
		case contracts.EventFinalStatementSigned:
			finalCount++
			if finalIdx == -1 {
				finalIdx = i
			}
		case contracts.EventVerificationRunStarted:
			if startedIdx == -1 {
				startedIdx = i
			}
		case contracts.EventVerificationCompleted:
			if completedIdx == -1 {
				completedIdx = i
			}
		}
	}

	if finalIdx == -1 {
		r.addFailure(contracts.CheckFinalizationIntegrity, contracts.CodeSchemaInvalid, contracts.SeverityMedium,
			"", "", "no final_statement_signed event was recorded",
			"a trace cannot be considered finished without a signed final statement")
	}
	if finalCount > 1 {
		r.addFailure(contracts.CheckFinalizationIntegrity, contracts.CodeSchemaInvalid, contracts.SeverityMedium,
			"", "", fmt.Sprintf("%d final_statement_signed events were recorded; exactly one is allowed", finalCount),
			"a trace has a single signed final statement; investigate the extra ones")
	}
	if startedIdx == -1 {
		r.addFailure(contracts.CheckFinalizationIntegrity, contracts.CodeSchemaInvalid, contracts.SeverityMedium,
			"", "", "no verification_run_started event was recorded",
			"record a verification_run_started event before treating the trace as audited")
	}
	if completedIdx == -1 {
		if p.allowIncompleteFinalization {
			r.addWarning(contracts.CheckFinalizationIntegrity, "FINALIZATION_INCOMPLETE", "",
				"no verification_run_completed event was recorded; tolerated by allow_incomplete_finalization")
		} else {
			r.addFailure(contracts.CheckFinalizationIntegrity, contracts.CodeSchemaInvalid, contracts.SeverityMedium,
				"", "", "no verification_run_completed event was recorded",
				"complete and record a verification run, or pass allow_incomplete_finalization if that is expected")
		}
	}
	if finalIdx != -1 && completedIdx != -1 && finalIdx >= completedIdx {
		r.addFailure(contracts.CheckFinalizationIntegrity, contracts.CodeRolePolicyViolation, contracts.SeverityMedium,
			r.events[finalIdx].EventID, "", "final_statement_signed does not precede verification_run_completed",
			"a verification run that completed before the final statement was signed cannot attest to the finished trace; investigate event ordering")
	}

	r.recordCheck(contracts.CheckFinalizationIntegrity, "finalization integrity", "trace", start, before)
}
