package contracts

import (
	"fmt"
	"strings"
)

// SchemaVersion is embedded in every persisted object so future format
// changes can be detected at read time.
const SchemaVersion = "1.0.0"

// GenesisPrevHash is the prev_event_hash of the first event appended to a
// trace: 64 zero hex characters.
var GenesisPrevHash = strings.Repeat("0", 64)

// Role is the acting capacity of an agent when it wrote an event.
type Role string

const (
	RolePlanner  Role = "planner"
	RoleExecutor Role = "executor"
	RoleCritic   Role = "critic"
	RoleAuditor  Role = "auditor"
)

func (r Role) Validate() error {
	switch r {
	case RolePlanner, RoleExecutor, RoleCritic, RoleAuditor:
		return nil
	default:
		return fmt.Errorf("invalid role: %q", r)
	}
}

// IdentityStatus tracks the lifecycle of an AgentIdentity's key material.
type IdentityStatus string

const (
	IdentityActive  IdentityStatus = "active"
	IdentityRotated IdentityStatus = "rotated"
	IdentityRevoked IdentityStatus = "revoked"
)

// EventType enumerates the closed set of ledger event kinds.
type EventType string

const (
	EventSessionInitialized     EventType = "session_initialized"
	EventProposalCreated        EventType = "proposal_created"
	EventProposalReviewed       EventType = "proposal_reviewed"
	EventToolIntentSigned       EventType = "tool_intent_signed"
	EventToolExecutionStarted   EventType = "tool_execution_started"
	EventToolExecutionCompleted EventType = "tool_execution_completed"
	EventToolExecutionFailed    EventType = "tool_execution_failed"
	EventArtifactRecorded       EventType = "artifact_recorded"
	EventClaimIssued            EventType = "claim_issued"
	EventClaimChallenged        EventType = "claim_challenged"
	EventFinalStatementSigned   EventType = "final_statement_signed"
	EventVerificationRunStarted EventType = "verification_run_started"
	EventVerificationCompleted  EventType = "verification_run_completed"
)

var allEventTypes = map[EventType]bool{
	EventSessionInitialized:     true,
	EventProposalCreated:        true,
	EventProposalReviewed:       true,
	EventToolIntentSigned:       true,
	EventToolExecutionStarted:   true,
	EventToolExecutionCompleted: true,
	EventToolExecutionFailed:    true,
	EventArtifactRecorded:       true,
	EventClaimIssued:            true,
	EventClaimChallenged:        true,
	EventFinalStatementSigned:   true,
	EventVerificationRunStarted: true,
	EventVerificationCompleted:  true,
}

func (t EventType) Validate() error {
	if !allEventTypes[t] {
		return fmt.Errorf("invalid event_type: %q", t)
	}
	return nil
}

// RequiredSignedEventTypes is the set of event types that must carry a valid
// signature for a trace to verify. Other types are validated if a signature
// is present but are not failed for lacking one.
var RequiredSignedEventTypes = map[EventType]bool{
	EventProposalCreated:        true,
	EventToolIntentSigned:       true,
	EventClaimIssued:            true,
	EventClaimChallenged:        true,
	EventFinalStatementSigned:   true,
	EventVerificationCompleted:  true,
}

// RolePolicy is the exhaustive, closed mapping from role to the event types
// that role is permitted to author.
var RolePolicy = map[Role]map[EventType]bool{
	RolePlanner: {
		EventSessionInitialized: true,
		EventProposalCreated:    true,
	},
	RoleExecutor: {
		EventToolIntentSigned:       true,
		EventToolExecutionStarted:   true,
		EventToolExecutionCompleted: true,
		EventToolExecutionFailed:    true,
		EventArtifactRecorded:       true,
		EventClaimIssued:            true,
		EventFinalStatementSigned:   true,
	},
	RoleCritic: {
		EventProposalReviewed: true,
		EventClaimChallenged:  true,
	},
	RoleAuditor: {
		EventVerificationRunStarted: true,
		EventVerificationCompleted:  true,
	},
}

// RedactionStatus describes how an artifact's original bytes relate to what
// is stored.
type RedactionStatus string

const (
	RedactionNone               RedactionStatus = "none"
	RedactionRedacted           RedactionStatus = "redacted"
	RedactionRedactedWithPointer RedactionStatus = "redacted-with-pointer"
)

// TraceStatus is the lifecycle state of a TraceSession.
type TraceStatus string

const (
	TraceRunning   TraceStatus = "running"
	TraceSucceeded TraceStatus = "succeeded"
	TraceFailed    TraceStatus = "failed"
	TraceAborted   TraceStatus = "aborted"
	TraceTampered  TraceStatus = "tampered"
)

// PolicyProfile selects the strictness of disputed-claim handling in the
// verifier pipeline (CHK_CLAIM_EVIDENCE_SUFFICIENCY).
type PolicyProfile string

const (
	PolicyStrict  PolicyProfile = "strict"
	PolicyDefault PolicyProfile = "default"
	PolicyLenient PolicyProfile = "lenient"
)

func (p PolicyProfile) Validate() error {
	switch p {
	case PolicyStrict, PolicyDefault, PolicyLenient:
		return nil
	default:
		return fmt.Errorf("invalid policy_profile: %q", p)
	}
}

// VerificationStatus is the overall verdict of a VerificationReport.
type VerificationStatus string

const (
	StatusPass             VerificationStatus = "pass"
	StatusPassWithWarnings VerificationStatus = "pass-with-warnings"
	StatusFail             VerificationStatus = "fail"
)

// CheckStatus is the per-check outcome within a VerificationReport.
type CheckStatus string

const (
	CheckPass    CheckStatus = "pass"
	CheckWarning CheckStatus = "warning"
	CheckFail    CheckStatus = "fail"
)

// Severity ranks a VerificationFailure for sorting and gating.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// severityRank orders severities from most to least urgent; lower is worse.
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
}

// Less reports whether a is more severe than b, for sorting failures.
func (a Severity) Less(b Severity) bool {
	return severityRank[a] < severityRank[b]
}

// FailureCode enumerates the closed set of verifier failure codes.
type FailureCode string

const (
	CodeSchemaInvalid          FailureCode = "SCHEMA_INVALID"
	CodeHashMismatch           FailureCode = "HASH_MISMATCH"
	CodeChainBreak             FailureCode = "CHAIN_BREAK"
	CodeSigMissing             FailureCode = "SIG_MISSING"
	CodeSigInvalid             FailureCode = "SIG_INVALID"
	CodeArtifactMissing        FailureCode = "ARTIFACT_MISSING"
	CodeArtifactHashMismatch   FailureCode = "ARTIFACT_HASH_MISMATCH"
	CodeClaimUnproven          FailureCode = "CLAIM_UNPROVEN"
	CodeRolePolicyViolation    FailureCode = "ROLE_POLICY_VIOLATION"
	CodeFinalizationIncomplete FailureCode = "FINALIZATION_INCOMPLETE"
)

// CheckID enumerates the ten mandatory verifier checks, in pipeline order.
type CheckID string

const (
	CheckSchemaConformance       CheckID = "CHK_SCHEMA_CONFORMANCE"
	CheckEventHashIntegrity      CheckID = "CHK_EVENT_HASH_INTEGRITY"
	CheckChainContinuity         CheckID = "CHK_CHAIN_CONTINUITY"
	CheckSignatureValidity       CheckID = "CHK_SIGNATURE_VALIDITY"
	CheckKeyStatus               CheckID = "CHK_KEY_STATUS"
	CheckArtifactExistence       CheckID = "CHK_ARTIFACT_EXISTENCE"
	CheckArtifactHashMatch       CheckID = "CHK_ARTIFACT_HASH_MATCH"
	CheckClaimEvidenceSufficient CheckID = "CHK_CLAIM_EVIDENCE_SUFFICIENCY"
	CheckRolePolicyConformance   CheckID = "CHK_ROLE_POLICY_CONFORMANCE"
	CheckFinalizationIntegrity  CheckID = "CHK_FINALIZATION_INTEGRITY"
)

// OrderedCheckIDs is CheckID's mandated execution order.
var OrderedCheckIDs = []CheckID{
	CheckSchemaConformance,
	CheckEventHashIntegrity,
	CheckChainContinuity,
	CheckSignatureValidity,
	CheckKeyStatus,
	CheckArtifactExistence,
	CheckArtifactHashMatch,
	CheckClaimEvidenceSufficient,
	CheckRolePolicyConformance,
	CheckFinalizationIntegrity,
}
