package contracts

// Check is the outcome of one of the ten mandatory verifier checks.
type Check struct {
	CheckID   CheckID     `json:"check_id"`
	Name      string      `json:"name"`
	Status    CheckStatus `json:"status"`
	Scope     string      `json:"scope"`
	Evidence  []string    `json:"evidence,omitempty"`
	ElapsedMs int64       `json:"elapsed_ms"`
}

// Failure is a single integrity or policy violation surfaced by the
// verifier. Failures never panic or raise — they are data.
type Failure struct {
	FailureCode            FailureCode `json:"failure_code"`
	Severity                Severity    `json:"severity"`
	EventID                 string      `json:"event_id,omitempty"`
	ArtifactHash            string      `json:"artifact_hash,omitempty"`
	Message                 string      `json:"message"`
	SuggestedAction         string      `json:"suggested_action"`
	DetectedAt              string      `json:"detected_at"`
	Description             string      `json:"description"`
	VerificationStep        CheckID     `json:"verification_step"`
	RecommendedRemediation  string      `json:"recommended_remediation"`
}

// Warning is a non-fatal observation (e.g. a disputed-but-unresolved claim
// under a lenient policy profile).
type Warning struct {
	Code             string  `json:"code"`
	EventID          string  `json:"event_id,omitempty"`
	Message          string  `json:"message"`
	VerificationStep CheckID `json:"verification_step"`
}

// Metrics summarizes the scale and cost of a verification run.
type Metrics struct {
	EventCount              int   `json:"event_count"`
	ArtifactReferenceCount  int   `json:"artifact_reference_count"`
	VerificationDurationMs  int64 `json:"verification_duration_ms"`
}

// VerificationReport is the full structured output of one verifier run.
type VerificationReport struct {
	ReportID           string              `json:"report_id"`
	TraceID            string              `json:"trace_id"`
	VerifiedAt         string              `json:"verified_at"`
	VerificationStatus VerificationStatus  `json:"verification_status"`
	Summary            string              `json:"summary"`
	Checks             []Check             `json:"checks"`
	Failures           []Failure           `json:"failures"`
	Warnings           []Warning           `json:"warnings"`
	Metrics            Metrics             `json:"metrics"`
	PolicyProfile      PolicyProfile       `json:"policy_profile"`
}
