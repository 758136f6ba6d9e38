package contracts

// TraceSession is the per-trace metadata record: head hash, counts,
// participants, and lifecycle status.
type TraceSession struct {
	SchemaVersion     string        `json:"schema_version"`
	TraceID           string        `json:"trace_id"`
	TaskID            string        `json:"task_id"`
	StartedAt         string        `json:"started_at"`
	EndedAt           string        `json:"ended_at,omitempty"`
	Status            TraceStatus   `json:"status"`
	Participants      []Role        `json:"participants"`
	HeadEventHash     string        `json:"head_event_hash"`
	EventCount        int           `json:"event_count"`
	ArtifactCount     int           `json:"artifact_count"`
	PolicyProfile     PolicyProfile `json:"policy_profile"`
	ToolVersions      map[string]string `json:"tool_versions,omitempty"`
	ConfigFingerprint string        `json:"config_fingerprint,omitempty"`
}

// NewTraceSession builds a fresh, empty TraceSession at genesis.
func NewTraceSession(traceID, taskID string, participants []Role, profile PolicyProfile) TraceSession {
	return TraceSession{
		SchemaVersion: SchemaVersion,
		TraceID:       traceID,
		TaskID:        taskID,
		StartedAt:     NowISO(),
		Status:        TraceRunning,
		Participants:  participants,
		HeadEventHash: GenesisPrevHash,
		EventCount:    0,
		ArtifactCount: 0,
		PolicyProfile: profile,
	}
}
