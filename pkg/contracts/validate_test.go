package contracts

import "testing"

func TestRole_Validate(t *testing.T) {
	for _, r := range []Role{RolePlanner, RoleExecutor, RoleCritic, RoleAuditor} {
		if err := r.Validate(); err != nil {
			t.Errorf("Role(%q).Validate() = %v, want nil", r, err)
		}
	}
	if err := Role("observer").Validate(); err == nil {
		t.Fatal("expected error for a role outside the closed set")
	}
}

func TestEventType_Validate(t *testing.T) {
	for et := range allEventTypes {
		if err := et.Validate(); err != nil {
			t.Errorf("EventType(%q).Validate() = %v, want nil", et, err)
		}
	}
	if err := EventType("session_terminated").Validate(); err == nil {
		t.Fatal("expected error for an event type outside the closed set")
	}
}

func TestPolicyProfile_Validate(t *testing.T) {
	for _, p := range []PolicyProfile{PolicyStrict, PolicyDefault, PolicyLenient} {
		if err := p.Validate(); err != nil {
			t.Errorf("PolicyProfile(%q).Validate() = %v, want nil", p, err)
		}
	}
	if err := PolicyProfile("relaxed").Validate(); err == nil {
		t.Fatal("expected error for a policy profile outside the closed set")
	}
}

func TestSeverity_Less(t *testing.T) {
	if !SeverityCritical.Less(SeverityLow) {
		t.Fatal("critical must rank more severe than low")
	}
	if SeverityLow.Less(SeverityCritical) {
		t.Fatal("low must not rank more severe than critical")
	}
}

func validDescriptor() ArtifactDescriptor {
	return ArtifactDescriptor{
		ArtifactHash:    GenesisPrevHash,
		HashAlgorithm:   "sha256",
		MediaType:       "text/plain",
		ByteSize:        10,
		CreatedAt:       NowISO(),
		ProducerEventID: NewULID(),
		StorageURI:      "local://blob",
		RedactionStatus: RedactionNone,
	}
}

func TestArtifactDescriptor_Validate(t *testing.T) {
	d := validDescriptor()
	if err := d.Validate(); err != nil {
		t.Fatalf("expected valid descriptor to pass: %v", err)
	}

	bad := validDescriptor()
	bad.ArtifactHash = "not-a-hash"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for malformed artifact_hash")
	}

	bad = validDescriptor()
	bad.HashAlgorithm = "md5"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for unsupported hash_algorithm")
	}

	bad = validDescriptor()
	bad.ByteSize = -1
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for negative byte_size")
	}

	bad = validDescriptor()
	bad.RedactionStatus = RedactionStatus("scrubbed")
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for invalid redaction_status")
	}
}

func validEvent() ProtocolEvent {
	return ProtocolEvent{
		SchemaVersion: SchemaVersion,
		TraceID:       NewULID(),
		EventID:       NewULID(),
		EventType:     EventSessionInitialized,
		CreatedAt:     NowISO(),
		Actor:         Actor{AgentID: "agent.planner", Role: RolePlanner, KeyID: "key_abc"},
		PayloadHash:   GenesisPrevHash,
		PrevEventHash: GenesisPrevHash,
		PayloadType:   "application/json",
		Payload:       map[string]interface{}{"ok": true},
	}
}

func TestProtocolEvent_Validate(t *testing.T) {
	e := validEvent()
	if err := e.Validate(); err != nil {
		t.Fatalf("expected valid event to pass: %v", err)
	}

	bad := validEvent()
	bad.EventID = "not-a-ulid"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for malformed event_id")
	}

	bad = validEvent()
	bad.TraceID = "not-a-ulid"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for malformed trace_id")
	}

	bad = validEvent()
	bad.EventType = EventType("bogus")
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for unknown event_type")
	}

	bad = validEvent()
	bad.Actor.Role = Role("bogus")
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for unknown actor role")
	}

	bad = validEvent()
	bad.Actor.AgentID = ""
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for missing actor.agent_id")
	}

	bad = validEvent()
	bad.Claims = []string{"not-prefixed"}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for a claim id missing the claim_ prefix")
	}

	bad = validEvent()
	bad.Artifacts = []ArtifactDescriptor{{ArtifactHash: "bad"}}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error to propagate from a malformed nested artifact descriptor")
	}
}

func TestProtocolEvent_WithoutEventHash(t *testing.T) {
	e := validEvent()
	e.EventHash = GenesisPrevHash
	cleared := e.WithoutEventHash()
	if cleared.EventHash != "" {
		t.Fatalf("expected EventHash cleared, got %q", cleared.EventHash)
	}
	if e.EventHash == "" {
		t.Fatal("WithoutEventHash must not mutate the receiver")
	}
}
