package contracts

import "testing"

func TestIsHex64(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{GenesisPrevHash, true},
		{"a1b2c3d4e5f60718293a4b5c6d7e8f901a2b3c4d5e6f708192a3b4c5d6e7f80", true},
		{"A1B2C3D4E5F60718293A4B5C6D7E8F901A2B3C4D5E6F708192A3B4C5D6E7F80", false}, // uppercase rejected
		{"", false},
		{"deadbeef", false},           // too short
		{GenesisPrevHash + "0", false}, // too long
	}
	for _, c := range cases {
		if got := IsHex64(c.in); got != c.want {
			t.Errorf("IsHex64(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestValidateHex64(t *testing.T) {
	if err := ValidateHex64("artifact_hash", GenesisPrevHash); err != nil {
		t.Fatalf("expected valid hex64 to pass: %v", err)
	}
	if err := ValidateHex64("artifact_hash", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestIsULID(t *testing.T) {
	fresh := NewULID()
	if !IsULID(fresh) {
		t.Fatalf("NewULID produced a non-ULID-shaped id: %q", fresh)
	}
	cases := []struct {
		in   string
		want bool
	}{
		{fresh, true},
		{"01EVT0000000000000000SCN1", false}, // 25 chars, one short
		{"01ILOU00000000000000000000", false}, // I, L, O, U excluded from Crockford
		{"", false},
	}
	for _, c := range cases {
		if got := IsULID(c.in); got != c.want {
			t.Errorf("IsULID(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNewULID_IsLexicographicallySortable(t *testing.T) {
	a := NewULIDAt(1000)
	b := NewULIDAt(2000)
	if a >= b {
		t.Fatalf("expected earlier timestamp to sort first: %q >= %q", a, b)
	}
}

func TestShard(t *testing.T) {
	p1, p2 := Shard(GenesisPrevHash)
	if p1 != "00" || p2 != "00" {
		t.Fatalf("Shard(%q) = (%q, %q), want (00, 00)", GenesisPrevHash, p1, p2)
	}

	p1, p2 = Shard("ab")
	if p1 != "ab" || p2 != "ab" {
		t.Fatalf("Shard of a too-short hash should fall back to the whole string, got (%q, %q)", p1, p2)
	}
}
