package token

import "testing"

func TestFormatAndStrip(t *testing.T) {
	tests := []struct {
		name      string
		prefix    Prefix
		presented string
		want      string
	}{
		{"friend code with prefix", FriendCode, "ttfc_abc123", "abc123"},
		{"friend code without prefix", FriendCode, "abc123", "abc123"},
		{"invite code with prefix", InviteCode, "ttlic_deadbeef", "deadbeef"},
		{"invite code without prefix", InviteCode, "deadbeef", "deadbeef"},
		{"wrong prefix left alone", FriendCode, "ttlic_abc", "ttlic_abc"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.prefix.Strip(tc.presented); got != tc.want {
				t.Errorf("Strip(%q) = %q, want %q", tc.presented, got, tc.want)
			}
		})
	}

	if got := FriendCode.Format("abc"); got != "ttfc_abc" {
		t.Errorf("Format = %q, want ttfc_abc", got)
	}
	if got := InviteCode.Strip(InviteCode.Format("abc")); got != "abc" {
		t.Errorf("Strip(Format) round trip = %q, want abc", got)
	}
}

func TestGenerate(t *testing.T) {
	a, err := Generate(16)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(a) != 32 {
		t.Errorf("Expected 32 hex chars, got %d", len(a))
	}

	b, _ := Generate(16)
	if a == b {
		t.Error("Expected two generated codes to differ")
	}
}
