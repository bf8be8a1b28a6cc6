package studentgate

import "testing"

func TestDeriveLoginKey(t *testing.T) {
	cases := []struct {
		identifier string
		want       string
	}{
		{"CSC/2021/001", "csc-2021-001@student.app"},
		{"csc/2021/001", "csc-2021-001@student.app"},
		{"alice", "alice@student.app"},
		{"ALICE", "alice@student.app"},
		{"a\\b", "a-b@student.app"},
		{"MiXeD/Case", "mixed-case@student.app"},
	}

	for _, tc := range cases {
		if got := deriveLoginKey(tc.identifier, "student.app"); got != tc.want {
			t.Errorf("deriveLoginKey(%q) = %q, want %q", tc.identifier, got, tc.want)
		}
	}
}

func TestDeriveLoginKeyDomain(t *testing.T) {
	if got := deriveLoginKey("alice", "example.edu"); got != "alice@example.edu" {
		t.Fatalf("got %q", got)
	}
}

func TestDeriveLoginKeyDeterministic(t *testing.T) {
	a := deriveLoginKey("CSC/2021/001", "student.app")
	b := deriveLoginKey("CSC/2021/001", "student.app")
	if a != b {
		t.Fatalf("expected stable derivation, got %q and %q", a, b)
	}
}
