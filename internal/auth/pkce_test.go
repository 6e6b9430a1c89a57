package auth

import "testing"

func TestNewCodeVerifier_LengthAndUniqueness(t *testing.T) {
	v1, err := NewCodeVerifier()
	if err != nil {
		t.Fatalf("NewCodeVerifier() error = %v", err)
	}
	v2, err := NewCodeVerifier()
	if err != nil {
		t.Fatalf("NewCodeVerifier() error = %v", err)
	}

	if len(v1) != 43 {
		t.Errorf("verifier length = %d, want 43", len(v1))
	}
	if v1 == v2 {
		t.Error("two verifiers should differ")
	}
}

func TestCodeChallenge_RFC7636Vector(t *testing.T) {
	// RFC 7636 Appendix B
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	want := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"

	if got := CodeChallenge(verifier); got != want {
		t.Errorf("CodeChallenge() = %q, want %q", got, want)
	}
}
