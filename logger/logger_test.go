package logger

import (
	"strings"
	"testing"
)

func TestRedactHelpersNeverEmitTheValue(t *testing.T) {
	secret := []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x03, 0x04}

	for _, redacted := range []string{
		RedactShare(secret),
		RedactSeed(secret),
		RedactMACKey(secret),
		RedactStaticKey(secret),
	} {
		if strings.Contains(redacted, "deadbeef01020304") {
			t.Fatalf("redacted output leaked the full secret: %q", redacted)
		}
	}
}

func TestRedactBytesReportsLength(t *testing.T) {
	got := RedactShare(make([]byte, 32))
	if !strings.Contains(got, "32B") {
		t.Fatalf("expected redacted share to report its length, got %q", got)
	}
}

func TestRedactBytesHandlesEmpty(t *testing.T) {
	if got := RedactSeed(nil); got != "seed(empty)" {
		t.Fatalf("expected seed(empty), got %q", got)
	}
}
