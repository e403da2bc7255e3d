package password

import (
	"strings"
	"testing"
)

func TestHashVerify(t *testing.T) {
	hash, err := Hash("s3cret-pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$") {
		t.Fatalf("unexpected encoding %q", hash)
	}
	if !Verify("s3cret-pass", hash) {
		t.Fatal("expected password to verify")
	}
	if Verify("wrong", hash) {
		t.Fatal("expected wrong password to fail")
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$a2V5",
		"$argon2id$v=19$m=0,t=1,p=4$c2FsdA$a2V5",
		"$argon2id$v=19$m=65536,t=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=65536,t=1,p=4$***$a2V5",
	} {
		if Verify("x", encoded) {
			t.Fatalf("expected %q to be rejected", encoded)
		}
	}
}
