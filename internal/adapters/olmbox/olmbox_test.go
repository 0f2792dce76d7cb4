package olmbox

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/aaron777collins/haos-rtc/internal/core"
)

func pair(t *testing.T) (*Box, *Box) {
	t.Helper()
	alice, err := New()
	if err != nil {
		t.Fatal(err)
	}
	bob, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if err := alice.RegisterDevice("@bob:example", "BOB1", bob.PublicKey()); err != nil {
		t.Fatal(err)
	}
	return alice, bob
}

func TestRoundTrip(t *testing.T) {
	alice, bob := pair(t)
	ctx := context.Background()

	env, err := alice.EncryptFor(ctx, "@bob:example", "BOB1", []byte("key material"))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(env.Ciphertext, []byte("key material")) {
		t.Fatal("plaintext visible in envelope")
	}

	got, err := bob.Decrypt(ctx, env)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("key material")) {
		t.Fatalf("decrypted %q", got)
	}
}

func TestEncryptForUnknownDevice(t *testing.T) {
	alice, _ := pair(t)
	_, err := alice.EncryptFor(context.Background(), "@carol:example", "C1", []byte("x"))
	if !errors.Is(err, ErrUnknownDevice) {
		t.Fatalf("err = %v, want ErrUnknownDevice", err)
	}
}

func TestDecryptWrongRecipient(t *testing.T) {
	alice, _ := pair(t)
	eve, err := New()
	if err != nil {
		t.Fatal(err)
	}

	env, err := alice.EncryptFor(context.Background(), "@bob:example", "BOB1", []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eve.Decrypt(context.Background(), env); err == nil {
		t.Fatal("envelope opened by a non-recipient")
	}
}

func TestDecryptTamperedEnvelope(t *testing.T) {
	alice, bob := pair(t)
	env, err := alice.EncryptFor(context.Background(), "@bob:example", "BOB1", []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	env.Ciphertext[len(env.Ciphertext)-1] ^= 0xff
	if _, err := bob.Decrypt(context.Background(), env); !errors.Is(err, ErrBadEnvelope) {
		t.Fatalf("err = %v, want ErrBadEnvelope", err)
	}
}

func TestDecryptRejectsForeignAlgorithm(t *testing.T) {
	_, bob := pair(t)
	_, err := bob.Decrypt(context.Background(), core.Envelope{Algorithm: "m.olm.v1.curve25519-aes-sha2"})
	if err == nil {
		t.Fatal("foreign algorithm accepted")
	}
}
