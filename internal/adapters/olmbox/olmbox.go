// Package olmbox implements the per-device envelope crypto over NaCl
// box (curve25519 + XSalsa20-Poly1305). It stands in for an Olm stack:
// the session layer only ever sees opaque envelopes.
package olmbox

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/nacl/box"

	"github.com/aaron777collins/haos-rtc/internal/core"
	"github.com/aaron777collins/haos-rtc/internal/domain"
)

// Algorithm labels envelopes produced by this package.
const Algorithm = "m.box.v1.curve25519-xsalsa20-poly1305"

const nonceSize = 24

var (
	ErrUnknownDevice = errors.New("olmbox: no public key registered for device")
	ErrBadEnvelope   = errors.New("olmbox: envelope failed to open")
)

type peerKey struct {
	userID   domain.UserID
	deviceID domain.DeviceID
}

// Box holds this device's keypair and the registered public keys of
// peer devices.
type Box struct {
	priv *[32]byte
	pub  *[32]byte

	mu    sync.RWMutex
	peers map[peerKey]*[32]byte
}

func New() (*Box, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("olmbox: keypair generation: %w", err)
	}
	return &Box{priv: priv, pub: pub, peers: make(map[peerKey]*[32]byte)}, nil
}

// PublicKey returns this device's curve25519 public key, base64.
func (b *Box) PublicKey() string {
	return base64.StdEncoding.EncodeToString(b.pub[:])
}

// RegisterDevice records a peer device's public key so envelopes can be
// addressed to it.
func (b *Box) RegisterDevice(userID domain.UserID, deviceID domain.DeviceID, publicKey string) error {
	raw, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil || len(raw) != 32 {
		return fmt.Errorf("olmbox: bad public key for %s/%s", userID, deviceID)
	}
	var pub [32]byte
	copy(pub[:], raw)
	b.mu.Lock()
	b.peers[peerKey{userID: userID, deviceID: deviceID}] = &pub
	b.mu.Unlock()
	return nil
}

func (b *Box) EncryptFor(ctx context.Context, userID domain.UserID, deviceID domain.DeviceID, plaintext []byte) (core.Envelope, error) {
	b.mu.RLock()
	peer, ok := b.peers[peerKey{userID: userID, deviceID: deviceID}]
	b.mu.RUnlock()
	if !ok {
		return core.Envelope{}, fmt.Errorf("%w: %s/%s", ErrUnknownDevice, userID, deviceID)
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return core.Envelope{}, err
	}
	sealed := box.Seal(nonce[:], plaintext, &nonce, peer, b.priv)
	return core.Envelope{
		Algorithm:  Algorithm,
		SenderKey:  b.PublicKey(),
		Ciphertext: sealed,
	}, nil
}

func (b *Box) Decrypt(ctx context.Context, env core.Envelope) ([]byte, error) {
	if env.Algorithm != Algorithm {
		return nil, fmt.Errorf("olmbox: unsupported algorithm %q", env.Algorithm)
	}
	rawSender, err := base64.StdEncoding.DecodeString(env.SenderKey)
	if err != nil || len(rawSender) != 32 {
		return nil, ErrBadEnvelope
	}
	var sender [32]byte
	copy(sender[:], rawSender)

	if len(env.Ciphertext) < nonceSize {
		return nil, ErrBadEnvelope
	}
	var nonce [nonceSize]byte
	copy(nonce[:], env.Ciphertext[:nonceSize])

	plaintext, ok := box.Open(nil, env.Ciphertext[nonceSize:], &nonce, &sender, b.priv)
	if !ok {
		return nil, ErrBadEnvelope
	}
	return plaintext, nil
}
