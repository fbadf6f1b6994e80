// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/habitat-project/habitat/nostr"
)

// Signer produces the signature material the relay protocol requires.
type Signer interface {
	// Pubkey returns the x-only public key, hex-encoded.
	Pubkey() string

	// Sign signs the 32-byte event ID given as hex, returning the
	// hex-encoded schnorr signature.
	Sign(eventID string) (string, error)
}

// ComputeEventID returns the event's canonical ID: the SHA-256 of the
// serialized form [0, pubkey, created_at, kind, tags, content],
// hex-encoded. The serialization uses plain JSON without HTML escaping
// so that every implementation hashing the same event gets the same
// bytes.
func ComputeEventID(event nostr.Event) string {
	tags := event.Tags
	if tags == nil {
		tags = nostr.Tags{}
	}

	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	// Encoding a slice of JSON-safe values cannot fail.
	_ = encoder.Encode([]any{0, event.Pubkey, event.CreatedAt, event.Kind, tags, event.Content})

	// Encoder appends a newline that is not part of the serialization.
	serialized := bytes.TrimRight(buffer.Bytes(), "\n")
	digest := sha256.Sum256(serialized)
	return hex.EncodeToString(digest[:])
}

// KeySigner signs events with a secp256k1 private key (BIP-340
// schnorr).
type KeySigner struct {
	privateKey *btcec.PrivateKey
	pubkey     string
}

// NewKeySigner creates a KeySigner from a hex-encoded 32-byte private
// key.
func NewKeySigner(privateKeyHex string) (*KeySigner, error) {
	raw, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("relay: decoding private key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("relay: private key is %d bytes, want 32", len(raw))
	}

	privateKey, publicKey := btcec.PrivKeyFromBytes(raw)
	return &KeySigner{
		privateKey: privateKey,
		pubkey:     hex.EncodeToString(schnorr.SerializePubKey(publicKey)),
	}, nil
}

// GenerateKeySigner creates a KeySigner with a freshly generated key.
// PrivateKeyHex exposes the key for the caller to store.
func GenerateKeySigner() (*KeySigner, error) {
	privateKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("relay: generating private key: %w", err)
	}
	return &KeySigner{
		privateKey: privateKey,
		pubkey:     hex.EncodeToString(schnorr.SerializePubKey(privateKey.PubKey())),
	}, nil
}

// Pubkey returns the x-only public key, hex-encoded.
func (s *KeySigner) Pubkey() string { return s.pubkey }

// PrivateKeyHex returns the private key, hex-encoded.
func (s *KeySigner) PrivateKeyHex() string {
	return hex.EncodeToString(s.privateKey.Serialize())
}

// Sign signs the event ID.
func (s *KeySigner) Sign(eventID string) (string, error) {
	digest, err := hex.DecodeString(eventID)
	if err != nil || len(digest) != sha256.Size {
		return "", fmt.Errorf("relay: event ID %q is not a 32-byte hex digest", eventID)
	}
	signature, err := schnorr.Sign(s.privateKey, digest)
	if err != nil {
		return "", fmt.Errorf("relay: signing event: %w", err)
	}
	return hex.EncodeToString(signature.Serialize()), nil
}
