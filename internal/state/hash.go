package state

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed journal records.
// Version suffix enables future algorithm migration.
const (
	DomainDelta   = "specular/delta/v1"
	DomainSignal  = "specular/signal/v1"
	DomainPayload = "specular/payload/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PayloadHash computes a content hash for a payload object.
// Stable across peers and restarts given the same payload.
func PayloadHash(payload Object) (string, error) {
	canonical, err := MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("PayloadHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPayload, canonical), nil
}

// DeltaID computes the content-addressed ID of a replicated delta.
// Writing the same delta twice yields the same ID, which is what makes
// journal writes idempotent.
func (d Delta) DeltaID() (string, error) {
	payload := d.Payload
	if payload == nil {
		payload = Object{}
	}
	obj := Object{
		"container": String(d.Container),
		"identity":  String(d.Identity.String()),
		"stamp":     String(d.Stamp.Key.String()),
		"kind":      String(d.Kind.String()),
		"payload":   payload,
		"seq":       Int(d.Seq),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("DeltaID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDelta, canonical), nil
}

// SignalID computes the content-addressed ID of a key lifecycle signal.
func (s KeySignal) SignalID() (string, error) {
	obj := Object{
		"key":     String(s.Key.String()),
		"outcome": String(s.Outcome.String()),
		"seq":     Int(s.Seq),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("SignalID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSignal, canonical), nil
}

// MustPayloadHash is like PayloadHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustPayloadHash(payload Object) string {
	h, err := PayloadHash(payload)
	if err != nil {
		panic(err)
	}
	return h
}
