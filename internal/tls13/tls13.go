// Copyright 2025 The tlscore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tls13 implements the TLS 1.3 key-schedule derivations this module
// owns, as specified in RFC 8446, Section 7.1: HKDF-Expand-Label and the
// early-secret tree down to the binder keys. Traffic and exporter secrets
// belong to the record layer and are not derived here.
package tls13

import (
	"errors"
	"hash"

	"github.com/mar1xlatino/tlscore/internal/hkdf"
)

// ErrLabelTooLong is returned when the label or context passed to ExpandLabel
// exceeds the maximum allowed length (255 bytes for "tls13 "+label, 255 bytes
// for context).
var ErrLabelTooLong = errors.New("tls13: label or context too long")

// ExpandLabel implements HKDF-Expand-Label from RFC 8446, Section 7.1.
// Returns ErrLabelTooLong if the label (including "tls13 " prefix) or context
// exceeds 255 bytes.
func ExpandLabel[H hash.Hash](h func() H, secret []byte, label string, context []byte, length int) ([]byte, error) {
	if len("tls13 ")+len(label) > 255 || len(context) > 255 {
		return nil, ErrLabelTooLong
	}
	hkdfLabel := make([]byte, 0, 2+1+len("tls13 ")+len(label)+1+len(context))
	hkdfLabel = append(hkdfLabel, byte(length>>8), byte(length))
	hkdfLabel = append(hkdfLabel, byte(len("tls13 ")+len(label)))
	hkdfLabel = append(hkdfLabel, "tls13 "...)
	hkdfLabel = append(hkdfLabel, label...)
	hkdfLabel = append(hkdfLabel, byte(len(context)))
	hkdfLabel = append(hkdfLabel, context...)
	return hkdf.Expand(h, secret, string(hkdfLabel), length)
}

func extract[H hash.Hash](h func() H, newSecret, currentSecret []byte) ([]byte, error) {
	if newSecret == nil {
		newSecret = make([]byte, h().Size())
	}
	return hkdf.Extract(h, newSecret, currentSecret)
}

func deriveSecret[H hash.Hash](h func() H, secret []byte, label string, transcript hash.Hash) ([]byte, error) {
	if transcript == nil {
		transcript = h()
	}
	return ExpandLabel(h, secret, label, transcript.Sum(nil), transcript.Size())
}

const (
	externalBinderLabel   = "ext binder"
	resumptionBinderLabel = "res binder"
)

// EarlySecret is the first secret of the key schedule, extracted from the
// pre-shared key with an empty salt.
type EarlySecret struct {
	secret []byte
	hash   func() hash.Hash
}

func NewEarlySecret[H hash.Hash](h func() H, psk []byte) (*EarlySecret, error) {
	secret, err := extract(h, psk, nil)
	if err != nil {
		return nil, err
	}
	return &EarlySecret{
		secret: secret,
		hash:   func() hash.Hash { return h() },
	}, nil
}

// ExternalBinderKey derives the binder key for an out-of-band provisioned
// PSK. See RFC 8446, Section 7.1 and Section 4.2.11.2.
func (s *EarlySecret) ExternalBinderKey() ([]byte, error) {
	return deriveSecret(s.hash, s.secret, externalBinderLabel, nil)
}

// ResumptionBinderKey derives the binder key for a PSK established by a
// NewSessionTicket from a previous connection.
func (s *EarlySecret) ResumptionBinderKey() ([]byte, error) {
	return deriveSecret(s.hash, s.secret, resumptionBinderLabel, nil)
}
