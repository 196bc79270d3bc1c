// Copyright 2025 The tlscore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlscore

import (
	"crypto"
	"encoding"
	"hash"

	tlserrors "github.com/mar1xlatino/tlscore/errors"
)

// Framing selects the handshake header layout hashed into the transcript.
// The header bytes differ between stream and datagram transports, which
// makes this bit-exact security-relevant state.
type Framing uint8

const (
	// FramingStream is the TLS handshake header: type + 24-bit length.
	FramingStream Framing = iota
	// FramingDatagram is the DTLS handshake header: type + 24-bit length +
	// message sequence + 24-bit fragment offset + 24-bit fragment length.
	FramingDatagram
)

const (
	streamHeaderLen   = 4
	datagramHeaderLen = 12
)

// marshalableHash is the cheap-duplicate contract the transcript requires of
// its hash: every standard-library hash satisfies it.
type marshalableHash interface {
	hash.Hash
	encoding.BinaryMarshaler
}

// Transcript owns the running hash over all handshake messages exchanged so
// far. It supports snapshot-and-extend (hashing a prefix without mutating
// the canonical state) and the HelloRetryRequest retroactive substitution of
// ClientHello1 with a synthetic message-hash record.
type Transcript struct {
	h       hash.Hash
	newHash func() hash.Hash
	framing Framing
	msgSeq  uint16
	retried bool
}

// NewTranscript creates a transcript for the given hash algorithm and
// transport framing. The hash must be available and must support state
// marshaling for the snapshot path.
func NewTranscript(h crypto.Hash, framing Framing) (*Transcript, error) {
	if !h.Available() {
		return nil, tlserrors.New("hash algorithm not available").Base(ErrUnsupportedAlgorithm).AtError()
	}
	canonical := h.New()
	if _, ok := canonical.(marshalableHash); !ok {
		return nil, tlserrors.New("hash state is not clonable").Base(ErrUnsupportedAlgorithm).AtError()
	}
	return &Transcript{
		h:       canonical,
		newHash: h.New,
		framing: framing,
	}, nil
}

// Extend appends message bytes to the canonical running state. The caller
// provides complete handshake records, header included, exactly as they were
// sent or received.
func (t *Transcript) Extend(b []byte) {
	t.h.Write(b)
}

// Size returns the digest size of the transcript's hash algorithm.
func (t *Transcript) Size() int {
	return t.h.Size()
}

// Digest returns the digest of the canonical state without mutating it.
// Used for the CertificateVerify content, which covers the transcript up to
// but not including the CertificateVerify message itself.
func (t *Transcript) Digest() []byte {
	return t.h.Sum(nil)
}

// SetMessageSeq records the outgoing handshake message sequence number used
// by datagram framing headers. Ignored under stream framing.
func (t *Transcript) SetMessageSeq(seq uint16) {
	t.msgSeq = seq
}

// handshakeHeader builds the transcript header for a handshake message of
// the given type and body length under the active framing.
func (t *Transcript) handshakeHeader(msgType uint8, length int) []byte {
	if t.framing == FramingDatagram {
		hdr := make([]byte, datagramHeaderLen)
		hdr[0] = msgType
		hdr[1] = uint8(length >> 16)
		hdr[2] = uint8(length >> 8)
		hdr[3] = uint8(length)
		hdr[4] = uint8(t.msgSeq >> 8)
		hdr[5] = uint8(t.msgSeq)
		// Fragment offset 0, fragment length = length: the transcript
		// always covers whole, unfragmented messages.
		hdr[9] = uint8(length >> 16)
		hdr[10] = uint8(length >> 8)
		hdr[11] = uint8(length)
		return hdr
	}
	return []byte{msgType, uint8(length >> 16), uint8(length >> 8), uint8(length)}
}

// clone duplicates the canonical hash state via binary marshaling.
func (t *Transcript) clone() (hash.Hash, error) {
	m, ok := t.h.(marshalableHash)
	if !ok {
		return nil, tlserrors.New("hash state is not clonable").Base(ErrUnsupportedAlgorithm).AtError()
	}
	state, err := m.MarshalBinary()
	if err != nil {
		return nil, tlserrors.New("marshaling hash state").Base(err).AtError()
	}
	dup := t.newHash()
	u, ok := dup.(encoding.BinaryUnmarshaler)
	if !ok {
		return nil, tlserrors.New("hash state is not clonable").Base(ErrUnsupportedAlgorithm).AtError()
	}
	if err := u.UnmarshalBinary(state); err != nil {
		return nil, tlserrors.New("unmarshaling hash state").Base(err).AtError()
	}
	return dup, nil
}

// SnapshotDigest clones the canonical state, extends the clone with prefix,
// and returns the clone's digest. The canonical state is not mutated, so a
// truncated ClientHello can be hashed for binder computation while the full
// ClientHello still has to enter the transcript later.
func (t *Transcript) SnapshotDigest(prefix []byte) ([]byte, error) {
	dup, err := t.clone()
	if err != nil {
		return nil, err
	}
	dup.Write(prefix)
	return dup.Sum(nil), nil
}

// RetrySubstitute replaces the accumulated ClientHello1 with the synthetic
// message-hash record mandated by RFC 8446, Section 4.4.1: the canonical
// state is finalized to Hash(ClientHello1), reset, and re-extended with a
// handshake record of type message_hash whose body is that digest. Must be
// invoked exactly once, immediately after a HelloRetryRequest is decided and
// before any further message is hashed.
func (t *Transcript) RetrySubstitute() error {
	if t == nil || t.h == nil {
		return tlserrors.New("no transcript hash established").Base(ErrInvalidState).AtError()
	}
	if t.retried {
		return tlserrors.New("transcript already substituted for retry").Base(ErrInvalidState).AtError()
	}
	chHash := t.h.Sum(nil)
	t.h.Reset()
	t.h.Write(t.handshakeHeader(typeMessageHash, len(chHash)))
	t.h.Write(chHash)
	t.retried = true
	return nil
}
