// Copyright 2025 The tlscore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlscore

import (
	tlserrors "github.com/mar1xlatino/tlscore/errors"
	"github.com/mar1xlatino/tlscore/internal/tls13"
)

// isPSKValid reports whether the externally established PSK credential can
// be used. The hash algorithm must resolve, the key must be non-empty, and a
// client must also carry an identity to offer.
func (hs *HandshakeState) isPSKValid() bool {
	psk := hs.PSK
	if psk == nil || !psk.Hash.Available() {
		return false
	}
	if len(psk.Key) == 0 {
		return false
	}
	if hs.Role == RoleClient && len(psk.Identity) == 0 {
		return false
	}
	return true
}

// isTicketValid reports whether the resumption-ticket credential can be
// used. The hash algorithm must resolve, the resumption secret must be
// non-empty, and a client must also carry the ticket blob to offer.
func (hs *HandshakeState) isTicketValid() bool {
	ticket := hs.Ticket
	if ticket == nil || !ticket.Hash.Available() {
		return false
	}
	if len(ticket.PSK) == 0 {
		return false
	}
	if hs.Role == RoleClient && len(ticket.Ticket) == 0 {
		return false
	}
	return true
}

// ComputePSKBinder computes the PskBinderEntry value for the ClientHello.
// clientHello is the complete message body (without handshake header);
// truncatedLen is the number of leading bytes covered by the binder, up to
// but excluding the binders list; binderLen is the expected binder length
// and must equal the PRF hash digest size.
//
// The transcript digest is taken over the handshake header for the full
// ClientHello length followed by the truncated body, through the transcript
// snapshot path, so the canonical transcript state is not disturbed. The
// PskBinderEntry is computed in the same way as the Finished message but
// with the base key being the binder key. See RFC 8446, Section 4.2.11.2.
func (hs *HandshakeState) ComputePSKBinder(clientHello []byte, truncatedLen, binderLen int) ([]byte, error) {
	if truncatedLen >= len(clientHello) {
		return nil, tlserrors.New("truncated ClientHello not shorter than full message").Base(ErrInvalidParameter).AtError()
	}
	if hs.suite == nil {
		return nil, tlserrors.New("no cipher suite hash negotiated").Base(ErrInvalidState).AtError()
	}
	if binderLen != hs.suite.hash.Size() {
		return nil, tlserrors.New("binder length does not match digest size").Base(ErrInvalidLength).AtError()
	}

	header := hs.transcript.handshakeHeader(typeClientHello, len(clientHello))
	prefix := make([]byte, 0, len(header)+truncatedLen)
	prefix = append(prefix, header...)
	prefix = append(prefix, clientHello[:truncatedLen]...)
	transcriptDigest, err := hs.transcript.SnapshotDigest(prefix)
	if err != nil {
		return nil, err
	}

	// Although PSKs can be established out of band, PSKs can also be
	// established in a previous connection.
	var binderKey []byte
	if hs.isPSKValid() {
		earlySecret, err := tls13.NewEarlySecret(hs.suite.hash.New, hs.PSK.Key)
		if err != nil {
			return nil, tlserrors.New("extracting early secret: ", err).Base(ErrKeyDerivationFailed).AtError()
		}
		binderKey, err = earlySecret.ExternalBinderKey()
		if err != nil {
			return nil, tlserrors.New("deriving external binder key: ", err).Base(ErrKeyDerivationFailed).AtError()
		}
	} else if hs.isTicketValid() {
		earlySecret, err := tls13.NewEarlySecret(hs.suite.hash.New, hs.Ticket.PSK)
		if err != nil {
			return nil, tlserrors.New("extracting early secret: ", err).Base(ErrKeyDerivationFailed).AtError()
		}
		binderKey, err = earlySecret.ResumptionBinderKey()
		if err != nil {
			return nil, tlserrors.New("deriving resumption binder key: ", err).Base(ErrKeyDerivationFailed).AtError()
		}
	} else {
		return nil, tlserrors.New("no valid pre-shared key to bind").Base(ErrInvalidState).AtError()
	}

	return hs.suite.finishedHashConstantTime(binderKey, transcriptDigest)
}
