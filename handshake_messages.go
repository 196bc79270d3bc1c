// Copyright 2025 The tlscore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlscore

import (
	"golang.org/x/crypto/cryptobyte"

	tlserrors "github.com/mar1xlatino/tlscore/errors"
)

// CheckDuplicateKeyShare walks a KeyShareEntry list and reports whether the
// candidate group already appears in it. Clients must not offer multiple
// KeyShareEntry values for the same group; servers may check for violations
// of this rule and abort the handshake with an illegal_parameter alert
// (RFC 8446, Section 4.2.8). A list that cannot be fully consumed is
// ErrDecodingFailed.
func CheckDuplicateKeyShare(namedGroup CurveID, keyShares []byte) error {
	s := cryptobyte.String(keyShares)
	for !s.Empty() {
		var group uint16
		var keyExchange cryptobyte.String
		if !s.ReadUint16(&group) || !s.ReadUint16LengthPrefixed(&keyExchange) {
			return tlserrors.New("malformed key share list").Base(ErrDecodingFailed).AtError()
		}
		if CurveID(group) == namedGroup {
			return tlserrors.New("duplicate key share for group ", group).Base(ErrIllegalParameter).AtError()
		}
	}
	return nil
}

// FormatCertExtensions emits an empty CertificateEntry extension list. This
// layer does not originate per-certificate extensions itself: extensions in
// a Certificate message must correspond to ones from the peer's ClientHello
// or CertificateRequest, and those are echoed by the handshake driver.
func FormatCertExtensions() []byte {
	var b cryptobyte.Builder
	b.AddUint16(0)
	return b.BytesOrPanic()
}

// ParseCertExtensions reads the length-prefixed extension list of one
// CertificateEntry, validates it with the hello-extension parser scoped to
// the Certificate message context, and re-validates it semantically for TLS
// 1.3. It returns the number of bytes consumed so the caller can advance
// past this CertificateEntry's extensions.
func ParseCertExtensions(data []byte) (int, error) {
	s := cryptobyte.String(data)
	var extList cryptobyte.String
	if !s.ReadUint16LengthPrefixed(&extList) {
		return 0, tlserrors.New("malformed CertificateEntry extensions").Base(ErrDecodingFailed).AtError()
	}
	consumed := 2 + len(extList)

	exts, err := parseHelloExtensions(typeCertificate, extList)
	if err != nil {
		return 0, err
	}
	if err := checkHelloExtensions(typeCertificate, VersionTLS13, exts); err != nil {
		return 0, err
	}

	return consumed, nil
}
