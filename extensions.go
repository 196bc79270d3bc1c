// Copyright 2025 The tlscore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlscore

import (
	"golang.org/x/crypto/cryptobyte"

	tlserrors "github.com/mar1xlatino/tlscore/errors"
)

// TLS extension numbers used by the extension checker.
const (
	extensionServerName          uint16 = 0
	extensionStatusRequest       uint16 = 5
	extensionSupportedGroups     uint16 = 10
	extensionSignatureAlgorithms uint16 = 13
	extensionSCT                 uint16 = 18
	extensionSupportedVersions   uint16 = 43
	extensionCookie              uint16 = 44
	extensionKeyShare            uint16 = 51
)

// helloExtension is one parsed extension record.
type helloExtension struct {
	extType uint16
	data    []byte
}

// parseHelloExtensions parses a list of extension records (without the
// 2-byte list length prefix) for the given handshake message context.
// Structural problems, including a repeated extension type, are
// ErrDecodingFailed.
func parseHelloExtensions(msgType uint8, data []byte) ([]helloExtension, error) {
	var exts []helloExtension
	seen := make(map[uint16]bool)

	s := cryptobyte.String(data)
	for !s.Empty() {
		var extType uint16
		var extData cryptobyte.String
		if !s.ReadUint16(&extType) || !s.ReadUint16LengthPrefixed(&extData) {
			return nil, tlserrors.New("malformed extension list").Base(ErrDecodingFailed).AtError()
		}
		// There must not be more than one extension of the same type in a
		// given extension block (RFC 8446, Section 4.2).
		if seen[extType] {
			return nil, tlserrors.New("repeated extension ", extType).Base(ErrDecodingFailed).AtError()
		}
		seen[extType] = true
		exts = append(exts, helloExtension{extType: extType, data: extData})
	}
	return exts, nil
}

// extensionsAllowedInCertificate lists the extensions a CertificateEntry
// may carry in TLS 1.3 (RFC 8446, Section 4.4.2): only responses to
// extensions the peer offered in its ClientHello or CertificateRequest.
var extensionsAllowedInCertificate = map[uint16]bool{
	extensionStatusRequest: true,
	extensionSCT:           true,
}

// checkHelloExtensions re-validates a parsed extension list semantically for
// the given protocol version and message context. An extension that is not
// permitted in the context is ErrIllegalParameter.
func checkHelloExtensions(msgType uint8, version uint16, exts []helloExtension) error {
	if version != VersionTLS13 {
		return tlserrors.New("unsupported protocol version ", version).Base(ErrIllegalParameter).AtError()
	}
	for _, ext := range exts {
		switch msgType {
		case typeCertificate:
			if !extensionsAllowedInCertificate[ext.extType] {
				return tlserrors.New("extension ", ext.extType, " not permitted in Certificate").Base(ErrIllegalParameter).AtError()
			}
		default:
			return tlserrors.New("unsupported message context ", msgType).Base(ErrIllegalParameter).AtError()
		}
	}
	return nil
}
