// Copyright 2025 The tlscore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlscore

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"io"

	"github.com/cloudflare/circl/sign/ed448"
	"golang.org/x/crypto/cryptobyte"

	tlserrors "github.com/mar1xlatino/tlscore/errors"
)

// directSigning is a standard crypto.Hash value signaling that no
// pre-hashing should be applied: the whole content structure is handed to
// the signature algorithm (pure EdDSA).
const directSigning crypto.Hash = 0

// The context strings provide separation between signatures made in
// different contexts, helping against potential cross-protocol attacks.
// Each is a fixed 33-byte label followed by a single zero separator byte.
// See RFC 8446, Section 4.4.3.
const (
	serverSignatureContext = "TLS 1.3, server CertificateVerify\x00"
	clientSignatureContext = "TLS 1.3, client CertificateVerify\x00"
)

var signaturePadding = []byte{
	0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20,
	0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20,
	0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20,
	0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20,
	0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20,
	0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20,
	0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20,
	0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20,
}

// signatureSchemeInfo describes one CertificateVerify scheme: the hash to
// pre-hash the content with (directSigning for pure EdDSA), the certificate
// type the scheme is bound to, and for ECDSA the certificate curve it is
// constrained to. Adding a scheme is a table entry, not a new code path.
type signatureSchemeInfo struct {
	sigHash  crypto.Hash
	certType CertType
	curve    CurveID
}

var tls13SignatureSchemes = map[SignatureScheme]signatureSchemeInfo{
	PSSWithSHA256: {crypto.SHA256, CertTypeRSASign, 0},
	PSSWithSHA384: {crypto.SHA384, CertTypeRSASign, 0},
	PSSWithSHA512: {crypto.SHA512, CertTypeRSASign, 0},

	PSSPSSWithSHA256: {crypto.SHA256, CertTypeRSAPSSSign, 0},
	PSSPSSWithSHA384: {crypto.SHA384, CertTypeRSAPSSSign, 0},
	PSSPSSWithSHA512: {crypto.SHA512, CertTypeRSAPSSSign, 0},

	ECDSAWithP256AndSHA256: {crypto.SHA256, CertTypeECDSASign, CurveP256},
	ECDSAWithP384AndSHA384: {crypto.SHA384, CertTypeECDSASign, CurveP384},
	ECDSAWithP521AndSHA512: {crypto.SHA512, CertTypeECDSASign, CurveP521},

	Ed25519Scheme: {directSigning, CertTypeEd25519Sign, 0},
	Ed448Scheme:   {directSigning, CertTypeEd448Sign, 0},
}

// signedMessage returns the pre-hashed (if necessary) message to be signed
// by certificate keys in TLS 1.3: 64 bytes of 0x20, the context label with
// its zero separator, and the transcript digest. See RFC 8446, Section
// 4.4.3.
func signedMessage(sigHash crypto.Hash, context string, transcriptDigest []byte) []byte {
	if sigHash == directSigning {
		b := &bytes.Buffer{}
		b.Write(signaturePadding)
		io.WriteString(b, context)
		b.Write(transcriptDigest)
		return b.Bytes()
	}
	h := sigHash.New()
	h.Write(signaturePadding)
	io.WriteString(h, context)
	h.Write(transcriptDigest)
	return h.Sum(nil)
}

// signatureContext returns the context label for the given signing role.
// Signing uses the local role; verification uses the peer's role.
func signatureContext(signer Role) string {
	if signer == RoleClient {
		return clientSignatureContext
	}
	return serverSignatureContext
}

// SignCertificateVerify produces the digitally-signed element of the local
// CertificateVerify message: a 2-byte signature scheme identifier followed
// by the 2-byte length-prefixed signature value. The signature covers the
// transcript accumulated so far, which must not yet include the
// CertificateVerify message itself.
func (hs *HandshakeState) SignCertificateVerify() ([]byte, error) {
	if hs.suite == nil || hs.transcript == nil {
		return nil, tlserrors.New("no cipher suite hash negotiated").Base(ErrInvalidState).AtError()
	}
	if hs.Cert == nil || hs.Cert.PrivateKey == nil {
		return nil, tlserrors.New("no local certificate key").Base(ErrInvalidState).AtError()
	}

	info, ok := tls13SignatureSchemes[hs.SignAlgo]
	if !ok {
		return nil, tlserrors.New("unsupported signature algorithm ", uint16(hs.SignAlgo)).Base(ErrUnsupportedAlgorithm).AtError()
	}
	if info.certType != hs.Cert.Type {
		return nil, tlserrors.New("signature algorithm does not match certificate type").Base(ErrUnsupportedAlgorithm).AtError()
	}
	if info.curve != 0 && info.curve != hs.Cert.Curve {
		return nil, tlserrors.New("signature algorithm does not match certificate curve").Base(ErrUnsupportedAlgorithm).AtError()
	}
	if info.sigHash != directSigning && !info.sigHash.Available() {
		return nil, tlserrors.New("signature hash not available").Base(ErrUnsupportedAlgorithm).AtError()
	}

	content := signedMessage(info.sigHash, signatureContext(hs.Role), hs.transcript.Digest())

	var sig []byte
	var err error
	switch hs.Cert.Type {
	case CertTypeRSASign, CertTypeRSAPSSSign:
		// RSA signatures must use an RSASSA-PSS algorithm, regardless of
		// whether RSASSA-PKCS1-v1_5 algorithms appear in
		// signature_algorithms (RFC 8446, Section 4.4.3).
		signOpts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: info.sigHash}
		sig, err = hs.Cert.PrivateKey.Sign(hs.rand(), content, signOpts)
	case CertTypeECDSASign:
		sig, err = hs.Cert.PrivateKey.Sign(hs.rand(), content, info.sigHash)
	case CertTypeEd25519Sign:
		sig, err = hs.Cert.PrivateKey.Sign(hs.rand(), content, directSigning)
	case CertTypeEd448Sign:
		priv, ok := hs.Cert.PrivateKey.(ed448.PrivateKey)
		if !ok {
			return nil, tlserrors.New("expected an Ed448 private key").Base(ErrUnsupportedAlgorithm).AtError()
		}
		sig = ed448.Sign(priv, content, "")
	default:
		return nil, tlserrors.New("unsupported certificate type ", uint8(hs.Cert.Type)).Base(ErrUnsupportedAlgorithm).AtError()
	}
	if err != nil {
		return nil, tlserrors.New("signing handshake: ", err).Base(ErrHandshakeFailed).AtError()
	}

	var b cryptobyte.Builder
	b.AddUint16(uint16(hs.SignAlgo))
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(sig)
	})
	return b.Bytes()
}

// VerifyCertificateVerify checks the digitally-signed element of the peer's
// CertificateVerify message against the current transcript and the peer's
// certificate. Malformed framing is ErrDecodingFailed; everything after a
// successful decode — unknown scheme, certificate-type or curve mismatch,
// or a failing signature — is ErrInvalidSignature, so the result cannot be
// used as a verification oracle.
func (hs *HandshakeState) VerifyCertificateVerify(data []byte) error {
	if hs.suite == nil || hs.transcript == nil {
		return tlserrors.New("no cipher suite hash negotiated").Base(ErrInvalidState).AtError()
	}
	if hs.PeerCert == nil || hs.PeerCert.PublicKey == nil {
		return tlserrors.New("no peer certificate").Base(ErrInvalidState).AtError()
	}

	s := cryptobyte.String(data)
	var scheme uint16
	var sig cryptobyte.String
	if !s.ReadUint16(&scheme) || !s.ReadUint16LengthPrefixed(&sig) || !s.Empty() {
		return tlserrors.New("malformed digitally-signed element").Base(ErrDecodingFailed).AtError()
	}

	info, ok := tls13SignatureSchemes[SignatureScheme(scheme)]
	if !ok {
		return tlserrors.New("unacceptable signature scheme ", scheme).Base(ErrInvalidSignature).AtError()
	}
	if info.certType != hs.PeerCert.Type {
		return tlserrors.New("signature scheme does not match certificate type").Base(ErrInvalidSignature).AtError()
	}
	if info.curve != 0 && info.curve != hs.PeerCert.Curve {
		return tlserrors.New("signature scheme does not match certificate curve").Base(ErrInvalidSignature).AtError()
	}
	if info.sigHash != directSigning && !info.sigHash.Available() {
		return tlserrors.New("signature hash not available").Base(ErrInvalidSignature).AtError()
	}

	// The verify content uses the peer's role label: when we are the
	// client we verify a server CertificateVerify, and vice versa.
	peerRole := RoleServer
	if hs.Role == RoleServer {
		peerRole = RoleClient
	}
	content := signedMessage(info.sigHash, signatureContext(peerRole), hs.transcript.Digest())

	switch info.certType {
	case CertTypeRSASign, CertTypeRSAPSSSign:
		pub, ok := hs.PeerCert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return tlserrors.New("expected an RSA public key").Base(ErrInvalidSignature).AtError()
		}
		signOpts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash}
		if err := rsa.VerifyPSS(pub, info.sigHash, content, sig, signOpts); err != nil {
			return tlserrors.New("RSA-PSS verification failure").Base(ErrInvalidSignature).AtError()
		}
	case CertTypeECDSASign:
		pub, ok := hs.PeerCert.PublicKey.(*ecdsa.PublicKey)
		if !ok {
			return tlserrors.New("expected an ECDSA public key").Base(ErrInvalidSignature).AtError()
		}
		if !ecdsa.VerifyASN1(pub, content, sig) {
			return tlserrors.New("ECDSA verification failure").Base(ErrInvalidSignature).AtError()
		}
	case CertTypeEd25519Sign:
		pub, ok := hs.PeerCert.PublicKey.(ed25519.PublicKey)
		if !ok {
			return tlserrors.New("expected an Ed25519 public key").Base(ErrInvalidSignature).AtError()
		}
		if !ed25519.Verify(pub, content, sig) {
			return tlserrors.New("Ed25519 verification failure").Base(ErrInvalidSignature).AtError()
		}
	case CertTypeEd448Sign:
		pub, ok := hs.PeerCert.PublicKey.(ed448.PublicKey)
		if !ok {
			return tlserrors.New("expected an Ed448 public key").Base(ErrInvalidSignature).AtError()
		}
		if !ed448.Verify(pub, content, sig, "") {
			return tlserrors.New("Ed448 verification failure").Base(ErrInvalidSignature).AtError()
		}
	default:
		return tlserrors.New("unacceptable signature scheme ", scheme).Base(ErrInvalidSignature).AtError()
	}

	return nil
}
