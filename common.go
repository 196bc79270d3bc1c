// Copyright 2025 The tlscore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tlscore implements the cryptographic support operations for the
// TLS 1.3 handshake: PSK binder computation, ephemeral key-share generation
// and shared-secret derivation for elliptic-curve and finite-field groups,
// CertificateVerify signing and verification, transcript-hash lifecycle
// management including the HelloRetryRequest message-hash substitution, and
// wire-level validation of key-share and certificate-extension lists.
//
// The package does not implement the handshake state machine, the record
// layer, or certificate chain validation; an external driver sequences the
// operations exposed here on a per-connection HandshakeState.
package tlscore

import (
	"crypto"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	_ "crypto/sha256"
	_ "crypto/sha512"
)

// Error kinds. Every failure reported by this package wraps exactly one of
// these sentinels, so callers can map it to the proper protocol alert with
// errors.Is. See RFC 8446, Section 6.
var (
	// ErrDecodingFailed reports malformed or truncated wire input.
	ErrDecodingFailed = errors.New("tlscore: decoding failed")
	// ErrIllegalParameter reports structurally valid but policy-violating
	// input, such as a duplicate key share or an unsupported group.
	ErrIllegalParameter = errors.New("tlscore: illegal parameter")
	// ErrInvalidSignature reports a signature verification or
	// scheme-binding failure. Malformed signature values map here too, so
	// the caller cannot be used as a verification oracle.
	ErrInvalidSignature = errors.New("tlscore: invalid signature")
	// ErrUnsupportedAlgorithm reports an algorithm that is not compiled in
	// or not resolvable at runtime.
	ErrUnsupportedAlgorithm = errors.New("tlscore: unsupported algorithm")
	// ErrInvalidState reports a precondition failure: a caller sequencing
	// bug or a genuinely absent credential.
	ErrInvalidState = errors.New("tlscore: invalid state")
	// ErrHandshakeFailed reports a fatal key-exchange failure.
	ErrHandshakeFailed = errors.New("tlscore: handshake failed")
	// ErrInvalidLength reports an output-length mismatch.
	ErrInvalidLength = errors.New("tlscore: invalid length")
	// ErrInvalidParameter reports an out-of-range argument.
	ErrInvalidParameter = errors.New("tlscore: invalid parameter")
	// ErrKeyDerivationFailed reports an HKDF primitive failure.
	ErrKeyDerivationFailed = errors.New("tlscore: key derivation failed")
)

// VersionTLS13 is the wire value of the TLS 1.3 protocol version.
const VersionTLS13 uint16 = 0x0304

// Role is the connection end this state belongs to.
type Role uint8

const (
	RoleClient Role = iota
	RoleServer
)

// TLS handshake message types.
const (
	typeClientHello         uint8 = 1
	typeServerHello         uint8 = 2
	typeEncryptedExtensions uint8 = 8
	typeCertificate         uint8 = 11
	typeCertificateRequest  uint8 = 13
	typeCertificateVerify   uint8 = 15
	typeFinished            uint8 = 20
	typeMessageHash         uint8 = 254 // synthetic message
)

// CurveID is the type of a TLS identifier for a named group. Both
// elliptic-curve groups and RFC 7919 finite-field groups share this
// namespace. See RFC 8446, Section 4.2.7.
type CurveID uint16

const (
	CurveP224 CurveID = 21
	CurveP256 CurveID = 23
	CurveP384 CurveID = 24
	CurveP521 CurveID = 25
	X25519    CurveID = 29
	X448      CurveID = 30

	CurveFFDHE2048 CurveID = 0x0100
	CurveFFDHE3072 CurveID = 0x0101
	CurveFFDHE4096 CurveID = 0x0102
	CurveFFDHE6144 CurveID = 0x0103
	CurveFFDHE8192 CurveID = 0x0104
)

func (c CurveID) String() string {
	switch c {
	case CurveP224:
		return "secp224r1"
	case CurveP256:
		return "secp256r1"
	case CurveP384:
		return "secp384r1"
	case CurveP521:
		return "secp521r1"
	case X25519:
		return "x25519"
	case X448:
		return "x448"
	case CurveFFDHE2048:
		return "ffdhe2048"
	case CurveFFDHE3072:
		return "ffdhe3072"
	case CurveFFDHE4096:
		return "ffdhe4096"
	case CurveFFDHE6144:
		return "ffdhe6144"
	case CurveFFDHE8192:
		return "ffdhe8192"
	}
	return fmt.Sprintf("CurveID(%d)", uint16(c))
}

// SignatureScheme identifies a signature algorithm supported for
// CertificateVerify. See RFC 8446, Section 4.2.3.
type SignatureScheme uint16

const (
	// RSASSA-PSS algorithms with public key OID rsaEncryption.
	PSSWithSHA256 SignatureScheme = 0x0804
	PSSWithSHA384 SignatureScheme = 0x0805
	PSSWithSHA512 SignatureScheme = 0x0806

	// RSASSA-PSS algorithms with public key OID RSASSA-PSS.
	PSSPSSWithSHA256 SignatureScheme = 0x0809
	PSSPSSWithSHA384 SignatureScheme = 0x080a
	PSSPSSWithSHA512 SignatureScheme = 0x080b

	// ECDSA algorithms. Only constrained to a specific curve in TLS 1.3.
	ECDSAWithP256AndSHA256 SignatureScheme = 0x0403
	ECDSAWithP384AndSHA384 SignatureScheme = 0x0503
	ECDSAWithP521AndSHA512 SignatureScheme = 0x0603

	// EdDSA algorithms.
	Ed25519Scheme SignatureScheme = 0x0807
	Ed448Scheme   SignatureScheme = 0x0808
)

func (s SignatureScheme) String() string {
	switch s {
	case PSSWithSHA256:
		return "rsa_pss_rsae_sha256"
	case PSSWithSHA384:
		return "rsa_pss_rsae_sha384"
	case PSSWithSHA512:
		return "rsa_pss_rsae_sha512"
	case PSSPSSWithSHA256:
		return "rsa_pss_pss_sha256"
	case PSSPSSWithSHA384:
		return "rsa_pss_pss_sha384"
	case PSSPSSWithSHA512:
		return "rsa_pss_pss_sha512"
	case ECDSAWithP256AndSHA256:
		return "ecdsa_secp256r1_sha256"
	case ECDSAWithP384AndSHA384:
		return "ecdsa_secp384r1_sha384"
	case ECDSAWithP521AndSHA512:
		return "ecdsa_secp521r1_sha512"
	case Ed25519Scheme:
		return "ed25519"
	case Ed448Scheme:
		return "ed448"
	}
	return fmt.Sprintf("SignatureScheme(0x%04x)", uint16(s))
}

// CertType constrains which signature schemes a certificate's key may be
// used with. Verification enforces this binding strictly.
type CertType uint8

const (
	CertTypeRSASign CertType = iota + 1
	CertTypeRSAPSSSign
	CertTypeECDSASign
	CertTypeEd25519Sign
	CertTypeEd448Sign
)

// TLS 1.3 cipher suite identifiers. Only the PRF hash matters to this
// package; the AEAD is the record layer's concern.
const (
	TLS_AES_128_GCM_SHA256       uint16 = 0x1301
	TLS_AES_256_GCM_SHA384       uint16 = 0x1302
	TLS_CHACHA20_POLY1305_SHA256 uint16 = 0x1303
)

// cipherSuiteTLS13 defines the PRF hash of an AEAD cipher suite from RFC
// 8446, Appendix B.4.
type cipherSuiteTLS13 struct {
	id   uint16
	hash crypto.Hash
}

var cipherSuitesTLS13 = []*cipherSuiteTLS13{
	{TLS_AES_128_GCM_SHA256, crypto.SHA256},
	{TLS_CHACHA20_POLY1305_SHA256, crypto.SHA256},
	{TLS_AES_256_GCM_SHA384, crypto.SHA384},
}

func cipherSuiteTLS13ByID(id uint16) *cipherSuiteTLS13 {
	for _, cipherSuite := range cipherSuitesTLS13 {
		if cipherSuite.id == id {
			return cipherSuite
		}
	}
	return nil
}

// helloRetryRequestRandom is the sentinel ServerHello.random value that
// marks a HelloRetryRequest. See RFC 8446, Section 4.1.3.
var helloRetryRequestRandom = []byte{
	0xCF, 0x21, 0xAD, 0x74, 0xE5, 0x9A, 0x61, 0x11,
	0xBE, 0x1D, 0x8C, 0x02, 0x1E, 0x65, 0xB8, 0x91,
	0xC2, 0xA2, 0x11, 0x16, 0x7A, 0xBB, 0x8C, 0x5E,
	0x07, 0x9E, 0x09, 0xE2, 0xC8, 0xA8, 0x33, 0x9C,
}

// Downgrade protection canaries placed in the last 8 bytes of
// ServerHello.random by a TLS 1.3 server negotiating an older version.
// See RFC 8446, Section 4.1.3.
var (
	downgradeCanaryTLS12 = []byte{0x44, 0x4F, 0x57, 0x4E, 0x47, 0x52, 0x44, 0x01}
	downgradeCanaryTLS11 = []byte{0x44, 0x4F, 0x57, 0x4E, 0x47, 0x52, 0x44, 0x00}
)

// PreSharedKey is an externally established PSK credential.
type PreSharedKey struct {
	Key      []byte
	Identity []byte
	Hash     crypto.Hash
}

// SessionTicket is a PSK credential established by a NewSessionTicket from a
// previous connection.
type SessionTicket struct {
	PSK    []byte
	Ticket []byte
	Hash   crypto.Hash
}

// Certificate describes the key material and constraints of one end's
// certificate as far as CertificateVerify is concerned. PrivateKey is only
// set for the local certificate; PublicKey only for the peer's.
type Certificate struct {
	PrivateKey crypto.Signer
	PublicKey  crypto.PublicKey
	Type       CertType
	Curve      CurveID // curve of an ECDSA certificate key, zero otherwise
}

// HandshakeState is the per-connection cryptographic handshake state. It is
// owned by exactly one handshake flow at a time; the methods on it are not
// safe for concurrent use on the same value, but independent states may be
// driven concurrently.
type HandshakeState struct {
	Role Role

	// Rand is the source of ephemeral key material. crypto/rand.Reader is
	// used when nil.
	Rand io.Reader

	// Framing selects the handshake header layout fed to the transcript:
	// stream (TLS) or datagram (DTLS).
	Framing Framing

	// PSK credentials for binder computation. An externally established
	// PSK takes precedence over a resumption ticket when both are valid.
	PSK    *PreSharedKey
	Ticket *SessionTicket

	// Cert is the local certificate used for signing; PeerCert describes
	// the peer's certificate for verification.
	Cert     *Certificate
	PeerCert *Certificate

	// SignAlgo is the negotiated signature algorithm for the local
	// CertificateVerify.
	SignAlgo SignatureScheme

	suite      *cipherSuiteTLS13
	transcript *Transcript

	keyShare        keySharePrivateKeys
	sharedSecret    [maxSharedSecretSize]byte
	sharedSecretLen int
}

func (hs *HandshakeState) rand() io.Reader {
	if hs.Rand != nil {
		return hs.Rand
	}
	return rand.Reader
}

// SetCipherSuite fixes the negotiated cipher suite and creates the
// transcript hash for its PRF hash algorithm. It must be called before any
// transcript, binder, or signature operation.
func (hs *HandshakeState) SetCipherSuite(id uint16) error {
	suite := cipherSuiteTLS13ByID(id)
	if suite == nil || !suite.hash.Available() {
		return ErrUnsupportedAlgorithm
	}
	transcript, err := NewTranscript(suite.hash, hs.Framing)
	if err != nil {
		return err
	}
	hs.suite = suite
	hs.transcript = transcript
	return nil
}

// Transcript returns the connection's transcript hash manager, or nil if no
// cipher suite has been established yet.
func (hs *HandshakeState) Transcript() *Transcript {
	return hs.transcript
}

// Zero wipes the connection-owned secret material: the shared-secret buffer
// and any finite-field private exponent. It must be called on connection
// teardown or before the state is reused.
func (hs *HandshakeState) Zero() {
	for i := range hs.sharedSecret {
		hs.sharedSecret[i] = 0
	}
	hs.sharedSecretLen = 0
	if hs.keyShare.ffdhe != nil {
		hs.keyShare.ffdhe.Zero()
	}
	hs.keyShare = keySharePrivateKeys{}
}
