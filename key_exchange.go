// Copyright 2025 The tlscore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlscore

import (
	"crypto/ecdh"
	"io"
	"math/big"

	"github.com/cloudflare/circl/dh/x448"

	tlserrors "github.com/mar1xlatino/tlscore/errors"
)

// maxSharedSecretSize is the byte length of the largest supported shared
// secret, the ffdhe8192 modulus. Both key-exchange paths write into one
// fixed-capacity connection-owned buffer of this size, so the hot path does
// not allocate per call.
const maxSharedSecretSize = 1024

// keySharePrivateKeys holds the locally generated ephemeral key pair for
// the currently negotiated group. It is overwritten on each new key-share
// generation.
type keySharePrivateKeys struct {
	group   CurveID
	ecdhe   *ecdh.PrivateKey
	x448Sec *x448.Key
	x448Pub *x448.Key
	ffdhe   *ffdhePrivateKey
}

var ecdheGroups = []CurveID{CurveP224, CurveP256, CurveP384, CurveP521, X25519, X448}
var ffdheGroups = []CurveID{CurveFFDHE2048, CurveFFDHE3072, CurveFFDHE4096, CurveFFDHE6144, CurveFFDHE8192}

func curveForCurveID(id CurveID) (ecdh.Curve, bool) {
	switch id {
	case X25519:
		return ecdh.X25519(), true
	case CurveP256:
		return ecdh.P256(), true
	case CurveP384:
		return ecdh.P384(), true
	case CurveP521:
		return ecdh.P521(), true
	default:
		return nil, false
	}
}

// SupportsECDHEGroup reports whether namedGroup is an elliptic-curve group
// with an available implementation. Class membership alone is not enough:
// secp224r1 is a member of the class but has no implementation here.
func (hs *HandshakeState) SupportsECDHEGroup(namedGroup CurveID) bool {
	member := false
	for _, g := range ecdheGroups {
		if g == namedGroup {
			member = true
			break
		}
	}
	if !member {
		return false
	}
	if namedGroup == X448 {
		return true
	}
	_, ok := curveForCurveID(namedGroup)
	return ok
}

// SupportsFFDHEGroup reports whether namedGroup is a finite-field group with
// known RFC 7919 parameters.
func (hs *HandshakeState) SupportsFFDHEGroup(namedGroup CurveID) bool {
	for _, g := range ffdheGroups {
		if g == namedGroup {
			return getFFDHEGroupParams(namedGroup) != nil
		}
	}
	return false
}

// SupportsGroup reports whether namedGroup can be used for key exchange.
func (hs *HandshakeState) SupportsGroup(namedGroup CurveID) bool {
	return hs.SupportsECDHEGroup(namedGroup) || hs.SupportsFFDHEGroup(namedGroup)
}

// GenerateKeyShare generates an ephemeral key pair for namedGroup and
// records the group as negotiated. Any capability miss or generation failure
// is reported as ErrIllegalParameter; the caller should abort the handshake
// with a protocol alert rather than retry.
func (hs *HandshakeState) GenerateKeyShare(namedGroup CurveID) error {
	switch {
	case hs.SupportsECDHEGroup(namedGroup):
		if namedGroup == X448 {
			var secret, public x448.Key
			if _, err := io.ReadFull(hs.rand(), secret[:]); err != nil {
				return tlserrors.New("generating X448 key: ", err).Base(ErrIllegalParameter).AtError()
			}
			x448.KeyGen(&public, &secret)
			hs.keyShare = keySharePrivateKeys{group: namedGroup, x448Sec: &secret, x448Pub: &public}
			return nil
		}
		curve, ok := curveForCurveID(namedGroup)
		if !ok {
			return tlserrors.New("unsupported elliptic curve ", uint16(namedGroup)).Base(ErrIllegalParameter).AtError()
		}
		key, err := curve.GenerateKey(hs.rand())
		if err != nil {
			return tlserrors.New("generating ECDHE key: ", err).Base(ErrIllegalParameter).AtError()
		}
		hs.keyShare = keySharePrivateKeys{group: namedGroup, ecdhe: key}
		return nil

	case hs.SupportsFFDHEGroup(namedGroup):
		params := getFFDHEGroupParams(namedGroup)
		if params == nil {
			return tlserrors.New("unsupported FFDHE group ", uint16(namedGroup)).Base(ErrIllegalParameter).AtError()
		}
		key, err := generateFFDHEKey(hs.rand(), namedGroup)
		if err != nil {
			return tlserrors.New("generating FFDHE key: ", err).Base(ErrIllegalParameter).AtError()
		}
		hs.keyShare = keySharePrivateKeys{group: namedGroup, ffdhe: key}
		return nil

	default:
		return tlserrors.New("unsupported named group ", uint16(namedGroup)).Base(ErrIllegalParameter).AtError()
	}
}

// PublicKeyShare returns the wire encoding of the local ephemeral public
// value for the negotiated group, or nil if no key share was generated.
func (hs *HandshakeState) PublicKeyShare() []byte {
	switch {
	case hs.keyShare.ecdhe != nil:
		return hs.keyShare.ecdhe.PublicKey().Bytes()
	case hs.keyShare.x448Pub != nil:
		return hs.keyShare.x448Pub[:]
	case hs.keyShare.ffdhe != nil:
		return hs.keyShare.ffdhe.PublicKeyBytes()
	default:
		return nil
	}
}

// DeriveSharedSecret imports and validates the peer's public value for the
// already negotiated group and computes the shared secret into the
// connection's fixed buffer. Elliptic-curve secrets follow the IEEE
// 1363-2000 convention; finite-field secrets are left padded with zeros up
// to the size of the prime (RFC 8446, Sections 7.4.1 and 7.4.2). Every
// failure is ErrHandshakeFailed, and no partial secret is retained.
func (hs *HandshakeState) DeriveSharedSecret(peerKeyShare []byte) error {
	hs.sharedSecretLen = 0

	switch {
	case hs.SupportsECDHEGroup(hs.keyShare.group):
		if hs.keyShare.group == X448 {
			if hs.keyShare.x448Sec == nil || len(peerKeyShare) != x448.Size {
				return tlserrors.New("malformed X448 key share").Base(ErrHandshakeFailed).AtError()
			}
			var peer, shared x448.Key
			copy(peer[:], peerKeyShare)
			if !x448.Shared(&shared, hs.keyShare.x448Sec, &peer) {
				return tlserrors.New("low-order X448 point").Base(ErrHandshakeFailed).AtError()
			}
			hs.sharedSecretLen = copy(hs.sharedSecret[:], shared[:])
			return nil
		}
		if hs.keyShare.ecdhe == nil {
			return tlserrors.New("no ephemeral key generated").Base(ErrHandshakeFailed).AtError()
		}
		// NewPublicKey rejects points not on the curve and the point at
		// infinity (RFC 8446, Section 4.2.8.2).
		peerKey, err := hs.keyShare.ecdhe.Curve().NewPublicKey(peerKeyShare)
		if err != nil {
			return tlserrors.New("importing peer public key: ", err).Base(ErrHandshakeFailed).AtError()
		}
		secret, err := hs.keyShare.ecdhe.ECDH(peerKey)
		if err != nil {
			return tlserrors.New("computing ECDH shared secret: ", err).Base(ErrHandshakeFailed).AtError()
		}
		hs.sharedSecretLen = copy(hs.sharedSecret[:], secret)
		return nil

	case hs.SupportsFFDHEGroup(hs.keyShare.group):
		if hs.keyShare.ffdhe == nil {
			return tlserrors.New("no ephemeral key generated").Base(ErrHandshakeFailed).AtError()
		}
		secret, err := hs.keyShare.ffdhe.SharedSecret(peerKeyShare)
		if err != nil {
			return tlserrors.New("computing DH shared secret: ", err).Base(ErrHandshakeFailed).AtError()
		}
		hs.sharedSecretLen = copy(hs.sharedSecret[:], secret)
		return nil

	default:
		return tlserrors.New("no negotiated key exchange group").Base(ErrHandshakeFailed).AtError()
	}
}

// SharedSecret returns a view of the derived shared secret, or nil if none
// has been derived. The bytes alias the connection-owned buffer and are
// invalidated by Zero.
func (hs *HandshakeState) SharedSecret() []byte {
	if hs.sharedSecretLen == 0 {
		return nil
	}
	return hs.sharedSecret[:hs.sharedSecretLen]
}

// ffdhePrivateKey holds the private and public values for FFDHE key
// exchange over the RFC 7919 groups.
type ffdhePrivateKey struct {
	group   CurveID
	private *big.Int
	public  *big.Int
}

// generateFFDHEKey generates an FFDHE key pair for the specified group. The
// private exponent is sampled into [2, p-1] and the public value computed as
// g^private mod p with g=2, the generator of all RFC 7919 groups.
func generateFFDHEKey(rand io.Reader, group CurveID) (*ffdhePrivateKey, error) {
	params := getFFDHEGroupParams(group)
	if params == nil {
		return nil, tlserrors.New("unsupported FFDHE group ", uint16(group)).Base(ErrIllegalParameter).AtError()
	}

	p := params.p
	pMinus2 := new(big.Int).Sub(p, big.NewInt(2))

	privateBytes := make([]byte, params.size)
	if _, err := io.ReadFull(rand, privateBytes); err != nil {
		return nil, err
	}

	private := new(big.Int).SetBytes(privateBytes)
	private.Mod(private, pMinus2)
	private.Add(private, big.NewInt(2))

	public := new(big.Int).Exp(ffdheGenerator, private, p)

	return &ffdhePrivateKey{
		group:   group,
		private: private,
		public:  public,
	}, nil
}

// PublicKeyBytes returns the public value encoded big-endian and left padded
// to the byte length of the group's prime.
func (k *ffdhePrivateKey) PublicKeyBytes() []byte {
	params := getFFDHEGroupParams(k.group)
	if params == nil {
		return nil
	}
	return leftPad(k.public.Bytes(), params.size)
}

// SharedSecret computes the shared secret from the peer's big-endian public
// value. The peer value must not exceed the modulus size and must lie in
// [2, p-2], which rules out the degenerate subgroup elements. The result is
// left padded to the byte length of the prime.
func (k *ffdhePrivateKey) SharedSecret(peerPublicBytes []byte) ([]byte, error) {
	params := getFFDHEGroupParams(k.group)
	if params == nil {
		return nil, tlserrors.New("unsupported FFDHE group ", uint16(k.group)).Base(ErrIllegalParameter).AtError()
	}
	if len(peerPublicBytes) == 0 || len(peerPublicBytes) > params.size {
		return nil, tlserrors.New("FFDHE public key has wrong size").Base(ErrHandshakeFailed).AtError()
	}

	peerPublic := new(big.Int).SetBytes(peerPublicBytes)

	p := params.p
	if peerPublic.Cmp(big.NewInt(2)) < 0 {
		return nil, tlserrors.New("FFDHE public key too small").Base(ErrHandshakeFailed).AtError()
	}
	pMinus1 := new(big.Int).Sub(p, big.NewInt(1))
	if peerPublic.Cmp(pMinus1) >= 0 {
		return nil, tlserrors.New("FFDHE public key too large").Base(ErrHandshakeFailed).AtError()
	}

	sharedSecret := new(big.Int).Exp(peerPublic, k.private, p)
	return leftPad(sharedSecret.Bytes(), params.size), nil
}

// Zero clears the private exponent.
func (k *ffdhePrivateKey) Zero() {
	if k.private != nil {
		k.private.SetInt64(0)
	}
}

func leftPad(b []byte, size int) []byte {
	if len(b) >= size {
		return b
	}
	padded := make([]byte, size)
	copy(padded[size-len(b):], b)
	return padded
}
