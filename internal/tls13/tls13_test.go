// Copyright 2025 The tlscore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tls13

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"hash"
	"io"
	"strings"
	"testing"

	"golang.org/x/crypto/hkdf"
)

// expandLabelOracle derives the same output through x/crypto/hkdf with a
// manually assembled HkdfLabel structure.
func expandLabelOracle(t *testing.T, h func() hash.Hash, secret []byte, label string, context []byte, length int) []byte {
	t.Helper()
	var info bytes.Buffer
	info.WriteByte(byte(length >> 8))
	info.WriteByte(byte(length))
	info.WriteByte(byte(len("tls13 ") + len(label)))
	info.WriteString("tls13 ")
	info.WriteString(label)
	info.WriteByte(byte(len(context)))
	info.Write(context)

	out := make([]byte, length)
	if _, err := io.ReadFull(hkdf.Expand(h, secret, info.Bytes()), out); err != nil {
		t.Fatalf("oracle expand: %v", err)
	}
	return out
}

func TestExpandLabelMatchesHKDF(t *testing.T) {
	secret := bytes.Repeat([]byte{0x0b}, 32)
	context := []byte("transcript digest stand-in")

	tests := []struct {
		name    string
		h       func() hash.Hash
		label   string
		context []byte
		length  int
	}{
		{"finished sha256", sha256.New, "finished", nil, 32},
		{"finished sha384", sha512.New384, "finished", nil, 48},
		{"derived with context", sha256.New, "derived", context, 32},
		{"odd length", sha256.New, "key", context, 17},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandLabel(tt.h, secret, tt.label, tt.context, tt.length)
			if err != nil {
				t.Fatalf("ExpandLabel: %v", err)
			}
			want := expandLabelOracle(t, tt.h, secret, tt.label, tt.context, tt.length)
			if !bytes.Equal(got, want) {
				t.Errorf("got %x, want %x", got, want)
			}
		})
	}
}

func TestExpandLabelTooLong(t *testing.T) {
	secret := make([]byte, 32)
	if _, err := ExpandLabel(sha256.New, secret, strings.Repeat("a", 250), nil, 32); !errors.Is(err, ErrLabelTooLong) {
		t.Errorf("long label: got %v, want ErrLabelTooLong", err)
	}
	if _, err := ExpandLabel(sha256.New, secret, "ok", make([]byte, 256), 32); !errors.Is(err, ErrLabelTooLong) {
		t.Errorf("long context: got %v, want ErrLabelTooLong", err)
	}
}

func TestBinderKeys(t *testing.T) {
	psk := []byte("some pre-shared key")

	es, err := NewEarlySecret(sha256.New, psk)
	if err != nil {
		t.Fatalf("NewEarlySecret: %v", err)
	}
	ext, err := es.ExternalBinderKey()
	if err != nil {
		t.Fatalf("ExternalBinderKey: %v", err)
	}
	res, err := es.ResumptionBinderKey()
	if err != nil {
		t.Fatalf("ResumptionBinderKey: %v", err)
	}

	if bytes.Equal(ext, res) {
		t.Error("external and resumption binder keys collide")
	}
	if len(ext) != sha256.Size || len(res) != sha256.Size {
		t.Errorf("binder key lengths = %d/%d, want %d", len(ext), len(res), sha256.Size)
	}

	// Deterministic for the same PSK.
	es2, err := NewEarlySecret(sha256.New, psk)
	if err != nil {
		t.Fatalf("NewEarlySecret: %v", err)
	}
	ext2, err := es2.ExternalBinderKey()
	if err != nil {
		t.Fatalf("ExternalBinderKey: %v", err)
	}
	if !bytes.Equal(ext, ext2) {
		t.Error("binder key derivation is not deterministic")
	}
}

func TestEarlySecretNilPSK(t *testing.T) {
	// A nil PSK extracts from a string of hash-length zeros (RFC 8446,
	// Section 7.1).
	es, err := NewEarlySecret(sha256.New, nil)
	if err != nil {
		t.Fatalf("NewEarlySecret: %v", err)
	}
	zeros, err := NewEarlySecret(sha256.New, make([]byte, sha256.Size))
	if err != nil {
		t.Fatalf("NewEarlySecret: %v", err)
	}
	if !bytes.Equal(es.secret, zeros.secret) {
		t.Error("nil PSK does not match the all-zero PSK")
	}
}
