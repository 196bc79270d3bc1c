// Copyright 2025 The tlscore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlscore

import (
	"crypto/hmac"
	"time"

	tlserrors "github.com/mar1xlatino/tlscore/errors"
	"github.com/mar1xlatino/tlscore/internal/tls13"
)

// This file contains the binder-side helpers of the TLS 1.3 key schedule.
// See RFC 8446, Section 7.

// finishedHash generates the Finished verify_data or PskBinderEntry
// according to RFC 8446, Section 4.4.4, over an already-computed transcript
// digest. See Sections 4.4 and 4.2.11.2 for the baseKey selection.
func (c *cipherSuiteTLS13) finishedHash(baseKey []byte, transcriptDigest []byte) ([]byte, error) {
	finishedKey, err := tls13.ExpandLabel(c.hash.New, baseKey, "finished", nil, c.hash.Size())
	if err != nil {
		return nil, tlserrors.New("deriving finished key: ", err).Base(ErrKeyDerivationFailed).AtError()
	}
	verifyData := hmac.New(c.hash.New, finishedKey)
	verifyData.Write(transcriptDigest)
	return verifyData.Sum(nil), nil
}

// pskBinderMinDuration is the minimum time floor for PSK binder computation
// when constant-time mode is enabled. The value is chosen to be longer than
// typical binder computation time but short enough to not significantly
// impact handshake latency.
const pskBinderMinDuration = 150 * time.Microsecond

// finishedHashConstantTime generates PSK binders with a minimum computation
// time floor, so the observable timing does not vary with transcript size.
// HMAC itself is constant-time; this normalizes the surrounding derivation.
func (c *cipherSuiteTLS13) finishedHashConstantTime(baseKey []byte, transcriptDigest []byte) ([]byte, error) {
	start := time.Now()

	binder, err := c.finishedHash(baseKey, transcriptDigest)

	elapsed := time.Since(start)
	if elapsed < pskBinderMinDuration {
		time.Sleep(pskBinderMinDuration - elapsed)
	}

	return binder, err
}
