// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package track

import (
	"bytes"

	"github.com/minio/highwayhash"
)

// fingerprintKey is fixed so fingerprints are comparable across processes.
var fingerprintKey = []byte("tracks.view.fingerprint.key.v001")

// Fingerprint returns a 256-bit hash of v's kind, interval and contents.
// Views for which ContainsSameData is true have equal fingerprints.
func Fingerprint(v View) [highwayhash.Size]byte {
	var buf bytes.Buffer
	v.writeFingerprint(&buf)
	return highwayhash.Sum(buf.Bytes(), fingerprintKey)
}
