// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fingerprint

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"math/bits"
	"strconv"

	// Register stdlib image decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"

	// Register extended image decoders
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultSimilarityThreshold is the maximum Hamming distance at which two
// fingerprints are considered the same image under minor transforms
// (recompression, resize, small crops, brightness edits). Distances of 5-15
// suggest possibly-related images, anything above that is unrelated. This is
// a policy default, not a hard boundary; callers may pass their own.
const DefaultSimilarityThreshold = 4

// HexLength is the length of a fingerprint rendered as a hex string
const HexLength = 16

// ErrDecode is returned when input bytes cannot be parsed as an image
var ErrDecode = errors.New("image decode failed")

// Fingerprint is a 64-bit perceptual hash of an image. Unlike a
// cryptographic digest, visually similar images map to fingerprints with a
// small Hamming distance, which is what makes re-identification after lossy
// transforms possible.
type Fingerprint uint64

// String renders the fingerprint as 16 lowercase hex characters
func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// Bytes returns the fingerprint as 8 big-endian bytes
func (f Fingerprint) Bytes() []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, uint64(f))
	return ret
}

// ParseFingerprint parses a 16-hex-character fingerprint string
func ParseFingerprint(s string) (Fingerprint, error) {
	if len(s) != HexLength {
		return 0, fmt.Errorf(
			"invalid fingerprint %q: expected %d hex characters, got %d",
			s,
			HexLength,
			len(s),
		)
	}
	val, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid fingerprint %q: %w", s, err)
	}
	return Fingerprint(val), nil
}

// Compute derives the perceptual hash of an image from its raw encoded
// bytes. The image is decoded (JPEG, PNG, GIF, WebP, BMP, TIFF), reduced to
// a small grid, transformed to the frequency domain with a DCT, and the sign
// of each of the 64 lowest-frequency coefficients relative to their median
// is packed into a 64-bit value.
func Compute(imageBytes []byte) (Fingerprint, error) {
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return Fingerprint(hash.GetHash()), nil
}

// Distance returns the Hamming distance between two fingerprints: the
// number of differing bits, in range [0,64]. It is symmetric, and
// Distance(x, x) == 0
func Distance(a, b Fingerprint) int {
	return bits.OnesCount64(uint64(a ^ b))
}

// Similar reports whether two fingerprints are within the given Hamming
// distance threshold of each other
func Similar(a, b Fingerprint, threshold int) bool {
	return Distance(a, b) <= threshold
}
