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

package fingerprint_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/imprint-io/imprint/fingerprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testImage generates a structured test image: a gradient with some solid
// rectangles so the DCT has plenty of signal to latch onto
func testImage(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8((x * 255) / width),    //nolint:gosec
				G: uint8((y * 255) / height),   //nolint:gosec
				B: uint8(((x + y) * 128) / (width + height)), //nolint:gosec
				A: 255,
			})
		}
	}
	// Solid blocks for coarse structure
	for y := height / 8; y < height/3; y++ {
		for x := width / 8; x < width/3; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 230, G: 40, B: 40, A: 255})
		}
	}
	for y := height / 2; y < height-height/8; y++ {
		for x := width / 2; x < width-width/8; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 20, G: 20, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestComputeDeterministic(t *testing.T) {
	imageBytes := testImage(t, 256, 256)
	fp1, err := fingerprint.Compute(imageBytes)
	require.NoError(t, err)
	fp2, err := fingerprint.Compute(imageBytes)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1.String(), fingerprint.HexLength)
}

func TestComputeDecodeError(t *testing.T) {
	_, err := fingerprint.Compute([]byte("definitely not an image"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fingerprint.ErrDecode)
}

func TestDistanceProperties(t *testing.T) {
	fp1 := fingerprint.Fingerprint(0xa9e3c4b2d1f5e7c8)
	fp2 := fingerprint.Fingerprint(0xa9e3c4b2d1f5e7c9)
	assert.Equal(t, 0, fingerprint.Distance(fp1, fp1))
	assert.Equal(
		t,
		fingerprint.Distance(fp1, fp2),
		fingerprint.Distance(fp2, fp1),
	)
	assert.Equal(t, 1, fingerprint.Distance(fp1, fp2))
	assert.Equal(
		t,
		64,
		fingerprint.Distance(0, fingerprint.Fingerprint(^uint64(0))),
	)
}

func TestSimilar(t *testing.T) {
	fp := fingerprint.Fingerprint(0xa9e3c4b2d1f5e7c8)
	near := fp ^ 0x3 // distance 2
	far := ^fp       // distance 64
	assert.True(
		t,
		fingerprint.Similar(fp, near, fingerprint.DefaultSimilarityThreshold),
	)
	assert.False(
		t,
		fingerprint.Similar(fp, far, fingerprint.DefaultSimilarityThreshold),
	)
	// Threshold zero means exact only
	assert.True(t, fingerprint.Similar(fp, fp, 0))
	assert.False(t, fingerprint.Similar(fp, near, 0))
}

func TestParseFingerprint(t *testing.T) {
	fp, err := fingerprint.ParseFingerprint("a9e3c4b2d1f5e7c8")
	require.NoError(t, err)
	assert.Equal(t, "a9e3c4b2d1f5e7c8", fp.String())

	_, err = fingerprint.ParseFingerprint("short")
	assert.Error(t, err)
	_, err = fingerprint.ParseFingerprint("zzzzzzzzzzzzzzzz")
	assert.Error(t, err)
}

func TestFingerprintBytes(t *testing.T) {
	fp, err := fingerprint.ParseFingerprint("a9e3c4b2d1f5e7c8")
	require.NoError(t, err)
	assert.Equal(
		t,
		[]byte{0xa9, 0xe3, 0xc4, 0xb2, 0xd1, 0xf5, 0xe7, 0xc8},
		fp.Bytes(),
	)
}

func TestFingerprintSurvivesLossyTransforms(t *testing.T) {
	imageBytes := testImage(t, 256, 256)
	origFp, err := fingerprint.Compute(imageBytes)
	require.NoError(t, err)

	// These edits change every byte of the encoding but not the coarse
	// structure the fingerprint captures
	for _, kind := range []fingerprint.MorphKind{
		fingerprint.MorphRecompress,
		fingerprint.MorphResize,
		fingerprint.MorphBrightness,
		fingerprint.MorphContrast,
	} {
		morphed, err := fingerprint.Morph(imageBytes, kind)
		require.NoError(t, err)
		assert.NotEqual(t, imageBytes, morphed)
		morphedFp, err := fingerprint.Compute(morphed)
		require.NoError(t, err)
		assert.LessOrEqual(
			t,
			fingerprint.Distance(origFp, morphedFp),
			fingerprint.DefaultSimilarityThreshold,
			"morph %s drifted too far", kind,
		)
	}

	// A border crop shifts the grid, so allow more drift but still expect
	// the images to read as related
	cropped, err := fingerprint.Morph(imageBytes, fingerprint.MorphCrop)
	require.NoError(t, err)
	croppedFp, err := fingerprint.Compute(cropped)
	require.NoError(t, err)
	assert.LessOrEqual(t, fingerprint.Distance(origFp, croppedFp), 16)
}

func TestMorphUnknownKind(t *testing.T) {
	imageBytes := testImage(t, 64, 64)
	_, err := fingerprint.Morph(imageBytes, fingerprint.MorphKind("sepia"))
	assert.Error(t, err)
}

func TestMorphDecodeError(t *testing.T) {
	_, err := fingerprint.Morph([]byte("junk"), fingerprint.MorphResize)
	assert.ErrorIs(t, err, fingerprint.ErrDecode)
}
