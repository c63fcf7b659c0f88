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
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	xdraw "golang.org/x/image/draw"
)

// MorphKind names a supported derivation transform
type MorphKind string

const (
	MorphBrightness MorphKind = "brightness"
	MorphContrast   MorphKind = "contrast"
	MorphCrop       MorphKind = "crop"
	MorphResize     MorphKind = "resize"
	MorphRecompress MorphKind = "recompress"
)

// MorphKinds lists the supported transforms
func MorphKinds() []MorphKind {
	return []MorphKind{
		MorphBrightness,
		MorphContrast,
		MorphCrop,
		MorphResize,
		MorphRecompress,
	}
}

// Morph applies a derivation transform to an encoded image and returns the
// result re-encoded as JPEG. These are the same lossy edits a fingerprint is
// expected to survive (or, for larger crops, to track as a derivative)
func Morph(imageBytes []byte, kind MorphKind) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	var out image.Image
	switch kind {
	case MorphBrightness:
		out = adjustLinear(img, 1.0, 24)
	case MorphContrast:
		out = adjustLinear(img, 1.2, 0)
	case MorphCrop:
		out = cropBorder(img, 8)
	case MorphResize:
		b := img.Bounds()
		out = resizeTo(img, b.Dx()/2, b.Dy()/2)
	case MorphRecompress:
		out = img
	default:
		return nil, fmt.Errorf("unknown morph kind: %s", kind)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: 75}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

// adjustLinear applies out = in*gain + bias per channel, clamped to [0,255]
func adjustLinear(img image.Image, gain float64, bias int) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			out.SetRGBA(x, y, color.RGBA{
				R: clamp8(float64(r>>8)*gain + float64(bias)),
				G: clamp8(float64(g>>8)*gain + float64(bias)),
				B: clamp8(float64(bl>>8)*gain + float64(bias)),
				A: uint8(a >> 8), //nolint:gosec
			})
		}
	}
	return out
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func cropBorder(img image.Image, px int) image.Image {
	b := img.Bounds()
	inset := b.Inset(px)
	if inset.Empty() {
		return img
	}
	out := image.NewRGBA(image.Rect(0, 0, inset.Dx(), inset.Dy()))
	xdraw.Draw(out, out.Bounds(), img, inset.Min, xdraw.Src)
	return out
}

func resizeTo(img image.Image, w, h int) image.Image {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(out, out.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	return out
}
