// Package fingerprint computes content and perceptual fingerprints for
// scraped images. The content hash drives exact deduplication; the
// perceptual hashes are stored for near-duplicate reporting.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"sort"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ContentHash returns the SHA-256 hex digest of the raw image bytes.
// Byte-identical images always hash the same, regardless of filename or source URL.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Format identifies an image container by its magic bytes.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatGIF     Format = "gif"
	FormatWebP    Format = "webp"
	FormatBMP     Format = "bmp"
	FormatUnknown Format = ""
)

// Sniff detects the image format from magic bytes without decoding.
// Returns FormatUnknown for anything that is not a recognized image container.
func Sniff(data []byte) Format {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return FormatJPEG
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}):
		return FormatPNG
	case len(data) >= 6 && (bytes.Equal(data[:6], []byte("GIF87a")) || bytes.Equal(data[:6], []byte("GIF89a"))):
		return FormatGIF
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return FormatWebP
	case len(data) >= 2 && data[0] == 'B' && data[1] == 'M':
		return FormatBMP
	}
	return FormatUnknown
}

// MIMEType returns the MIME type for a sniffed format.
func (f Format) MIMEType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatGIF:
		return "image/gif"
	case FormatWebP:
		return "image/webp"
	case FormatBMP:
		return "image/bmp"
	}
	return "application/octet-stream"
}

// Hashes contains the perceptual hashes computed for one image.
type Hashes struct {
	PHash string `json:"phash"` // 64-bit DCT hash, hex encoded
	DHash string `json:"dhash"` // 64-bit difference hash, hex encoded

	PHashBits uint64 `json:"-"`
	DHashBits uint64 `json:"-"`
}

// Perceptual decodes an image and computes its pHash and dHash.
func Perceptual(data []byte) (*Hashes, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return PerceptualFromImage(img), nil
}

// PerceptualFromImage computes perceptual hashes for an already-decoded image.
func PerceptualFromImage(img image.Image) *Hashes {
	p := dctHash(img)
	d := diffHash(img)
	return &Hashes{
		PHash:     fmt.Sprintf("%016x", p),
		DHash:     fmt.Sprintf("%016x", d),
		PHashBits: p,
		DHashBits: d,
	}
}

// HammingDistance counts differing bits between two 64-bit hashes.
func HammingDistance(a, b uint64) int {
	xor := a ^ b
	n := 0
	for xor != 0 {
		n++
		xor &= xor - 1
	}
	return n
}

// NearDuplicate reports whether two hashes are within threshold bits of
// each other. A threshold around 10 works well for scraped photos.
func NearDuplicate(a, b uint64, threshold int) bool {
	return HammingDistance(a, b) <= threshold
}

// dctHash computes a 64-bit perceptual hash from the low-frequency DCT
// coefficients of a 32x32 grayscale reduction.
func dctHash(img image.Image) uint64 {
	luma := Grayscale(scale(img, 32, 32))
	dct := dct2d(luma)

	// Top-left 8x8 block holds the low frequencies; the DC term at (0,0)
	// carries only overall brightness and is skipped.
	coeffs := make([]float64, 0, 64)
	for u := range 8 {
		for v := range 8 {
			if u == 0 && v == 0 {
				continue
			}
			coeffs = append(coeffs, dct[u][v])
		}
	}
	coeffs = append(coeffs, dct[8][0]) // pad back to 64 values

	median := medianOf(coeffs)

	var hash uint64
	for i, c := range coeffs {
		if c > median {
			hash |= 1 << (63 - i)
		}
	}
	return hash
}

// diffHash computes a 64-bit difference hash from horizontal gradients
// of a 9x8 grayscale reduction.
func diffHash(img image.Image) uint64 {
	luma := Grayscale(scale(img, 9, 8))

	var hash uint64
	bit := 63
	for y := range 8 {
		for x := range 8 {
			if luma[x][y] > luma[x+1][y] {
				hash |= 1 << bit
			}
			bit--
		}
	}
	return hash
}

// scale resizes an image to exactly width x height using bilinear filtering.
func scale(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// Grayscale converts an image to a [x][y] matrix of luma values (0-255)
// using the ITU-R BT.601 weights.
func Grayscale(img image.Image) [][]float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	luma := make([][]float64, w)
	for x := range w {
		luma[x] = make([]float64, h)
		for y := range h {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			luma[x][y] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
		}
	}
	return luma
}

// dct2d computes the 2D DCT-II of a square luma matrix.
func dct2d(luma [][]float64) [][]float64 {
	size := len(luma)

	cosines := make([][]float64, size)
	for i := range cosines {
		cosines[i] = make([]float64, size)
		for j := range size {
			cosines[i][j] = math.Cos(math.Pi * float64(i) * (2*float64(j) + 1) / (2 * float64(size)))
		}
	}

	out := make([][]float64, size)
	for u := range size {
		out[u] = make([]float64, size)
		for v := range size {
			var sum float64
			for x := range size {
				for y := range size {
					sum += luma[x][y] * cosines[u][x] * cosines[v][y]
				}
			}
			out[u][v] = sum
		}
	}
	return out
}

func medianOf(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
