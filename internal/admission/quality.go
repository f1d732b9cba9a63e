package admission

import (
	"image"

	"github.com/openscrape/facedex/internal/config"
	"github.com/openscrape/facedex/internal/fingerprint"
)

// QualityReport breaks the composite quality score into its sub-scores
// so rejections can be explained.
type QualityReport struct {
	Resolution float64 `json:"resolution"`
	Size       float64 `json:"size"`
	Sharpness  float64 `json:"sharpness"`
	Score      float64 `json:"score"`
}

// scoreQuality computes the weighted quality score for a decoded image.
// Each sub-score is clamped to [0, 1] before weighting.
func scoreQuality(img image.Image, fileBytes int64, q config.QualityConfig, maxFileBytes int64) QualityReport {
	bounds := img.Bounds()
	minDim := bounds.Dx()
	if bounds.Dy() < minDim {
		minDim = bounds.Dy()
	}

	r := QualityReport{
		Resolution: clamp01(float64(minDim) / float64(q.IdealDimension)),
		Size:       clamp01(float64(fileBytes) / float64(maxFileBytes) * 4),
		Sharpness:  clamp01(laplacianVariance(img) / q.SharpnessReference),
	}
	r.Score = q.Weights.Resolution*r.Resolution +
		q.Weights.Size*r.Size +
		q.Weights.Sharpness*r.Sharpness
	return r
}

// laplacianVariance measures sharpness as the variance of the image
// under a 4-neighbor Laplacian kernel. Blurry images have weak edges
// and therefore low variance.
func laplacianVariance(img image.Image) float64 {
	luma := fingerprint.Grayscale(img)
	w := len(luma)
	if w < 3 {
		return 0
	}
	h := len(luma[0])
	if h < 3 {
		return 0
	}

	var sum, sumSq float64
	n := 0
	for x := 1; x < w-1; x++ {
		for y := 1; y < h-1; y++ {
			lap := luma[x-1][y] + luma[x+1][y] + luma[x][y-1] + luma[x][y+1] - 4*luma[x][y]
			sum += lap
			sumSq += lap * lap
			n++
		}
	}

	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
