// Package admission decides whether a scraped image enters the pipeline.
// Every image passes through exactly one gate: it is either accepted or
// rejected as a duplicate, for low quality, or as corrupt data.
package admission

import (
	"bytes"
	"fmt"
	"image"

	"github.com/openscrape/facedex/internal/config"
	"github.com/openscrape/facedex/internal/fingerprint"
)

// RejectReason classifies why an image was turned away.
type RejectReason string

const (
	ReasonDuplicate RejectReason = "duplicate"
	ReasonQuality   RejectReason = "quality"
	ReasonCorrupt   RejectReason = "corrupt"
)

// Decision is the outcome of admitting one image. For accepted images
// the decoded image, format and fingerprints are populated so callers
// never decode twice.
type Decision struct {
	Accepted bool
	Reason   RejectReason
	Detail   string

	ContentHash string
	Format      fingerprint.Format
	Image       image.Image
	Hashes      *fingerprint.Hashes
	Quality     QualityReport
}

// Gate applies the admission checks in a fixed order: exact duplicate,
// corrupt data, then quality. The known set is shared across batches.
type Gate struct {
	cfg     config.AdmissionConfig
	quality config.QualityConfig
	known   *HashSet
}

func NewGate(cfg config.AdmissionConfig, quality config.QualityConfig, known *HashSet) *Gate {
	return &Gate{cfg: cfg, quality: quality, known: known}
}

// Known exposes the shared hash set, mainly for seeding at startup.
func (g *Gate) Known() *HashSet {
	return g.known
}

// Admit runs the full admission check on raw image bytes.
//
// The content hash is recorded only when the image is accepted, so a
// rejected image does not block a better copy of the same bytes — and
// the final atomic Add guarantees that two workers racing on identical
// bytes admit exactly one of them.
func (g *Gate) Admit(data []byte) Decision {
	hash := fingerprint.ContentHash(data)

	if g.known.Contains(hash) {
		return Decision{Reason: ReasonDuplicate, ContentHash: hash, Detail: "content hash already accepted"}
	}

	if int64(len(data)) < g.cfg.MinFileBytes {
		return Decision{
			Reason:      ReasonCorrupt,
			ContentHash: hash,
			Detail:      fmt.Sprintf("file too small: %d bytes", len(data)),
		}
	}

	format := fingerprint.Sniff(data)
	if format == fingerprint.FormatUnknown {
		return Decision{Reason: ReasonCorrupt, ContentHash: hash, Detail: "unrecognized image format"}
	}

	if int64(len(data)) > g.cfg.MaxFileBytes {
		return Decision{
			Reason:      ReasonQuality,
			ContentHash: hash,
			Format:      format,
			Detail:      fmt.Sprintf("file too large: %d bytes", len(data)),
		}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Decision{
			Reason:      ReasonCorrupt,
			ContentHash: hash,
			Format:      format,
			Detail:      fmt.Sprintf("undecodable image data: %v", err),
		}
	}

	bounds := img.Bounds()
	if bounds.Dx() < g.cfg.MinImageDimension || bounds.Dy() < g.cfg.MinImageDimension {
		return Decision{
			Reason:      ReasonQuality,
			ContentHash: hash,
			Format:      format,
			Detail:      fmt.Sprintf("image too small: %dx%d", bounds.Dx(), bounds.Dy()),
		}
	}

	report := scoreQuality(img, int64(len(data)), g.quality, g.cfg.MaxFileBytes)
	if report.Score < g.cfg.MinQualityScore {
		return Decision{
			Reason:      ReasonQuality,
			ContentHash: hash,
			Format:      format,
			Quality:     report,
			Detail:      fmt.Sprintf("quality score %.2f below minimum %.2f", report.Score, g.cfg.MinQualityScore),
		}
	}

	if !g.known.Add(hash) {
		return Decision{Reason: ReasonDuplicate, ContentHash: hash, Format: format, Detail: "content hash already accepted"}
	}

	return Decision{
		Accepted:    true,
		ContentHash: hash,
		Format:      format,
		Image:       img,
		Hashes:      fingerprint.PerceptualFromImage(img),
		Quality:     report,
	}
}
