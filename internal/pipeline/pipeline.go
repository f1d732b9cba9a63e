// Package pipeline orchestrates a batch of scraped images through
// admission, face detection and identity resolution, persisting the
// accepted results.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/openscrape/facedex/internal/admission"
	"github.com/openscrape/facedex/internal/detector"
	"github.com/openscrape/facedex/internal/identity"
	"github.com/openscrape/facedex/internal/storage"
)

const defaultConcurrency = 4

// FaceDetector is the face embedding server contract.
type FaceDetector interface {
	DetectFaces(ctx context.Context, imageData []byte) (*detector.Result, error)
}

// ObjectSink archives accepted image bytes and identity cover crops.
// Optional; a nil sink skips archiving.
type ObjectSink interface {
	PutImage(ctx context.Context, contentHash string, data []byte, contentType string) error
	PutCover(ctx context.Context, identityID string, data []byte) error
}

// Config wires a pipeline together.
type Config struct {
	Gate     *admission.Gate
	Registry *identity.Registry
	Detector FaceDetector
	Fetcher  Fetcher
	Store    storage.Store
	Objects  ObjectSink // optional

	Concurrency int
	MinDetScore float64 // faces below this detection score are ignored

	// OnImageDone is called once per processed image, for progress
	// reporting. May be nil.
	OnImageDone func(ImageResult)
}

type Pipeline struct {
	cfg Config
}

func New(cfg Config) *Pipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Pipeline{cfg: cfg}
}

// ProcessBatch fetches and processes a batch of image URLs with a
// bounded worker pool. Per-image failures (bad data, detector errors)
// are recorded in the report and the batch continues; a storage
// failure aborts the whole batch since further results would be lost.
func (p *Pipeline) ProcessBatch(ctx context.Context, urls []string) (*Report, error) {
	report := &Report{Requested: len(urls)}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg        sync.WaitGroup
		fatalOnce sync.Once
		fatalErr  error
	)
	semaphore := make(chan struct{}, p.cfg.Concurrency)

	for _, url := range urls {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		semaphore <- struct{}{}
		go func(url string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if ctx.Err() != nil {
				return
			}

			result, err := p.processURL(ctx, url)
			if err != nil {
				fatalOnce.Do(func() {
					fatalErr = err
					cancel()
				})
				return
			}

			report.add(result)
			if p.cfg.OnImageDone != nil {
				p.cfg.OnImageDone(result)
			}
		}(url)
	}

	wg.Wait()

	if fatalErr != nil {
		return report, fatalErr
	}
	return report, ctx.Err()
}

// processURL fetches one image and runs it through the pipeline. A
// fetch failure is a per-image corrupt result, not a batch error.
func (p *Pipeline) processURL(ctx context.Context, url string) (ImageResult, error) {
	data, err := p.cfg.Fetcher.Fetch(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return ImageResult{}, ctx.Err()
		}
		return ImageResult{
			SourceURL: url,
			Status:    statusCorrupt,
			Detail:    fmt.Sprintf("fetch failed: %v", err),
		}, nil
	}
	return p.ProcessImage(ctx, url, data)
}

// ProcessImage runs raw image bytes through admission, detection and
// identity resolution. The returned error is fatal (storage failure or
// cancellation); everything else is reported in the result status.
func (p *Pipeline) ProcessImage(ctx context.Context, sourceURL string, data []byte) (ImageResult, error) {
	decision := p.cfg.Gate.Admit(data)
	if !decision.Accepted {
		return ImageResult{
			SourceURL: sourceURL,
			Status:    rejectStatus(decision.Reason),
			Detail:    decision.Detail,
		}, nil
	}

	detected, err := p.cfg.Detector.DetectFaces(ctx, data)
	if err != nil {
		// Roll back the acceptance so a retry is not flagged duplicate.
		p.cfg.Gate.Known().Remove(decision.ContentHash)
		if ctx.Err() != nil {
			return ImageResult{}, ctx.Err()
		}
		return ImageResult{
			SourceURL: sourceURL,
			Status:    statusCorrupt,
			Detail:    fmt.Sprintf("face detection failed: %v", err),
		}, nil
	}

	bounds := decision.Image.Bounds()
	record := &storage.ImageRecord{
		SourceURL:    sourceURL,
		ContentHash:  decision.ContentHash,
		PHash:        decision.Hashes.PHash,
		DHash:        decision.Hashes.DHash,
		Format:       string(decision.Format),
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
		FileBytes:    int64(len(data)),
		QualityScore: decision.Quality.Score,
	}
	if err := p.cfg.Store.SaveImage(ctx, record); err != nil {
		return ImageResult{}, fmt.Errorf("save image: %w", err)
	}

	result := ImageResult{
		SourceURL: sourceURL,
		Status:    statusAccepted,
		ImageID:   record.ID,
	}

	for _, face := range detected.Faces {
		if face.DetScore < p.cfg.MinDetScore {
			continue
		}

		res, err := p.cfg.Registry.Resolve(face.Embedding)
		if err != nil {
			// A malformed embedding from the detector; skip the face.
			continue
		}

		faceRecord := &storage.FaceRecord{
			ImageID:    record.ID,
			FaceIndex:  face.FaceIndex,
			IdentityID: res.IdentityID,
			Embedding:  face.Embedding,
			BBox:       face.BBox,
			DetScore:   face.DetScore,
			Confidence: res.Confidence,
		}
		if err := p.cfg.Store.SaveFace(ctx, faceRecord); err != nil {
			return ImageResult{}, fmt.Errorf("save face: %w", err)
		}

		if res.Created && p.cfg.Objects != nil {
			p.saveCover(ctx, res.IdentityID, decision, face.BBox)
		}

		result.Faces = append(result.Faces, FaceOutcome{
			FaceIndex:   face.FaceIndex,
			IdentityID:  res.IdentityID,
			Confidence:  res.Confidence,
			NewIdentity: res.Created,
		})
	}

	if p.cfg.Objects != nil {
		// Archiving is best-effort; the database row is the record.
		_ = p.cfg.Objects.PutImage(ctx, decision.ContentHash, data, decision.Format.MIMEType())
	}

	return result, nil
}

// saveCover stores the face crop of a new identity's first sample as
// its cover image. Best-effort.
func (p *Pipeline) saveCover(ctx context.Context, identityID string, decision admission.Decision, bbox []float64) {
	crop := cropFace(decision.Image, bbox)
	if crop == nil {
		return
	}
	_ = p.cfg.Objects.PutCover(ctx, identityID, encodeJPEG(crop))
}
