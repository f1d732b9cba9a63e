package pipeline

import (
	"sync"

	"github.com/openscrape/facedex/internal/admission"
)

// FaceOutcome records where one detected face ended up.
type FaceOutcome struct {
	FaceIndex   int     `json:"face_index"`
	IdentityID  string  `json:"identity_id"`
	Confidence  float64 `json:"confidence"`
	NewIdentity bool    `json:"new_identity"`
}

// ImageResult is the outcome of processing one source URL.
type ImageResult struct {
	SourceURL string        `json:"source_url"`
	Status    string        `json:"status"` // accepted, duplicate, quality, corrupt
	Detail    string        `json:"detail,omitempty"`
	ImageID   int64         `json:"image_id,omitempty"`
	Faces     []FaceOutcome `json:"faces,omitempty"`
}

// Report aggregates the outcome of one batch.
type Report struct {
	Requested         int           `json:"requested"`
	Accepted          int           `json:"accepted"`
	RejectedDuplicate int           `json:"rejected_duplicate"`
	RejectedQuality   int           `json:"rejected_quality"`
	RejectedCorrupt   int           `json:"rejected_corrupt"`
	FacesDetected     int           `json:"faces_detected"`
	FacesMatched      int           `json:"faces_matched"`
	FacesNewIdentity  int           `json:"faces_new_identity"`
	PerImage          []ImageResult `json:"per_image"`

	mu sync.Mutex
}

const (
	statusAccepted  = "accepted"
	statusDuplicate = "duplicate"
	statusQuality   = "quality"
	statusCorrupt   = "corrupt"
)

func rejectStatus(reason admission.RejectReason) string {
	switch reason {
	case admission.ReasonDuplicate:
		return statusDuplicate
	case admission.ReasonQuality:
		return statusQuality
	default:
		return statusCorrupt
	}
}

// add folds one image's result into the batch totals.
func (r *Report) add(result ImageResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch result.Status {
	case statusAccepted:
		r.Accepted++
	case statusDuplicate:
		r.RejectedDuplicate++
	case statusQuality:
		r.RejectedQuality++
	case statusCorrupt:
		r.RejectedCorrupt++
	}

	r.FacesDetected += len(result.Faces)
	for _, f := range result.Faces {
		if f.NewIdentity {
			r.FacesNewIdentity++
		} else {
			r.FacesMatched++
		}
	}

	r.PerImage = append(r.PerImage, result)
}
