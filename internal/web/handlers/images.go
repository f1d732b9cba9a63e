package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/openscrape/facedex/internal/identity"
	"github.com/openscrape/facedex/internal/pipeline"
)

// ImagesHandler ingests images, either as uploaded bytes or as a batch
// of URLs, and offers read-only face matching.
type ImagesHandler struct {
	pipeline *pipeline.Pipeline
	registry *identity.Registry
	detector pipeline.FaceDetector
}

func NewImagesHandler(p *pipeline.Pipeline, registry *identity.Registry, detector pipeline.FaceDetector) *ImagesHandler {
	return &ImagesHandler{
		pipeline: p,
		registry: registry,
		detector: detector,
	}
}

// Upload handles POST /images: one multipart image through the full
// pipeline.
func (h *ImagesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	data, ok := readUpload(w, r)
	if !ok {
		return
	}

	result, err := h.pipeline.ProcessImage(r.Context(), "", data)
	if err != nil {
		log.Printf("process upload: %v", err)
		respondError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

type batchRequest struct {
	URLs []string `json:"urls"`
}

// Batch handles POST /batches: fetch and process a list of URLs.
func (h *ImagesHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.URLs) == 0 {
		respondError(w, http.StatusBadRequest, "urls must not be empty")
		return
	}

	report, err := h.pipeline.ProcessBatch(r.Context(), req.URLs)
	if err != nil && !errors.Is(err, r.Context().Err()) {
		log.Printf("process batch: %v", err)
		respondError(w, http.StatusInternalServerError, "batch aborted")
		return
	}

	respondJSON(w, http.StatusOK, report)
}

type matchResponse struct {
	FacesCount int                    `json:"faces_count"`
	Matches    []identity.MatchResult `json:"matches"`
}

// Match handles POST /faces/match: detect faces in an uploaded image
// and report the closest identities without modifying the registry.
func (h *ImagesHandler) Match(w http.ResponseWriter, r *http.Request) {
	data, ok := readUpload(w, r)
	if !ok {
		return
	}

	detected, err := h.detector.DetectFaces(r.Context(), data)
	if err != nil {
		log.Printf("detect faces: %v", err)
		respondError(w, http.StatusBadGateway, "face detection failed")
		return
	}

	resp := matchResponse{FacesCount: detected.FacesCount}
	for _, face := range detected.Faces {
		match, err := h.registry.Match(face.Embedding)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		resp.Matches = append(resp.Matches, match)
	}

	respondJSON(w, http.StatusOK, resp)
}
