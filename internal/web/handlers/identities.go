package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openscrape/facedex/internal/identity"
	"github.com/openscrape/facedex/internal/naming"
	"github.com/openscrape/facedex/internal/storage"
)

// CoverSource serves identity cover crops.
type CoverSource interface {
	GetCover(ctx context.Context, identityID string) ([]byte, error)
}

// IdentitiesHandler exposes the identity registry's admin operations.
// Mutations are written through to storage so a restart sees them.
type IdentitiesHandler struct {
	registry *identity.Registry
	store    storage.Store
	covers   CoverSource     // optional
	namer    naming.Provider // optional
}

func NewIdentitiesHandler(registry *identity.Registry, store storage.Store, covers CoverSource, namer naming.Provider) *IdentitiesHandler {
	return &IdentitiesHandler{
		registry: registry,
		store:    store,
		covers:   covers,
		namer:    namer,
	}
}

// identityView is the API shape of an identity; raw embeddings stay out
// of list responses.
type identityView struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Samples     int    `json:"samples"`
	SampleCount int64  `json:"sample_count"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toView(id identity.Identity) identityView {
	return identityView{
		ID:          id.ID,
		Name:        id.Name,
		Samples:     len(id.Samples),
		SampleCount: id.SampleCount,
		CreatedAt:   id.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   id.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// List handles GET /identities.
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	identities := h.registry.List()
	views := make([]identityView, 0, len(identities))
	for _, id := range identities {
		views = append(views, toView(id))
	}
	respondJSON(w, http.StatusOK, views)
}

// Get handles GET /identities/{id}.
func (h *IdentitiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := h.registry.Get(chi.URLParam(r, "id"))
	if errors.Is(err, identity.ErrNotFound) {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}
	respondJSON(w, http.StatusOK, toView(id))
}

type renameRequest struct {
	Name string `json:"name"`
}

// Rename handles PUT /identities/{id}.
func (h *IdentitiesHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	identityID := chi.URLParam(r, "id")
	if err := h.registry.Rename(identityID, req.Name); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			respondError(w, http.StatusNotFound, "identity not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.persist(r.Context())

	id, _ := h.registry.Get(identityID)
	respondJSON(w, http.StatusOK, toView(id))
}

type mergeRequest struct {
	SourceID string `json:"source_id"`
}

// Merge handles POST /identities/{id}/merge: the body names the source
// identity, the URL the surviving destination.
func (h *IdentitiesHandler) Merge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	dstID := chi.URLParam(r, "id")
	if err := h.registry.Merge(req.SourceID, dstID); err != nil {
		switch {
		case errors.Is(err, identity.ErrNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, identity.ErrSelfMerge):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if moved, err := h.store.ReassignFaces(r.Context(), req.SourceID, dstID); err != nil {
		log.Printf("reassign faces after merge: %v", err)
	} else {
		log.Printf("merged identity %s into %s, moved %d faces", req.SourceID, dstID, moved)
	}
	h.persist(r.Context())

	id, _ := h.registry.Get(dstID)
	respondJSON(w, http.StatusOK, toView(id))
}

// Faces handles GET /identities/{id}/faces.
func (h *IdentitiesHandler) Faces(w http.ResponseWriter, r *http.Request) {
	identityID := chi.URLParam(r, "id")
	if _, err := h.registry.Get(identityID); errors.Is(err, identity.ErrNotFound) {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}

	faces, err := h.store.FacesByIdentity(r.Context(), identityID)
	if err != nil {
		log.Printf("faces by identity: %v", err)
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}
	respondJSON(w, http.StatusOK, faces)
}

// Cover handles GET /identities/{id}/cover.
func (h *IdentitiesHandler) Cover(w http.ResponseWriter, r *http.Request) {
	if h.covers == nil {
		respondError(w, http.StatusNotFound, "cover storage not configured")
		return
	}

	data, err := h.covers.GetCover(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "cover not found")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// SuggestName handles POST /identities/{id}/suggest-name: ask the
// vision model for a descriptive label based on the cover crop.
func (h *IdentitiesHandler) SuggestName(w http.ResponseWriter, r *http.Request) {
	if h.namer == nil || h.covers == nil {
		respondError(w, http.StatusNotImplemented, "name suggestions not configured")
		return
	}

	identityID := chi.URLParam(r, "id")
	id, err := h.registry.Get(identityID)
	if errors.Is(err, identity.ErrNotFound) {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}

	cover, err := h.covers.GetCover(r.Context(), identityID)
	if err != nil {
		respondError(w, http.StatusNotFound, "cover not found")
		return
	}

	suggestion, err := h.namer.SuggestLabel(r.Context(), cover, int(id.SampleCount))
	if err != nil {
		log.Printf("suggest label: %v", err)
		respondError(w, http.StatusBadGateway, "label suggestion failed")
		return
	}
	respondJSON(w, http.StatusOK, suggestion)
}

// persist writes the registry snapshot through to storage. Failures
// are logged, not surfaced: the in-memory registry stays authoritative.
func (h *IdentitiesHandler) persist(ctx context.Context) {
	if err := h.store.SaveIdentities(ctx, h.registry.Snapshot()); err != nil {
		log.Printf("persist identities: %v", err)
	}
}
