package handlers

import (
	"log"
	"net/http"

	"github.com/openscrape/facedex/internal/identity"
	"github.com/openscrape/facedex/internal/storage"
)

// StatsHandler reports corpus totals.
type StatsHandler struct {
	store    storage.Store
	registry *identity.Registry
}

func NewStatsHandler(store storage.Store, registry *identity.Registry) *StatsHandler {
	return &StatsHandler{store: store, registry: registry}
}

type statsResponse struct {
	*storage.Stats
	RegistryIdentities int `json:"registry_identities"`
}

// Get handles GET /stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		log.Printf("query stats: %v", err)
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}

	respondJSON(w, http.StatusOK, statsResponse{
		Stats:              stats,
		RegistryIdentities: h.registry.Count(),
	})
}
