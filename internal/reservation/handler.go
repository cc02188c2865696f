package reservation

import (
	"encoding/json"
	"net/http"

	"bookrent-bot/internal/storage"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler exposes the storefront-facing API: the reservation entry
// point and the catalog listing the storefront renders from.
type Handler struct {
	service *Service
	db      storage.Database
	logger  *zap.Logger
}

func NewHandler(service *Service, db storage.Database, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		db:      db,
		logger:  logger,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/books", h.handleListBooks)
	r.Post("/reserve", h.handleReserve)
	return r
}

func (h *Handler) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.db.ListBooks(r.Context())
	if err != nil {
		h.logger.Error("Failed to list books", zap.Error(err))
		http.Error(w, `{"error":"Failed to fetch books"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(books)
}

func (h *Handler) handleReserve(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode reservation request", zap.Error(err))
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	result := h.service.Reserve(r.Context(), req)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
