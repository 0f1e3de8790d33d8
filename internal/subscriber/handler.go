package subscriber

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-storefront-go/pkg/utilities"
)

// Handler serves the landing page newsletter form.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type SubscribeRequest struct {
	Email  string `json:"email"`
	Source string `json:"source"`
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /newsletter/subscribe", h.Subscribe)
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload", "code": "INVALID_INPUT"})
		return
	}
	sub, created, err := h.svc.Subscribe(r.Context(), req.Email, req.Source)
	if err != nil {
		if errors.Is(err, ErrInvalidEmail) {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid email", "code": "INVALID_INPUT", "field": "email"})
			return
		}
		utilities.LoggerFrom(r.Context(), h.logger).Errorw("subscribe failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error", "code": "INTERNAL"})
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, map[string]any{"subscriber": sub, "created": created})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
