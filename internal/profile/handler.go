package profile

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/profile/entity"
	"github.com/ovaphlow/pitchfork/service-storefront-go/pkg/utilities"
)

const maxBodyBytes = 1 << 20

// Handler exposes HTTP endpoints for profile registration and lookup.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the profile endpoints behind gate.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, gate *auth.Gate) {
	mux.Handle("GET /user/profile", gate.Wrap(h.GetProfile))
	// legacy path used by older dashboard builds
	mux.Handle("GET /user/getUser", gate.Wrap(h.GetProfile))
	mux.Handle("POST /user/register/customer", gate.Wrap(h.RegisterCustomer))
	mux.Handle("POST /user/register/seller", gate.Wrap(h.RegisterSeller))
	mux.Handle("POST /user/register", gate.Wrap(h.RegisterLegacy))
}

// ProfileView is the JSON shape of a profile plus the dashboard the client should open.
type ProfileView struct {
	*entity.Document
	Dashboard string `json:"dashboard"`
}

func viewOf(p entity.Profile) ProfileView {
	return ProfileView{Document: entity.ToDocument(p), Dashboard: p.Role().Dashboard()}
}

type RegisterResponse struct {
	Message   string      `json:"message"`
	Profile   ProfileView `json:"profile"`
	Dashboard string      `json:"dashboard"`
}

type CustomerRequest struct {
	ShippingAddress   string          `json:"shippingAddress"`
	Name              *string         `json:"name"`
	ProfilePictureURL string          `json:"profilePictureUrl"`
	Address           *entity.Address `json:"address"`
}

type SellerRequest struct {
	StoreName         string          `json:"storeName"`
	StoreDescription  string          `json:"storeDescription"`
	Name              *string         `json:"name"`
	ProfilePictureURL string          `json:"profilePictureUrl"`
	Address           *entity.Address `json:"address"`
}

// LegacyRequest is the unified body of POST /user/register. Email is accepted
// for compatibility and ignored.
type LegacyRequest struct {
	Role              string          `json:"role"`
	ClerkID           string          `json:"clerkId"`
	Email             string          `json:"email"`
	Name              *string         `json:"name"`
	ProfilePictureURL string          `json:"profilePictureUrl"`
	ShippingAddress   string          `json:"shippingAddress"`
	Address           *entity.Address `json:"address"`
	StoreName         string          `json:"storeName"`
	StoreDescription  string          `json:"storeDescription"`
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request, subjectID string) {
	p, err := h.svc.GetProfile(r.Context(), subjectID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, viewOf(p))
}

func (h *Handler) RegisterCustomer(w http.ResponseWriter, r *http.Request, subjectID string) {
	var req CustomerRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.register(w, r, subjectID, RegistrationRequest{
		Role:              string(entity.RoleCustomer),
		Name:              req.Name,
		ProfilePictureURL: req.ProfilePictureURL,
		ShippingAddress:   req.ShippingAddress,
		Address:           req.Address,
	})
}

func (h *Handler) RegisterSeller(w http.ResponseWriter, r *http.Request, subjectID string) {
	var req SellerRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.register(w, r, subjectID, RegistrationRequest{
		Role:              string(entity.RoleSeller),
		Name:              req.Name,
		ProfilePictureURL: req.ProfilePictureURL,
		Address:           req.Address,
		StoreName:         req.StoreName,
		StoreDescription:  req.StoreDescription,
	})
}

func (h *Handler) RegisterLegacy(w http.ResponseWriter, r *http.Request, subjectID string) {
	var req LegacyRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.register(w, r, subjectID, RegistrationRequest{
		Role:              req.Role,
		ClaimedSubjectID:  req.ClerkID,
		Name:              req.Name,
		ProfilePictureURL: req.ProfilePictureURL,
		ShippingAddress:   req.ShippingAddress,
		Address:           req.Address,
		StoreName:         req.StoreName,
		StoreDescription:  req.StoreDescription,
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request, subjectID string, req RegistrationRequest) {
	p, err := h.svc.Register(r.Context(), subjectID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	msg := "Customer registered"
	if p.Role() == entity.RoleSeller {
		msg = "Seller registered"
	}
	h.writeJSON(w, http.StatusCreated, RegisterResponse{Message: msg, Profile: viewOf(p), Dashboard: p.Role().Dashboard()})
}

// decode reads a single JSON value of at most 1MB. An empty body decodes to the zero value.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(v)
	if err == nil {
		if _, terr := dec.Token(); !errors.Is(terr, io.EOF) {
			err = errors.New("unexpected data after JSON body")
		}
	} else if errors.Is(err, io.EOF) {
		err = nil
	}
	if err != nil {
		utilities.LoggerFrom(r.Context(), h.logger).Debugw("invalid payload", "path", r.URL.Path, "err", err)
		h.writeJSON(w, http.StatusBadRequest, ErrorBody{Error: "invalid payload", Code: "INVALID_INPUT"})
		return false
	}
	return true
}

type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := utilities.LoggerFrom(r.Context(), h.logger)
	var ie *InputError
	switch {
	case errors.As(err, &ie):
		h.writeJSON(w, http.StatusBadRequest, ErrorBody{Error: ie.Error(), Code: "INVALID_INPUT", Field: ie.Field})
	case errors.Is(err, ErrForbidden):
		h.writeJSON(w, http.StatusForbidden, ErrorBody{Error: "forbidden", Code: "FORBIDDEN"})
	case errors.Is(err, ErrAlreadyRegistered):
		h.writeJSON(w, http.StatusBadRequest, ErrorBody{Error: "profile already registered", Code: "ALREADY_REGISTERED"})
	case errors.Is(err, ErrEmailConflict):
		h.writeJSON(w, http.StatusConflict, ErrorBody{Error: "email already in use", Code: "EMAIL_CONFLICT"})
	case errors.Is(err, ErrEmailUnavailable):
		h.writeJSON(w, http.StatusInternalServerError, ErrorBody{Error: "no verified email for this account", Code: "EMAIL_UNAVAILABLE"})
	case errors.Is(err, ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, ErrorBody{Error: "user not found", Code: "NOT_FOUND"})
	default:
		log.Errorw("profile request failed", "path", r.URL.Path, "err", err)
		h.writeJSON(w, http.StatusInternalServerError, ErrorBody{Error: "internal error", Code: "INTERNAL"})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
