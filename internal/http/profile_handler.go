package http

import (
	"context"
	"net/http"
	"time"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
)

type ProfileService interface {
	GetProfile(ctx context.Context, caller domain.Caller) (*domain.Profile, error)
	CreateProfile(ctx context.Context, caller domain.Caller, phone string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, caller domain.Caller, phone string) (*domain.Profile, error)
	ListAddresses(ctx context.Context, caller domain.Caller) ([]*domain.Address, error)
	CreateAddress(ctx context.Context, caller domain.Caller, a *domain.Address) error
	DeleteAddress(ctx context.Context, caller domain.Caller, id int64) error
}

type ProfileHandler struct {
	profiles ProfileService
	timeout  time.Duration
}

func NewProfileHandler(profiles ProfileService, timeout time.Duration) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, timeout: timeout}
}

// GET /api/v1/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := callerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	p, err := h.profiles.GetProfile(ctx, caller)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProfileDTO(p))
}

// POST /api/v1/profile
func (h *ProfileHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := callerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req ProfileRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.profiles.CreateProfile(ctx, caller, req.PhoneNumber)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toProfileDTO(p))
}

// PUT /api/v1/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := callerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req ProfileRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.profiles.UpdateProfile(ctx, caller, req.PhoneNumber)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProfileDTO(p))
}

// GET /api/v1/addresses
func (h *ProfileHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := callerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	addresses, err := h.profiles.ListAddresses(ctx, caller)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toAddressDTOs(addresses))
}

// POST /api/v1/addresses
func (h *ProfileHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := callerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req AddressRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	a := req.toDomain()
	if err := h.profiles.CreateAddress(ctx, caller, a); err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toAddressDTO(a))
}

// DELETE /api/v1/addresses/{address_id}
func (h *ProfileHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := callerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	id, ok := parseIDParam(w, r, "address_id")
	if !ok {
		return
	}

	if err := h.profiles.DeleteAddress(ctx, caller, id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
