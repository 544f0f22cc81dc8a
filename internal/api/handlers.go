/**
 * @description
 * This file contains the HTTP handler functions for the membership service.
 * Handlers are responsible for parsing incoming requests, calling the
 * appropriate business logic in the service layer, and writing the HTTP
 * response. Domain errors are mapped to status codes in one place so every
 * endpoint reports failures the same way.
 */
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/PawanLambole/haji-fitness-point/internal/app"
	"github.com/PawanLambole/haji-fitness-point/internal/domain"
	"github.com/PawanLambole/haji-fitness-point/internal/store"
)

// maxPhotoSize caps photo uploads at 5 MiB, matching what the storage
// bucket accepts.
const maxPhotoSize = 5 << 20

// Service is the surface the handlers need from the application layer.
// *app.MemberService satisfies it.
type Service interface {
	RegisterMember(ctx context.Context, creatorID string, draft domain.MemberDraft) (*app.RegisterResult, error)
	ListMembers(ctx context.Context, filters domain.MemberFilters) ([]domain.Member, error)
	GetMemberProfile(ctx context.Context, id uuid.UUID) (*domain.MemberProfile, error)
	UpdateMember(ctx context.Context, callerID string, id uuid.UUID, patch domain.MemberPatch) (*domain.Member, error)
	DeleteMember(ctx context.Context, callerID string, id uuid.UUID) error
	RenewMembership(ctx context.Context, callerID string, id uuid.UUID, extraMonths int) (*domain.Member, error)
	AttachPhoto(ctx context.Context, callerID string, id uuid.UUID, filename, contentType string, body io.Reader) (*domain.Member, error)
	RemovePhoto(ctx context.Context, callerID string, id uuid.UUID) (*domain.Member, error)
	ListPayments(ctx context.Context, memberID uuid.UUID) ([]domain.Payment, error)
	PaymentStats(ctx context.Context) (*domain.PaymentStats, error)
}

// Handler holds the application service that handlers will interact with.
type Handler struct {
	service  Service
	logger   *slog.Logger
	pageSize int
}

// NewHandler creates a new Handler with the given service.
func NewHandler(service Service, logger *slog.Logger, pageSize int) *Handler {
	if pageSize <= 0 {
		pageSize = app.DefaultPageSize
	}
	return &Handler{service: service, logger: logger, pageSize: pageSize}
}

// handleListPlans returns the membership plan catalog.
func (h *Handler) handleListPlans(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, domain.MembershipPlans)
}

// handleRegister handles new member registration.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var draft domain.MemberDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.RegisterMember(r.Context(), userID, draft)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

// handleListMembers returns one page of members. Query parameters: q for
// text search, active for the active flag, limit and offset for paging.
func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	filters := domain.MemberFilters{
		Search: r.URL.Query().Get("q"),
		Limit:  h.pageSize,
	}

	if raw := r.URL.Query().Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "Invalid 'active' parameter", http.StatusBadRequest)
			return
		}
		filters.IsActive = &active
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			http.Error(w, "Invalid 'limit' parameter", http.StatusBadRequest)
			return
		}
		// Clamp to the store's cap so has_more is computed against the
		// limit that was actually applied.
		if limit > store.MaxListLimit {
			limit = store.MaxListLimit
		}
		filters.Limit = limit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			http.Error(w, "Invalid 'offset' parameter", http.StatusBadRequest)
			return
		}
		filters.Offset = offset
	}

	members, err := h.service.ListMembers(r.Context(), filters)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"members":  members,
		"has_more": len(members) == filters.Limit,
	})
}

// handleGetMember returns a member's detail profile.
func (h *Handler) handleGetMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.memberID(w, r)
	if !ok {
		return
	}

	profile, err := h.service.GetMemberProfile(r.Context(), id)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}

// handleUpdateMember applies a partial update to a member.
func (h *Handler) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := h.memberID(w, r)
	if !ok {
		return
	}

	var patch domain.MemberPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	member, err := h.service.UpdateMember(r.Context(), userID, id, patch)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, member)
}

// handleDeleteMember removes a member.
func (h *Handler) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := h.memberID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteMember(r.Context(), userID, id); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleRenewMembership extends a member's end date by whole months.
func (h *Handler) handleRenewMembership(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := h.memberID(w, r)
	if !ok {
		return
	}

	var req struct {
		Months int `json:"months"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	member, err := h.service.RenewMembership(r.Context(), userID, id, req.Months)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, member)
}

// handleAttachPhoto accepts a multipart photo upload for a member.
func (h *Handler) handleAttachPhoto(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := h.memberID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		http.Error(w, "A 'photo' file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	member, err := h.service.AttachPhoto(r.Context(), userID, id, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, member)
}

// handleRemovePhoto clears a member's photo.
func (h *Handler) handleRemovePhoto(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := h.memberID(w, r)
	if !ok {
		return
	}

	member, err := h.service.RemovePhoto(r.Context(), userID, id)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, member)
}

// handleListPayments returns a member's payment history.
func (h *Handler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.memberID(w, r)
	if !ok {
		return
	}

	payments, err := h.service.ListPayments(r.Context(), id)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"payments": payments})
}

// handlePaymentStats returns the current month's payment aggregates.
func (h *Handler) handlePaymentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.PaymentStats(r.Context())
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

// memberID parses the {memberID} URL parameter, writing the error response
// itself when the value is not a UUID.
func (h *Handler) memberID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "memberID"))
	if err != nil {
		http.Error(w, "Invalid member ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// respondWithError maps domain errors to HTTP status codes.
func (h *Handler) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *app.ValidationError
	switch {
	case errors.As(err, &vErr):
		respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": vErr.Error()})
	case errors.Is(err, app.ErrUnauthorized):
		respondWithJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	case errors.Is(err, store.ErrMemberNotFound):
		respondWithJSON(w, http.StatusNotFound, map[string]string{"error": "Member not found"})
	case errors.Is(err, app.ErrAllocationConflict), errors.Is(err, store.ErrDuplicateAssignmentNumber):
		respondWithJSON(w, http.StatusConflict, map[string]string{"error": "Assignment number conflict, please retry"})
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondWithJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
}

// respondWithJSON is a helper function to write JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
