package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/authgate/authgate-go/internal/errutil"
	"github.com/authgate/authgate-go/internal/middleware"
	"github.com/authgate/authgate-go/internal/repository"
	"github.com/authgate/authgate-go/internal/service"
	"github.com/authgate/authgate-go/internal/validator"
)

const maxBodyBytes = 1 << 20 // 1MB

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{service: svc, logger: logger}
}

// HandleRegister handles POST /api/register requests.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeFields(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Register(r.Context(), input)
	if err != nil {
		h.writeError(w, r, service.FlowRegister, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleLogin handles POST /api/login requests.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeFields(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Login(r.Context(), input)
	if err != nil {
		h.writeError(w, r, service.FlowLogin, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleMe handles GET /api/me requests.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	resp, err := h.service.Me(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, service.ErrCannotFindUser) {
			writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
			return
		}
		errutil.LogError(r.Context(), h.logger, "me failed", err, "account_id", accountID)
		writeJSON(w, http.StatusInternalServerError, errorResponse("Internal server error"))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) writeError(w http.ResponseWriter, r *http.Request, flow string, err error) {
	var (
		validationErr *service.ValidationError
		dup           *repository.DuplicateEmailError
	)
	switch {
	case errors.As(err, &validationErr):
		h.logger.DebugContext(r.Context(), "request rejected", "flow", flow, "violations", len(validationErr.Violations))
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Errors: validationErr.Violations})
	case errors.As(err, &dup):
		h.logger.InfoContext(r.Context(), "email already registered", "flow", flow)
		writeJSON(w, http.StatusConflict, errorResponse(dup.Error()))
	case errors.Is(err, service.ErrCannotFindUser), errors.Is(err, service.ErrInvalidPassword):
		h.logger.InfoContext(r.Context(), "credentials rejected", "flow", flow, "reason", err.Error())
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
	default:
		errutil.LogError(r.Context(), h.logger, flow+" failed", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse("Internal server error"))
	}
}

type validationResponse struct {
	Errors validator.Violations `json:"errors"`
}

// decodeFields reads a JSON object of string values. Non-string values are
// rejected rather than coerced.
func decodeFields(w http.ResponseWriter, r *http.Request) (map[string]string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	var input map[string]string
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("request body too large"))
			return nil, false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return nil, false
	}
	if input == nil {
		input = map[string]string{}
	}
	return input, true
}
