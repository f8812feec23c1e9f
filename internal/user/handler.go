package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"bijouterie-be/internal/adminlog"
	"bijouterie-be/internal/logger"
	"bijouterie-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	svc      Service
	auditLog adminlog.Repository
}

func NewHandler(svc Service, auditLog adminlog.Repository) *Handler {
	return &Handler{svc: svc, auditLog: auditLog}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type authResponse struct {
	Token   string  `json:"token"`
	Profile Profile `json:"profile"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	token, profile, err := h.svc.Register(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			utils.WriteJSONError(w, "email already registered", http.StatusConflict)
			return
		}
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, authResponse{Token: token, Profile: profile})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	token, profile, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			utils.WriteJSONError(w, "invalid email or password", http.StatusUnauthorized)
			return
		}
		logger.FromCtx(r.Context()).Error("login failed", zap.Error(err))
		utils.WriteJSONError(w, "login failed", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusOK, authResponse{Token: token, Profile: profile})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	profile, err := h.svc.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			utils.WriteJSONError(w, "profile not found", http.StatusNotFound)
			return
		}
		utils.WriteJSONError(w, "failed to load profile", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusOK, profile)
}

type updateProfileRequest struct {
	FullName string  `json:"full_name"`
	Phone    *string `json:"phone"`
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := h.svc.UpdateProfile(r.Context(), UpdateProfileParams{
		UserID:   userID,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidPhone) {
			utils.WriteFieldError(w, "phone", "malformed phone number")
			return
		}
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		logger.FromCtx(r.Context()).Error("failed to list users", zap.Error(err))
		utils.WriteJSONError(w, "failed to list users", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, users)
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) AdminChangeRole(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "id")

	var req changeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.svc.ChangeRole(r.Context(), targetID, req.Role); err != nil {
		if errors.Is(err, ErrInvalidRole) {
			utils.WriteFieldError(w, "role", "invalid role")
			return
		}
		if errors.Is(err, ErrProfileNotFound) {
			utils.WriteJSONError(w, "user not found", http.StatusNotFound)
			return
		}
		utils.WriteJSONError(w, "failed to change role", http.StatusInternalServerError)
		return
	}

	adminID, _ := utils.GetUserIDFromContext(r.Context())
	h.auditLog.Record(r.Context(), adminID, adminlog.ActionUpdate, "user_role", &targetID,
		map[string]string{"role": req.Role})

	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
