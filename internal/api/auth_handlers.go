package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"cinefuse/internal/auth"
	"cinefuse/internal/store"
)

// LoginRequest carries login credentials.
type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// LoginResponse contains the session token.
type LoginResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"is_admin"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password required")
		return
	}

	user, err := h.deps.Users.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		h.log.Error("login failed", "error", err)
		respondError(w, http.StatusInternalServerError, "authentication failed")
		return
	}

	token, expiresAt, err := h.deps.Tokens.Generate(user.ID, user.Username, req.RememberMe)
	if err != nil {
		h.log.Error("token generation failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	respondJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		Username:  user.Username,
		IsAdmin:   user.IsAdmin,
		ExpiresAt: expiresAt,
	})
}

// AuthStatus handles GET /api/auth/status: whether first-run setup is
// still open.
func (h *Handler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	count, err := h.deps.Users.Count()
	if err != nil {
		h.log.Error("user count failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to check users")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"setup_required": count == 0,
		"user_count":     count,
	})
}

// Setup handles POST /api/auth/setup: creates the initial admin account.
// Refused once any account exists.
func (h *Handler) Setup(w http.ResponseWriter, r *http.Request) {
	count, err := h.deps.Users.Count()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to check users")
		return
	}
	if count > 0 {
		respondError(w, http.StatusBadRequest, "setup already completed")
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password required")
		return
	}

	user, err := h.deps.Users.Create(req.Username, req.Password)
	if err != nil {
		h.log.Error("setup failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"message": "admin user created",
		"user_id": user.ID,
	})
}

// VerifyToken handles GET /api/auth/verify.
func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	tokenString := r.Header.Get("Authorization")
	if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
		tokenString = tokenString[7:]
	}
	if tokenString == "" {
		respondError(w, http.StatusUnauthorized, "no token provided")
		return
	}

	claims, err := h.deps.Tokens.Validate(tokenString)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"valid":    true,
		"user_id":  claims.UserID,
		"username": claims.Username,
	})
}

// GetCurrentUser handles GET /api/auth/me (protected).
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := h.deps.Users.GetByID(claims.UserID)
	if err != nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":         user.ID,
		"username":   user.Username,
		"is_admin":   user.IsAdmin,
		"created_at": user.CreatedAt,
	})
}

// ChangePassword handles POST /api/auth/password (protected).
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		respondError(w, http.StatusBadRequest, "current and new password required")
		return
	}

	err := h.deps.Users.ChangePassword(claims.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "current password is incorrect")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to change password")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}
