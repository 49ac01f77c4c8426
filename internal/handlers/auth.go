// internal/handlers/auth.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/medtrackhq/medtrack-be/internal/core/domain"
	"github.com/medtrackhq/medtrack-be/internal/core/ports"
	"github.com/medtrackhq/medtrack-be/internal/pkg/config"
)

// AuthHandler handles registration, login and token issuance
type AuthHandler struct {
	users  ports.UserRepository
	cfg    config.SecurityConfig
	logger *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users ports.UserRepository, cfg config.SecurityConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		cfg:    cfg,
		logger: logger.With(slog.String("handler", "auth")),
	}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.users.FindByUsername(ctx, req.Username)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to look up username",
			slog.String("username", req.Username),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to register")
		return
	}
	if existing != nil {
		h.respondError(w, http.StatusConflict, "Username already taken")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.cfg.BcryptCost)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to hash password",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	user := &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	}

	if err := user.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.users.Save(ctx, user); err != nil {
		h.logger.ErrorContext(ctx, "failed to save user",
			slog.String("username", req.Username),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	h.respondJSON(w, http.StatusCreated, user)
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.users.FindByUsername(ctx, req.Username)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to look up username",
			slog.String("username", req.Username),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}
	if user == nil {
		h.respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, expiresAt, err := h.issueToken(user)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to sign token",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	h.respondJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	})
}

func (h *AuthHandler) issueToken(user *domain.User) (string, time.Time, error) {
	expiresAt := time.Now().Add(h.cfg.JWTExpiration)

	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"exp":      expiresAt.Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func (h *AuthHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

func (h *AuthHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// RegisterRequest represents the request body for registering an operator
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the registration fields before any work is done
func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return domain.NewValidationError("username", "is required")
	}
	if strings.TrimSpace(r.Email) == "" {
		return domain.NewValidationError("email", "is required")
	}
	if len(r.Password) < 8 {
		return domain.NewValidationError("password", "must be at least 8 characters")
	}
	return nil
}

// LoginRequest represents the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token and its expiry
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}
