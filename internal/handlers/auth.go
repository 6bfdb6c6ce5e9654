package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/signlingo/api/internal/auth"
	logpkg "github.com/signlingo/api/internal/logger"
	"github.com/signlingo/api/internal/middleware"
	"github.com/signlingo/api/internal/request"
	"github.com/signlingo/api/internal/validation"
)

// AuthHandler handles registration, login, profile and logout requests
type AuthHandler struct {
	service       *auth.Service
	tokenTTL      time.Duration
	secureCookies bool
	logger        *zap.Logger
}

// NewAuthHandler creates a new auth handler. secureCookies marks the session
// cookie Secure and should be on in production.
func NewAuthHandler(service *auth.Service, tokenTTL time.Duration, secureCookies bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service:       service,
		tokenTTL:      tokenTTL,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// RegisterPublicRoutes registers the unauthenticated auth routes.
// The limiter arguments wrap only their own endpoint.
func (h *AuthHandler) RegisterPublicRoutes(r *mux.Router, loginLimiter, registerLimiter func(http.Handler) http.Handler) {
	register := http.Handler(http.HandlerFunc(h.Register))
	login := http.Handler(http.HandlerFunc(h.Login))
	if registerLimiter != nil {
		register = registerLimiter(register)
	}
	if loginLimiter != nil {
		login = loginLimiter(login)
	}
	r.Handle("/register", register).Methods("POST")
	r.Handle("/login", login).Methods("POST")
	r.HandleFunc("/logout", h.Logout).Methods("POST")
}

// RegisterProtectedRoutes registers the routes that require a session.
func (h *AuthHandler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/profile", h.GetProfile).Methods("GET")
	r.HandleFunc("/profile", h.UpdateProfile).Methods("PUT")
}

// RegisterRequest represents a registration request. Google-originated
// signups carry is_google_auth and the Google subject id instead of a
// password.
type RegisterRequest struct {
	Name           string  `json:"name" validate:"required,min=2,max=100"`
	Email          string  `json:"email" validate:"required,user_email"`
	Phone          *string `json:"phone,omitempty" validate:"omitempty,user_phone"`
	Password       string  `json:"password,omitempty" validate:"required_if=IsGoogleAuth false,omitempty,user_password"`
	IsGoogleAuth   bool    `json:"is_google_auth,omitempty"`
	GoogleID       string  `json:"google_id,omitempty" validate:"required_if=IsGoogleAuth true"`
	ProfilePicture string  `json:"profile_picture,omitempty"`
}

// LoginRequest represents a login request for both paths.
type LoginRequest struct {
	Email        string `json:"email" validate:"required,user_email"`
	Password     string `json:"password,omitempty" validate:"required_if=IsGoogleAuth false"`
	IsGoogleAuth bool   `json:"is_google_auth,omitempty"`
	GoogleID     string `json:"google_id,omitempty" validate:"required_if=IsGoogleAuth true"`
	IDToken      string `json:"id_token,omitempty"`
}

// UpdateProfileRequest represents a profile update request.
type UpdateProfileRequest struct {
	Name  string  `json:"name" validate:"required,min=2,max=100"`
	Email string  `json:"email" validate:"required,user_email"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,user_phone"`
}

// sessionResponse is the payload returned by register and login.
type sessionResponse struct {
	User  any    `json:"user"`
	Token string `json:"token"`
}

// setSessionCookie attaches the session token to the response. HttpOnly
// keeps it away from scripts; SameSite=Lax allows top-level navigation.
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie immediately.
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	req.Name = validation.SanitizeText(req.Name)
	if err := validation.Validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	user, token, err := h.service.Register(r.Context(), auth.RegisterInput{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Password:      req.Password,
		IsGoogleAuth:  req.IsGoogleAuth,
		GoogleID:      req.GoogleID,
		GooglePicture: req.ProfilePicture,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists), errors.Is(err, auth.ErrPhoneExists):
			respondJSONError(w, http.StatusConflict, "Conflict", err.Error())
		default:
			h.logger.Error("registration_failed", zap.String("error", logpkg.SanitizeError(err)))
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Registration failed")
		}
		return
	}

	h.setSessionCookie(w, token)
	respondJSON(w, http.StatusCreated, sessionResponse{User: user, Token: token})
}

// Login handles POST /api/auth/login. The is_google_auth flag in the body
// selects the credential path.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	if req.IsGoogleAuth {
		h.loginGoogle(w, r, req)
		return
	}

	user, token, err := h.service.LoginPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Invalid email or password")
			return
		}
		h.logger.Error("login_failed", zap.String("error", logpkg.SanitizeError(err)))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Login failed")
		return
	}

	h.setSessionCookie(w, token)
	respondJSON(w, http.StatusOK, sessionResponse{User: user, Token: token})
}

func (h *AuthHandler) loginGoogle(w http.ResponseWriter, r *http.Request, req LoginRequest) {
	user, token, err := h.service.LoginGoogle(r.Context(), auth.GoogleLoginInput{
		Email:    req.Email,
		GoogleID: req.GoogleID,
		IDToken:  req.IDToken,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNoGoogleAccount):
			respondJSONError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
		case errors.Is(err, auth.ErrGoogleMismatch):
			respondJSONError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
		default:
			h.logger.Error("google_login_failed", zap.String("error", logpkg.SanitizeError(err)))
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Login failed")
		}
		return
	}

	h.setSessionCookie(w, token)
	respondJSON(w, http.StatusOK, sessionResponse{User: user, Token: token})
}

// GetProfile handles GET /api/auth/profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// UpdateProfile handles PUT /api/auth/profile. When the email changes the
// session cookie is rotated so it keeps matching the account.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	req.Name = validation.SanitizeText(req.Name)
	if err := validation.Validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	updated, token, err := h.service.UpdateProfile(r.Context(), user.ID, req.Name, req.Email, req.Phone)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			respondJSONError(w, http.StatusConflict, "Conflict", err.Error())
		case errors.Is(err, auth.ErrUserNotFound):
			respondJSONError(w, http.StatusNotFound, "Not Found", "User not found")
		default:
			h.logger.Error("profile_update_failed",
				zap.String("user_id", user.ID.String()),
				zap.String("error", logpkg.SanitizeError(err)),
			)
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Profile update failed")
		}
		return
	}

	if token != "" {
		h.setSessionCookie(w, token)
	}
	respondJSON(w, http.StatusOK, updated)
}

// Logout handles POST /api/auth/logout. Tokens are not tracked server side;
// logout clears the cookie and succeeds even without a session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
