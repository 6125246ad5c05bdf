package routes

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/carepulse/platform/pkg/common/logger"
	"github.com/carepulse/platform/pkg/common/models"
	gatewayauth "github.com/carepulse/platform/pkg/gateway/auth"
	"github.com/carepulse/platform/pkg/gateway/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db          *gorm.DB
	tokenSigner *gatewayauth.JWTManager
	oidc        *gatewayauth.OIDCAuthenticator
}

type LoginRequest struct {
	Email string `json:"email"`
}

type AuthResponse struct {
	Token string         `json:"token"`
	User  models.Patient `json:"user"`
}

func NewAuthHandler(db *gorm.DB, tokenSigner *gatewayauth.JWTManager, oidc *gatewayauth.OIDCAuthenticator) *AuthHandler {
	return &AuthHandler{db: db, tokenSigner: tokenSigner, oidc: oidc}
}

func (h *AuthHandler) Register(r *mux.Router) {
	r.HandleFunc("/auth/login", h.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/sso", h.handleSSO).Methods(http.MethodPost)

	protected := r.NewRoute().Subrouter()
	protected.Use(middleware.Authenticate(h.tokenSigner))
	protected.HandleFunc("/auth/me", h.handleMe).Methods(http.MethodGet)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}

	user, err := h.lookupByEmail(r, email)
	if err != nil {
		logger.Log.WithError(err).WithField("email", email).Warn("login failed")
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.tokenSigner.IssueToken(user)
	if err != nil {
		logger.Log.WithError(err).Error("failed issuing token")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// handleSSO exchanges an external identity provider access token for a
// platform token. The provider's userinfo endpoint vouches for the email.
func (h *AuthHandler) handleSSO(w http.ResponseWriter, r *http.Request) {
	if h.oidc == nil {
		http.Error(w, "sso not configured", http.StatusNotImplemented)
		return
	}

	var req struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccessToken == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	identity, err := h.oidc.ValidateToken(r.Context(), req.AccessToken)
	if err != nil {
		logger.Log.WithError(err).Warn("sso token rejected")
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	email, _ := identity["email"].(string)
	if email == "" {
		http.Error(w, "identity provider returned no email", http.StatusUnauthorized)
		return
	}

	user, err := h.lookupByEmail(r, strings.ToLower(email))
	if err != nil {
		logger.Log.WithError(err).WithField("email", email).Warn("sso login for unknown user")
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.tokenSigner.IssueToken(user)
	if err != nil {
		logger.Log.WithError(err).Error("failed issuing token")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var user models.Patient
	err := h.db.WithContext(r.Context()).
		Raw(`SELECT id, name, email, phone, role, created_at FROM patients WHERE id = ?`, claims.UserID).
		Scan(&user).Error
	if err != nil || user.ID == uuid.Nil {
		logger.Log.WithError(err).Warn("failed to fetch user in /auth/me")
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) lookupByEmail(r *http.Request, email string) (models.Patient, error) {
	var user models.Patient
	err := h.db.WithContext(r.Context()).
		Raw(`SELECT id, name, email, phone, role, created_at FROM patients WHERE LOWER(email) = ?`, email).
		Scan(&user).Error
	if err != nil {
		return models.Patient{}, err
	}
	if user.ID == uuid.Nil {
		return models.Patient{}, gorm.ErrRecordNotFound
	}
	return user, nil
}
