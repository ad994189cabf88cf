package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/skylift/skylift/internal/api/jsonapi"
	"github.com/skylift/skylift/internal/api/middleware"
	"github.com/skylift/skylift/internal/onboarding"
)

// Onboarder runs the provisioning flow for a new account.
type Onboarder interface {
	Onboard(ctx context.Context, userID string, org onboarding.OrgInput, app onboarding.AppInput) (*onboarding.Result, error)
}

// OnboardingHandler handles POST /api/v1/onboarding.
type OnboardingHandler struct {
	saga Onboarder
}

// NewOnboardingHandler creates an OnboardingHandler.
func NewOnboardingHandler(saga Onboarder) *OnboardingHandler {
	return &OnboardingHandler{saga: saga}
}

type onboardingRequest struct {
	Organization struct {
		Name string `json:"name"`
	} `json:"organization"`
	App struct {
		Name     string `json:"name"`
		Platform string `json:"platform"`
	} `json:"app"`
}

// Onboard handles POST /api/v1/onboarding: creates the organization, the
// owner membership, and the first app for the authenticated user.
func (h *OnboardingHandler) Onboard(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	if id == nil {
		jsonapi.RenderError(w, http.StatusUnauthorized, "missing_token", "Unauthorized", "authentication required")
		return
	}

	var req onboardingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonapi.RenderError(w, http.StatusBadRequest, "invalid_body", "Bad Request", "request body must be valid JSON")
		return
	}

	result, err := h.saga.Onboard(r.Context(), id.ID,
		onboarding.OrgInput{Name: req.Organization.Name},
		onboarding.AppInput{Name: req.App.Name, Platform: req.App.Platform})
	if err != nil {
		switch {
		case errors.Is(err, onboarding.ErrMissingField):
			jsonapi.RenderError(w, http.StatusUnprocessableEntity,
				"missing_field", "Unprocessable Entity", "organization name, app name and app platform are required")
		case errors.Is(err, onboarding.ErrInvalidPlatform):
			jsonapi.RenderError(w, http.StatusUnprocessableEntity,
				"invalid_platform", "Unprocessable Entity", `app platform must be "ios" or "android"`)
		default:
			jsonapi.RenderError(w, http.StatusInternalServerError,
				"onboarding_failed", "Internal Server Error", "failed to provision the account")
		}
		return
	}

	jsonapi.Render(w, http.StatusCreated, jsonapi.Document{
		Data: jsonapi.ResourceObject{
			Type: "organization",
			ID:   result.Organization.ID,
			Attributes: map[string]any{
				"name": result.Organization.Name,
			},
			Relationships: map[string]jsonapi.Relationship{
				"apps": {Data: []any{map[string]string{"type": "app", "id": result.App.ID}}},
			},
		},
		Included: []any{jsonapi.ResourceObject{
			Type: "app",
			ID:   result.App.ID,
			Attributes: map[string]any{
				"name":           result.App.Name,
				"app_identifier": result.App.AppIdentifier,
				"platform":       result.App.Platform,
			},
		}},
	})
}
