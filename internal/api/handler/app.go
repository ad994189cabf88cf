package handler

import (
	"encoding/json"
	"net/http"

	"github.com/skylift/skylift/internal/access"
	"github.com/skylift/skylift/internal/api/jsonapi"
	"github.com/skylift/skylift/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AppHandler handles /api/v1/apps/* routes. Access control happens in the
// middleware chain; by the time a handler runs, the caller's grant is in
// the request context.
type AppHandler struct {
	db *gorm.DB
}

// NewAppHandler creates an AppHandler.
func NewAppHandler(db *gorm.DB) *AppHandler {
	return &AppHandler{db: db}
}

// Get handles GET /api/v1/apps/{id}.
func (h *AppHandler) Get(w http.ResponseWriter, r *http.Request) {
	grant := access.AppGrantFromContext(r.Context())
	if grant == nil {
		jsonapi.RenderError(w, http.StatusForbidden, "no_access", "Forbidden", "no access to this app")
		return
	}

	var app model.App
	if err := h.db.WithContext(r.Context()).First(&app, "id = ?", grant.AppID).Error; err != nil {
		jsonapi.RenderError(w, http.StatusNotFound, "not_found", "Not Found", "app does not exist")
		return
	}

	jsonapi.Render(w, http.StatusOK, jsonapi.Document{
		Data: jsonapi.ResourceObject{
			Type: "app",
			ID:   app.ID,
			Attributes: map[string]any{
				"name":           app.Name,
				"app_identifier": app.AppIdentifier,
				"platform":       app.Platform,
			},
			Relationships: map[string]jsonapi.Relationship{
				"organization": {Data: map[string]string{"type": "organization", "id": app.OrganizationID}},
			},
		},
		Meta: jsonapi.Meta{
			"role":    string(grant.Role),
			"via_org": grant.ViaOrg,
		},
	})
}

type permissionRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func validAppRole(role string) bool {
	switch model.AppRole(role) {
	case model.AppRoleAdmin, model.AppRoleDeveloper, model.AppRoleTester, model.AppRoleViewer:
		return true
	}
	return false
}

// UpsertPermission handles PUT /api/v1/apps/{id}/permissions: grants or
// re-grants a direct app role. One row per (app, user); re-granting
// overwrites the role.
func (h *AppHandler) UpsertPermission(w http.ResponseWriter, r *http.Request) {
	grant := access.AppGrantFromContext(r.Context())
	if grant == nil {
		jsonapi.RenderError(w, http.StatusForbidden, "no_access", "Forbidden", "no access to this app")
		return
	}

	var req permissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonapi.RenderError(w, http.StatusBadRequest, "invalid_body", "Bad Request", "request body must be valid JSON")
		return
	}
	if req.UserID == "" || req.Role == "" {
		jsonapi.RenderError(w, http.StatusUnprocessableEntity, "missing_field", "Unprocessable Entity", "user_id and role are required")
		return
	}
	if !validAppRole(req.Role) {
		jsonapi.RenderError(w, http.StatusUnprocessableEntity, "invalid_role", "Unprocessable Entity", "role must be admin, developer, tester or viewer")
		return
	}

	perm := model.AppPermission{
		AppID:  grant.AppID,
		UserID: req.UserID,
		Role:   model.AppRole(req.Role),
	}
	err := h.db.WithContext(r.Context()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "app_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
	}).Create(&perm).Error
	if err != nil {
		jsonapi.RenderError(w, http.StatusInternalServerError, "store_error", "Internal Server Error", "failed to store the grant")
		return
	}

	// On a conflicting re-grant the existing row keeps its id; read it back.
	var stored model.AppPermission
	if err := h.db.WithContext(r.Context()).
		First(&stored, "app_id = ? AND user_id = ?", grant.AppID, req.UserID).Error; err == nil {
		perm = stored
	}

	jsonapi.RenderOne(w, http.StatusOK, jsonapi.ResourceObject{
		Type: "app_permission",
		ID:   perm.ID,
		Attributes: map[string]any{
			"app_id":  grant.AppID,
			"user_id": req.UserID,
			"role":    req.Role,
		},
	})
}

// RevokePermission handles DELETE /api/v1/apps/{id}/permissions/{userID}.
func (h *AppHandler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	grant := access.AppGrantFromContext(r.Context())
	if grant == nil {
		jsonapi.RenderError(w, http.StatusForbidden, "no_access", "Forbidden", "no access to this app")
		return
	}
	userID := r.PathValue("userID")
	if userID == "" {
		jsonapi.RenderError(w, http.StatusBadRequest, "missing_parameter", "Bad Request", "user id is required")
		return
	}

	res := h.db.WithContext(r.Context()).
		Where("app_id = ? AND user_id = ?", grant.AppID, userID).
		Delete(&model.AppPermission{})
	if res.Error != nil {
		jsonapi.RenderError(w, http.StatusInternalServerError, "store_error", "Internal Server Error", "failed to revoke the grant")
		return
	}
	if res.RowsAffected == 0 {
		jsonapi.RenderError(w, http.StatusNotFound, "not_found", "Not Found", "no direct grant for this user on this app")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
