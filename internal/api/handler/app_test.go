package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/skylift/skylift/internal/access"
	"github.com/skylift/skylift/internal/api/handler"
	"github.com/skylift/skylift/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAppEnv(t *testing.T) (*handler.AppHandler, *gorm.DB, model.App) {
	t.Helper()
	db := newTestDB(t, &model.Organization{}, &model.App{}, &model.AppPermission{})
	org := model.Organization{Name: "Acme"}
	require.NoError(t, db.Create(&org).Error)
	app := model.App{OrganizationID: org.ID, Name: "Acme iOS", AppIdentifier: "com.acme-ios", Platform: "ios"}
	require.NoError(t, db.Create(&app).Error)
	return handler.NewAppHandler(db), db, app
}

func grantedRequest(method, target, body string, grant *access.AppGrant) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(access.NewAppContext(req.Context(), grant))
}

func TestAppGet(t *testing.T) {
	h, _, app := newAppEnv(t)
	grant := &access.AppGrant{AppID: app.ID, Role: model.AppRoleViewer}

	w := httptest.NewRecorder()
	h.Get(w, grantedRequest(http.MethodGet, "/api/v1/apps/"+app.ID, "", grant))
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		Data struct {
			ID         string         `json:"id"`
			Attributes map[string]any `json:"attributes"`
		} `json:"data"`
		Meta map[string]any `json:"meta"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&doc))
	assert.Equal(t, app.ID, doc.Data.ID)
	assert.Equal(t, "com.acme-ios", doc.Data.Attributes["app_identifier"])
	assert.Equal(t, "viewer", doc.Meta["role"])
}

func TestAppGet_NoGrantInContext(t *testing.T) {
	h, _, app := newAppEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/apps/"+app.ID, http.NoBody)
	w := httptest.NewRecorder()
	h.Get(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpsertPermission_RegrantOverwritesRole(t *testing.T) {
	h, db, app := newAppEnv(t)
	grant := &access.AppGrant{AppID: app.ID, Role: model.AppRoleAdmin}
	target := "/api/v1/apps/" + app.ID + "/permissions"

	w := httptest.NewRecorder()
	h.UpsertPermission(w, grantedRequest(http.MethodPut, target, `{"user_id":"u2","role":"viewer"}`, grant))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.UpsertPermission(w, grantedRequest(http.MethodPut, target, `{"user_id":"u2","role":"developer"}`, grant))
	require.Equal(t, http.StatusOK, w.Code)

	var perms []model.AppPermission
	require.NoError(t, db.Find(&perms, "app_id = ? AND user_id = ?", app.ID, "u2").Error)
	require.Len(t, perms, 1)
	assert.Equal(t, model.AppRoleDeveloper, perms[0].Role)
}

func TestUpsertPermission_InvalidRole(t *testing.T) {
	h, _, app := newAppEnv(t)
	grant := &access.AppGrant{AppID: app.ID, Role: model.AppRoleAdmin}

	w := httptest.NewRecorder()
	h.UpsertPermission(w, grantedRequest(http.MethodPut,
		"/api/v1/apps/"+app.ID+"/permissions", `{"user_id":"u2","role":"superuser"}`, grant))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRevokePermission(t *testing.T) {
	h, db, app := newAppEnv(t)
	grant := &access.AppGrant{AppID: app.ID, Role: model.AppRoleAdmin}
	require.NoError(t, db.Create(&model.AppPermission{AppID: app.ID, UserID: "u2", Role: model.AppRoleViewer}).Error)

	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/v1/apps/{id}/permissions/{userID}", h.RevokePermission)

	req := grantedRequest(http.MethodDelete, "/api/v1/apps/"+app.ID+"/permissions/u2", "", grant)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	// Revoking again is a 404: the grant no longer exists.
	req = grantedRequest(http.MethodDelete, "/api/v1/apps/"+app.ID+"/permissions/u2", "", grant)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
