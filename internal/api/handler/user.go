package handler

import (
	"net/http"

	"github.com/skylift/skylift/internal/api/jsonapi"
	"github.com/skylift/skylift/internal/model"
	"gorm.io/gorm"
)

// UserHandler handles /api/v1/users routes. These are operator endpoints
// guarded by permission strings rather than per-app roles.
type UserHandler struct {
	db *gorm.DB
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// List handles GET /api/v1/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	var users []model.User
	if err := h.db.WithContext(r.Context()).Order("created_at").Limit(200).Find(&users).Error; err != nil {
		jsonapi.RenderError(w, http.StatusInternalServerError, "store_error", "Internal Server Error", "failed to list users")
		return
	}

	data := make([]any, 0, len(users))
	for _, u := range users {
		data = append(data, jsonapi.ResourceObject{
			Type: "user",
			ID:   u.ID,
			Attributes: map[string]any{
				"email":       u.Email,
				"first_name":  u.FirstName,
				"last_name":   u.LastName,
				"is_active":   u.IsActive,
				"is_verified": u.IsVerified,
			},
		})
	}
	jsonapi.RenderList(w, http.StatusOK, data, nil)
}
