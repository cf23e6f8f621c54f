// auth.go — обработчики аутентификации и управления пользователями.
// POST /api/v1/auth/login           — вход, выпуск JWT
// POST /api/v1/auth/register        — создание пользователя (Admin)
// POST /api/v1/auth/assign-role     — переназначение роли (Admin)
// POST /api/v1/auth/change-password — смена собственного пароля
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/bigkaa/godms/internal/api/errors"
)

// loginRequest — тело запроса входа.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse — результат входа.
type loginResponse struct {
	Token              string    `json:"token"`
	ExpiresAt          time.Time `json:"expires_at"`
	UserID             int64     `json:"user_id"`
	Username           string    `json:"username"`
	Role               string    `json:"role"`
	MustChangePassword bool      `json:"must_change_password"`
}

// Login — POST /api/v1/auth/login.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		apierrors.ValidationError(w, "username и password обязательны")
		return
	}

	result, err := h.authSvc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		apierrors.FromService(w, err, false)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:              result.Token,
		ExpiresAt:          result.ExpiresAt,
		UserID:             result.User.ID,
		Username:           result.User.Username,
		Role:               result.User.RoleName,
		MustChangePassword: result.MustChangePassword,
	})
}

// registerRequest — тело запроса регистрации.
type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// registerResponse — созданный пользователь.
type registerResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Register — POST /api/v1/auth/register. Только Admin (middleware).
func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.authSvc.Register(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		apierrors.FromService(w, err, false)
		return
	}

	h.logger.Info("Пользователь создан",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)
	writeJSON(w, http.StatusCreated, registerResponse{
		ID:       user.ID,
		Username: user.Username,
		Role:     req.Role,
	})
}

// assignRoleRequest — тело запроса переназначения роли.
type assignRoleRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// AssignRole — POST /api/v1/auth/assign-role. Только Admin (middleware).
func (h *APIHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req assignRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Role == "" {
		apierrors.ValidationError(w, "username и role обязательны")
		return
	}

	if err := h.authSvc.AssignRole(r.Context(), caller, req.Username, req.Role); err != nil {
		apierrors.FromService(w, err, false)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// changePasswordRequest — тело запроса смены пароля.
type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword — POST /api/v1/auth/change-password.
func (h *APIHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.authSvc.ChangePassword(r.Context(), caller, req.OldPassword, req.NewPassword); err != nil {
		apierrors.FromService(w, err, false)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// auditEntryResponse — запись журнала аудита в API.
type auditEntryResponse struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"user_id,omitempty"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	EntityID  *int64    `json:"entity_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Detail    *string   `json:"detail,omitempty"`
}

// AuditHistory — GET /api/v1/audit/users/{userID}. Только Admin (middleware).
func (h *APIHandler) AuditHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	limit := queryInt(r, "limit", 100)

	entries, err := h.auditSvc.History(r.Context(), userID, limit)
	if err != nil {
		apierrors.FromService(w, err, false)
		return
	}

	items := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, auditEntryResponse{
			ID:        e.ID,
			UserID:    e.UserID,
			Action:    e.Action,
			Entity:    e.Entity,
			EntityID:  e.EntityID,
			Timestamp: e.Timestamp,
			Detail:    e.Detail,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}
