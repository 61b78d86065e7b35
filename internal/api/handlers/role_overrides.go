// role_overrides.go — управление локальными дополнениями ролей (admin).
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListRoleOverrides — GET /api/v1/users/role-overrides.
func (h *APIHandler) ListRoleOverrides(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	items, total, err := h.roleOverrides.List(r.Context(), actor(r), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page[roleOverrideDTO]{
		Items:  mapSlice(items, toRoleOverrideDTO),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// SetRoleOverride — PUT /api/v1/users/{id}/role-override.
// {id} — sub пользователя из JWT, не обязательно UUID.
func (h *APIHandler) SetRoleOverride(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	var req roleOverrideRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ro, err := h.roleOverrides.Set(r.Context(), actor(r), userID, req.Username, req.Role)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRoleOverrideDTO(ro))
}

// DeleteRoleOverride — DELETE /api/v1/users/{id}/role-override.
func (h *APIHandler) DeleteRoleOverride(w http.ResponseWriter, r *http.Request) {
	if err := h.roleOverrides.Delete(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
