// panels.go — обработчики реестра панелей и очереди проверок.
// GET /panels, /panels/{id} — публичные.
// POST /panels/{id}/checks — любой аутентифицированный пользователь.
// Изменение реестра и валидация проверок — только admin.
package handlers

import (
	"net/http"

	apierrors "github.com/civicwatch/civicwatch/internal/api/errors"
	"github.com/civicwatch/civicwatch/internal/domain/model"
	"github.com/civicwatch/civicwatch/internal/service"
)

// ListPanels — GET /api/v1/panels. Давно не проверенные панели первыми.
func (h *APIHandler) ListPanels(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	panels, total, err := h.panels.List(r.Context(), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page[panelDTO]{
		Items:  mapSlice(panels, toPanelDTO),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// GetPanel — GET /api/v1/panels/{id}.
func (h *APIHandler) GetPanel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.panels.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPanelDTO(p))
}

// CreatePanel — POST /api/v1/panels.
func (h *APIHandler) CreatePanel(w http.ResponseWriter, r *http.Request) {
	var req panelCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.panels.Create(r.Context(), actor(r), service.PanelInput{
		Name:      req.Name,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPanelDTO(p))
}

// UpdatePanel — PATCH /api/v1/panels/{id}.
func (h *APIHandler) UpdatePanel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req panelUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.panels.Update(r.Context(), actor(r), id, model.PanelPatch{
		Name:      req.Name,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPanelDTO(p))
}

// DeletePanel — DELETE /api/v1/panels/{id}.
func (h *APIHandler) DeletePanel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.panels.Delete(r.Context(), actor(r), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitCheck — POST /api/v1/panels/{id}/checks.
func (h *APIHandler) SubmitCheck(w http.ResponseWriter, r *http.Request) {
	panelID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req checkSubmitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	state := model.CheckState(req.State)
	if !state.IsValid() {
		apierrors.ValidationError(w, "Недопустимое состояние панели: "+req.State)
		return
	}

	c, err := h.checks.Submit(r.Context(), actor(r), service.SubmitInput{
		PanelID:     panelID,
		State:       state,
		Comment:     req.Comment,
		EvidenceRef: req.EvidenceRef,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCheckDTO(c))
}

// ListMyPendingChecks — GET /api/v1/checks/my-pending.
func (h *APIHandler) ListMyPendingChecks(w http.ResponseWriter, r *http.Request) {
	checks, err := h.checks.ListMyPending(r.Context(), actor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPendingDTOs(checks))
}

// ListPendingChecks — GET /api/v1/checks/pending. Старые проверки первыми.
func (h *APIHandler) ListPendingChecks(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	checks, total, err := h.checks.ListPending(r.Context(), actor(r), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page[checkDTO]{
		Items:  toPendingDTOs(checks),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// ValidateCheck — PATCH /api/v1/checks/{id}/validate.
// Возвращает панель с обновлённым last_checked_at.
func (h *APIHandler) ValidateCheck(w http.ResponseWriter, r *http.Request) {
	checkID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.checks.Validate(r.Context(), actor(r), checkID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPanelDTO(p))
}
