// mel.go — обработчики объектов MEL, знаков, справочника типов и отметок.
// Чтение объектов и знаков публичное, отметки требуют аутентификации,
// изменения справочников только для admin.
package handlers

import (
	"net/http"

	apierrors "github.com/civicwatch/civicwatch/internal/api/errors"
	"github.com/civicwatch/civicwatch/internal/domain/model"
)

// pathLocation связывает координаты объекта из пути /{lat}/{lon}.
func pathLocation(w http.ResponseWriter, r *http.Request) (model.Location, bool) {
	var loc model.Location
	if !bindPath(w, r, "lat", &loc.Lat) || !bindPath(w, r, "lon", &loc.Lon) {
		return model.Location{}, false
	}
	return loc, true
}

// ListMelProperties — GET /api/v1/mel/properties.
func (h *APIHandler) ListMelProperties(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	props, err := h.mel.ListProperties(r.Context(), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(props, toMelPropertyDTO))
}

// GetMelProperty — GET /api/v1/mel/properties/{lat}/{lon}.
func (h *APIHandler) GetMelProperty(w http.ResponseWriter, r *http.Request) {
	loc, ok := pathLocation(w, r)
	if !ok {
		return
	}

	p, err := h.mel.GetProperty(r.Context(), loc)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMelPropertyDTO(p))
}

// CreateMelProperty — POST /api/v1/mel/properties.
func (h *APIHandler) CreateMelProperty(w http.ResponseWriter, r *http.Request) {
	var req melPropertyCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p := &model.MelProperty{
		Location:      model.Location{Lat: req.Lat, Lon: req.Lon},
		NaturalSpace:  req.NaturalSpace,
		PointsValue:   req.PointsValue,
		NumberOfSigns: req.NumberOfSigns,
	}
	if err := h.mel.CreateProperty(r.Context(), actor(r), p); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMelPropertyDTO(p))
}

// UpdateMelProperty — PATCH /api/v1/mel/properties/{lat}/{lon}.
func (h *APIHandler) UpdateMelProperty(w http.ResponseWriter, r *http.Request) {
	loc, ok := pathLocation(w, r)
	if !ok {
		return
	}
	var req melPropertyUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.mel.UpdateProperty(r.Context(), actor(r), loc, model.MelPropertyPatch{
		NaturalSpace:  req.NaturalSpace,
		PointsValue:   req.PointsValue,
		NumberOfSigns: req.NumberOfSigns,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMelPropertyDTO(p))
}

// DeleteMelProperty — DELETE /api/v1/mel/properties/{lat}/{lon}.
func (h *APIHandler) DeleteMelProperty(w http.ResponseWriter, r *http.Request) {
	loc, ok := pathLocation(w, r)
	if !ok {
		return
	}

	if err := h.mel.DeleteProperty(r.Context(), actor(r), loc); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMelSigns — GET /api/v1/mel/signs?lat=&lon=.
// lat и lon указываются вместе либо не указываются вовсе.
func (h *APIHandler) ListMelSigns(w http.ResponseWriter, r *http.Request) {
	var lat, lon *float64
	if !bindQuery(w, r, "lat", &lat) || !bindQuery(w, r, "lon", &lon) {
		return
	}
	if (lat == nil) != (lon == nil) {
		apierrors.ValidationError(w, "Параметры lat и lon указываются вместе")
		return
	}
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	var loc *model.Location
	if lat != nil {
		loc = &model.Location{Lat: *lat, Lon: *lon}
	}

	signs, err := h.mel.ListSigns(r.Context(), loc, limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(signs, toMelSignDTO))
}

// GetMelSign — GET /api/v1/mel/signs/{id}.
func (h *APIHandler) GetMelSign(w http.ResponseWriter, r *http.Request) {
	var id int64
	if !bindPath(w, r, "id", &id) {
		return
	}

	sign, err := h.mel.GetSign(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMelSignDTO(sign))
}

// CreateMelSign — POST /api/v1/mel/signs.
func (h *APIHandler) CreateMelSign(w http.ResponseWriter, r *http.Request) {
	var req melSignCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sign := &model.MelSign{
		Location:            model.Location{Lat: req.Lat, Lon: req.Lon},
		SignType:            req.SignType,
		Tagged:              req.Tagged,
		DeterioratedInfo:    req.DeterioratedInfo,
		HiddenByEnvironment: req.HiddenByEnvironment,
		Standing:            req.Standing,
		Present:             req.Present,
		ComponentTotal:      req.ComponentTotal,
	}
	if err := h.mel.CreateSign(r.Context(), actor(r), sign); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMelSignDTO(sign))
}

// UpdateMelSign — PATCH /api/v1/mel/signs/{id}.
func (h *APIHandler) UpdateMelSign(w http.ResponseWriter, r *http.Request) {
	var id int64
	if !bindPath(w, r, "id", &id) {
		return
	}
	var req melSignUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sign, err := h.mel.UpdateSign(r.Context(), actor(r), id, model.MelSignPatch{
		SignType:            req.SignType,
		Tagged:              req.Tagged,
		DeterioratedInfo:    req.DeterioratedInfo,
		HiddenByEnvironment: req.HiddenByEnvironment,
		Standing:            req.Standing,
		Present:             req.Present,
		ComponentTotal:      req.ComponentTotal,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMelSignDTO(sign))
}

// DeleteMelSign — DELETE /api/v1/mel/signs/{id}.
func (h *APIHandler) DeleteMelSign(w http.ResponseWriter, r *http.Request) {
	var id int64
	if !bindPath(w, r, "id", &id) {
		return
	}

	if err := h.mel.DeleteSign(r.Context(), actor(r), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMelSignTypes — GET /api/v1/mel/sign-types.
func (h *APIHandler) ListMelSignTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.mel.ListSignTypes(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(types, toMelSignTypeDTO))
}

// CreateMelSignType — POST /api/v1/mel/sign-types.
func (h *APIHandler) CreateMelSignType(w http.ResponseWriter, r *http.Request) {
	var req melSignTypeCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	t, err := h.mel.CreateSignType(r.Context(), actor(r), req.SignType)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMelSignTypeDTO(t))
}

// DeleteMelSignType — DELETE /api/v1/mel/sign-types/{signType}.
func (h *APIHandler) DeleteMelSignType(w http.ResponseWriter, r *http.Request) {
	var name string
	if !bindPath(w, r, "signType", &name) {
		return
	}

	if err := h.mel.DeleteSignType(r.Context(), actor(r), name); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateMelReport — POST /api/v1/mel/reports.
func (h *APIHandler) CreateMelReport(w http.ResponseWriter, r *http.Request) {
	var req melReportCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rep, err := h.mel.Report(r.Context(), actor(r), model.Location{Lat: req.Lat, Lon: req.Lon})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMelReportDTO(rep))
}

// ListMyMelReports — GET /api/v1/mel/reports/my.
func (h *APIHandler) ListMyMelReports(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	reps, err := h.mel.ListMyReports(r.Context(), actor(r), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(reps, toMelReportDTO))
}

// ListMelReports — GET /api/v1/mel/reports.
func (h *APIHandler) ListMelReports(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	reps, err := h.mel.ListReports(r.Context(), actor(r), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(reps, toMelReportDTO))
}
