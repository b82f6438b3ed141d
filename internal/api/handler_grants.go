package api

import (
	"net/http"
	"strconv"
	"time"

	"permissions-manager/internal/domain"
)

type durationResponse struct {
	ID              int64     `json:"id"`
	GroupID         int64     `json:"groupId"`
	Name            string    `json:"name"`
	DurationSeconds int64     `json:"durationSeconds"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toDurationResponse(d *domain.GrantDuration) durationResponse {
	return durationResponse{
		ID:              d.ID,
		GroupID:         d.GroupID,
		Name:            d.Name,
		DurationSeconds: d.DurationSeconds,
		CreatedAt:       d.CreatedAt,
	}
}

func groupQueryParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.URL.Query().Get("group"), 10, 64)
	if err != nil {
		return 0, domain.ErrValidation("invalid-id", "query parameter \"group\" must be an integer")
	}
	return id, nil
}

func (h *Handler) listDurations(w http.ResponseWriter, r *http.Request) {
	groupID, err := groupQueryParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	durations, next, err := h.durations.List(r.Context(), h.principal(r), groupID, pageFromQuery(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	items := make([]durationResponse, 0, len(durations))
	for i := range durations {
		items = append(items, toDurationResponse(&durations[i]))
	}
	h.writeJSON(w, http.StatusOK, listResponse[durationResponse]{Items: items, NextPageToken: next})
}

type durationRequest struct {
	GroupID         int64  `json:"groupId"`
	Name            string `json:"name"`
	DurationSeconds int64  `json:"durationSeconds"`
}

func (h *Handler) createDuration(w http.ResponseWriter, r *http.Request) {
	var body durationRequest
	if !h.decode(w, r, &body) {
		return
	}
	d, err := h.durations.Create(r.Context(), h.principal(r), domain.CreateGrantDurationRequest{
		GroupID:         body.GroupID,
		Name:            body.Name,
		DurationSeconds: body.DurationSeconds,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toDurationResponse(d))
}

func (h *Handler) updateDuration(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var body durationRequest
	if !h.decode(w, r, &body) {
		return
	}
	d, err := h.durations.Update(r.Context(), h.principal(r), domain.CreateGrantDurationRequest{
		GroupID:         body.GroupID,
		Name:            body.Name,
		DurationSeconds: body.DurationSeconds,
	}, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toDurationResponse(d))
}

func (h *Handler) deleteDuration(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.durations.Delete(r.Context(), h.principal(r), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- application grants ---

type grantResponse struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	ApplicationID   int64     `json:"applicationId"`
	GroupID         int64     `json:"groupId"`
	GrantDurationID int64     `json:"grantDurationId"`
	Subject         string    `json:"subject"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toGrantResponse(g *domain.ApplicationGrant) grantResponse {
	return grantResponse{
		ID:              g.ID,
		Name:            g.Name,
		ApplicationID:   g.ApplicationID,
		GroupID:         g.GroupID,
		GrantDurationID: g.GrantDurationID,
		Subject:         g.Subject,
		CreatedAt:       g.CreatedAt,
	}
}

func (h *Handler) listGrants(w http.ResponseWriter, r *http.Request) {
	groupID, err := groupQueryParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	grantList, next, err := h.appGrants.ListByGroup(r.Context(), h.principal(r), groupID, pageFromQuery(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	items := make([]grantResponse, 0, len(grantList))
	for i := range grantList {
		items = append(items, toGrantResponse(&grantList[i]))
	}
	h.writeJSON(w, http.StatusOK, listResponse[grantResponse]{Items: items, NextPageToken: next})
}

func (h *Handler) createGrant(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name            string `json:"name"`
		ApplicationID   int64  `json:"applicationId"`
		GroupID         int64  `json:"groupId"`
		GrantDurationID int64  `json:"grantDurationId"`
		Subject         string `json:"subject"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	g, err := h.appGrants.Create(r.Context(), h.principal(r), domain.CreateApplicationGrantRequest{
		Name:            body.Name,
		ApplicationID:   body.ApplicationID,
		GroupID:         body.GroupID,
		GrantDurationID: body.GrantDurationID,
		Subject:         body.Subject,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toGrantResponse(g))
}

func (h *Handler) deleteGrant(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.appGrants.Delete(r.Context(), h.principal(r), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
