package api

import (
	"net/http"
	"strconv"
	"time"

	"permissions-manager/internal/domain"
)

type groupResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Public      bool      `json:"public"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toGroupResponse(g *domain.Group) groupResponse {
	return groupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Public:      g.IsPublic,
		CreatedAt:   g.CreatedAt,
	}
}

type groupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	filter := domain.GroupFilter{
		Filter: r.URL.Query().Get("filter"),
		Role:   r.URL.Query().Get("role"),
	}
	groups, next, err := h.groups.List(r.Context(), h.principal(r), filter, pageFromQuery(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	items := make([]groupResponse, 0, len(groups))
	for i := range groups {
		items = append(items, toGroupResponse(&groups[i]))
	}
	h.writeJSON(w, http.StatusOK, listResponse[groupResponse]{Items: items, NextPageToken: next})
}

func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	var body groupRequest
	if !h.decode(w, r, &body) {
		return
	}
	g, err := h.groups.Create(r.Context(), h.principal(r), domain.CreateGroupRequest{
		Name:        body.Name,
		Description: body.Description,
		IsPublic:    body.Public,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toGroupResponse(g))
}

func (h *Handler) getGroup(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	g, err := h.groups.Get(r.Context(), h.principal(r), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toGroupResponse(g))
}

func (h *Handler) updateGroup(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var body groupRequest
	if !h.decode(w, r, &body) {
		return
	}
	g, err := h.groups.Update(r.Context(), h.principal(r), id, domain.CreateGroupRequest{
		Name:        body.Name,
		Description: body.Description,
		IsPublic:    body.Public,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toGroupResponse(g))
}

func (h *Handler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.groups.Delete(r.Context(), h.principal(r), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- super admins ---

type adminResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

func (h *Handler) listAdmins(w http.ResponseWriter, r *http.Request) {
	admins, next, err := h.admins.List(r.Context(), h.principal(r), r.URL.Query().Get("filter"), pageFromQuery(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	items := make([]adminResponse, 0, len(admins))
	for _, a := range admins {
		items = append(items, adminResponse{ID: a.ID, Email: a.Email})
	}
	h.writeJSON(w, http.StatusOK, listResponse[adminResponse]{Items: items, NextPageToken: next})
}

func (h *Handler) addAdmin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	u, err := h.admins.Add(r.Context(), h.principal(r), body.Email)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, adminResponse{ID: u.ID, Email: u.Email})
}

func (h *Handler) revokeAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.admins.Revoke(r.Context(), h.principal(r), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- group membership ---

type memberResponse struct {
	ID               int64  `json:"id"`
	GroupID          int64  `json:"groupId"`
	UserID           int64  `json:"userId"`
	Email            string `json:"email"`
	GroupAdmin       bool   `json:"groupAdmin"`
	TopicAdmin       bool   `json:"topicAdmin"`
	ApplicationAdmin bool   `json:"applicationAdmin"`
}

func toMemberResponse(m *domain.GroupUser) memberResponse {
	return memberResponse{
		ID:               m.ID,
		GroupID:          m.GroupID,
		UserID:           m.UserID,
		Email:            m.UserEmail,
		GroupAdmin:       m.GroupAdmin,
		TopicAdmin:       m.TopicAdmin,
		ApplicationAdmin: m.ApplicationAdmin,
	}
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(r.URL.Query().Get("group"), 10, 64)
	if err != nil {
		writeError(w, r, h.logger, domain.ErrValidation("invalid-id", "query parameter \"group\" must be an integer"))
		return
	}
	members, next, err := h.members.List(r.Context(), h.principal(r), groupID, pageFromQuery(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	items := make([]memberResponse, 0, len(members))
	for i := range members {
		items = append(items, toMemberResponse(&members[i]))
	}
	h.writeJSON(w, http.StatusOK, listResponse[memberResponse]{Items: items, NextPageToken: next})
}

func (h *Handler) addMember(w http.ResponseWriter, r *http.Request) {
	var body struct {
		GroupID          int64  `json:"groupId"`
		Email            string `json:"email"`
		GroupAdmin       bool   `json:"groupAdmin"`
		TopicAdmin       bool   `json:"topicAdmin"`
		ApplicationAdmin bool   `json:"applicationAdmin"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	m, err := h.members.Add(r.Context(), h.principal(r), domain.AddMemberRequest{
		GroupID:          body.GroupID,
		Email:            body.Email,
		GroupAdmin:       body.GroupAdmin,
		TopicAdmin:       body.TopicAdmin,
		ApplicationAdmin: body.ApplicationAdmin,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toMemberResponse(m))
}

func (h *Handler) updateMember(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID               int64 `json:"id"`
		GroupAdmin       bool  `json:"groupAdmin"`
		TopicAdmin       bool  `json:"topicAdmin"`
		ApplicationAdmin bool  `json:"applicationAdmin"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	m, err := h.members.UpdateRoles(r.Context(), h.principal(r), domain.UpdateMemberRequest{
		ID:               body.ID,
		GroupAdmin:       body.GroupAdmin,
		TopicAdmin:       body.TopicAdmin,
		ApplicationAdmin: body.ApplicationAdmin,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toMemberResponse(m))
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.members.Remove(r.Context(), h.principal(r), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
