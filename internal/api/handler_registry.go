package api

import (
	"net/http"
	"time"

	"permissions-manager/internal/domain"
)

type topicResponse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Kind          string    `json:"kind"`
	CanonicalName string    `json:"canonicalName"`
	Description   string    `json:"description,omitempty"`
	Public        bool      `json:"public"`
	GroupID       int64     `json:"groupId"`
	GroupName     string    `json:"groupName"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toTopicResponse(t *domain.Topic) topicResponse {
	return topicResponse{
		ID:            t.ID,
		Name:          t.Name,
		Kind:          string(t.Kind),
		CanonicalName: t.CanonicalName(),
		Description:   t.Description,
		Public:        t.IsPublic,
		GroupID:       t.GroupID,
		GroupName:     t.GroupName,
		CreatedAt:     t.CreatedAt,
	}
}

func (h *Handler) listTopics(w http.ResponseWriter, r *http.Request) {
	topics, next, err := h.topics.List(r.Context(), h.principal(r), r.URL.Query().Get("filter"), pageFromQuery(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	items := make([]topicResponse, 0, len(topics))
	for i := range topics {
		items = append(items, toTopicResponse(&topics[i]))
	}
	h.writeJSON(w, http.StatusOK, listResponse[topicResponse]{Items: items, NextPageToken: next})
}

func (h *Handler) topicKinds(w http.ResponseWriter, r *http.Request) {
	kinds := domain.TopicKinds()
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, string(k))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createTopic(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Kind        string `json:"kind"`
		Description string `json:"description"`
		Public      bool   `json:"public"`
		GroupID     int64  `json:"groupId"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	t, err := h.topics.Create(r.Context(), h.principal(r), domain.CreateTopicRequest{
		Name:        body.Name,
		Kind:        domain.TopicKind(body.Kind),
		Description: body.Description,
		IsPublic:    body.Public,
		GroupID:     body.GroupID,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toTopicResponse(t))
}

func (h *Handler) getTopic(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	t, err := h.topics.Get(r.Context(), h.principal(r), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toTopicResponse(t))
}

func (h *Handler) updateTopic(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var body struct {
		Description string `json:"description"`
		Public      bool   `json:"public"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	t, err := h.topics.Update(r.Context(), h.principal(r), domain.UpdateTopicRequest{
		ID:          id,
		Description: body.Description,
		IsPublic:    body.Public,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toTopicResponse(t))
}

func (h *Handler) deleteTopic(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.topics.Delete(r.Context(), h.principal(r), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- applications ---

type applicationResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Public      bool      `json:"public"`
	GroupID     int64     `json:"groupId"`
	GroupName   string    `json:"groupName"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toApplicationResponse(a *domain.Application) applicationResponse {
	return applicationResponse{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Public:      a.IsPublic,
		GroupID:     a.GroupID,
		GroupName:   a.GroupName,
		CreatedAt:   a.CreatedAt,
	}
}

func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	apps, next, err := h.applications.List(r.Context(), h.principal(r), r.URL.Query().Get("filter"), pageFromQuery(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	items := make([]applicationResponse, 0, len(apps))
	for i := range apps {
		items = append(items, toApplicationResponse(&apps[i]))
	}
	h.writeJSON(w, http.StatusOK, listResponse[applicationResponse]{Items: items, NextPageToken: next})
}

func (h *Handler) createApplication(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Public      bool   `json:"public"`
		GroupID     int64  `json:"groupId"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	a, err := h.applications.Create(r.Context(), h.principal(r), domain.CreateApplicationRequest{
		Name:        body.Name,
		Description: body.Description,
		IsPublic:    body.Public,
		GroupID:     body.GroupID,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toApplicationResponse(a))
}

func (h *Handler) getApplication(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	a, err := h.applications.Get(r.Context(), h.principal(r), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toApplicationResponse(a))
}

func (h *Handler) updateApplication(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var body struct {
		Description string `json:"description"`
		Public      bool   `json:"public"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	a, err := h.applications.Update(r.Context(), h.principal(r), domain.UpdateApplicationRequest{
		ID:          id,
		Description: body.Description,
		IsPublic:    body.Public,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toApplicationResponse(a))
}

func (h *Handler) deleteApplication(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.applications.Delete(r.Context(), h.principal(r), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// applicationPermissionsXML serves the compiled grant document. The document
// is cached per application with an uppercase MD5 etag; clients replaying the
// etag via If-None-Match get 304 without a body.
func (h *Handler) applicationPermissionsXML(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	// Visibility and existence checks run through the application service.
	if _, err := h.applications.Get(r.Context(), h.principal(r), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	doc, err := h.documents.Fetch(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if match := r.Header.Get("If-None-Match"); match != "" && match == doc.ETag {
		w.Header().Set("ETag", doc.ETag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("ETag", doc.ETag)
	_, _ = w.Write([]byte(doc.Document))
}

// --- application permissions ---

type permissionResponse struct {
	ID              int64      `json:"id"`
	ApplicationID   int64      `json:"applicationId"`
	TopicID         int64      `json:"topicId"`
	TopicName       string     `json:"topicName,omitempty"`
	Read            bool       `json:"read"`
	Write           bool       `json:"write"`
	ReadPartitions  []string   `json:"readPartitions,omitempty"`
	WritePartitions []string   `json:"writePartitions,omitempty"`
	ValidStart      *time.Time `json:"validStart,omitempty"`
	ValidEnd        *time.Time `json:"validEnd,omitempty"`
}

func toPermissionResponse(p *domain.ApplicationPermission, topicName string) permissionResponse {
	return permissionResponse{
		ID:              p.ID,
		ApplicationID:   p.ApplicationID,
		TopicID:         p.TopicID,
		TopicName:       topicName,
		Read:            p.CanRead,
		Write:           p.CanWrite,
		ReadPartitions:  p.ReadPartitions,
		WritePartitions: p.WritePartitions,
		ValidStart:      p.ValidStart,
		ValidEnd:        p.ValidEnd,
	}
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	applicationID, err := idParam(r, "applicationID")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	resolved, err := h.permissions.ListForApplication(r.Context(), h.principal(r), applicationID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	items := make([]permissionResponse, 0, len(resolved))
	for i := range resolved {
		items = append(items, toPermissionResponse(&resolved[i].Permission, resolved[i].Topic.CanonicalName()))
	}
	h.writeJSON(w, http.StatusOK, listResponse[permissionResponse]{Items: items})
}

func (h *Handler) createPermission(w http.ResponseWriter, r *http.Request) {
	applicationID, err := idParam(r, "applicationID")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	topicID, err := idParam(r, "topicID")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var body struct {
		Read            bool       `json:"read"`
		Write           bool       `json:"write"`
		ReadPartitions  []string   `json:"readPartitions"`
		WritePartitions []string   `json:"writePartitions"`
		ValidStart      *time.Time `json:"validStart"`
		ValidEnd        *time.Time `json:"validEnd"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	created, err := h.permissions.Create(r.Context(), h.principal(r), &domain.ApplicationPermission{
		ApplicationID:   applicationID,
		TopicID:         topicID,
		CanRead:         body.Read,
		CanWrite:        body.Write,
		ReadPartitions:  body.ReadPartitions,
		WritePartitions: body.WritePartitions,
		ValidStart:      body.ValidStart,
		ValidEnd:        body.ValidEnd,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toPermissionResponse(created, ""))
}

func (h *Handler) deletePermission(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.permissions.Delete(r.Context(), h.principal(r), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
