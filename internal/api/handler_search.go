package api

import (
	"net/http"

	"permissions-manager/internal/domain"
)

type searchResponse struct {
	Groups       []groupResponse       `json:"groups"`
	Topics       []topicResponse       `json:"topics"`
	Applications []applicationResponse `json:"applications"`
}

// search runs one case-insensitive substring query across groups, topics and
// applications. Each listing goes through its service, so the results carry
// the same visibility scoping as the per-entity endpoints.
func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	p := h.principal(r)
	query := r.URL.Query().Get("query")
	page := pageFromQuery(r)

	groups, _, err := h.groups.List(r.Context(), p, domain.GroupFilter{Filter: query}, page)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	topics, _, err := h.topics.List(r.Context(), p, query, page)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	apps, _, err := h.applications.List(r.Context(), p, query, page)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	out := searchResponse{
		Groups:       make([]groupResponse, 0, len(groups)),
		Topics:       make([]topicResponse, 0, len(topics)),
		Applications: make([]applicationResponse, 0, len(apps)),
	}
	for i := range groups {
		out.Groups = append(out.Groups, toGroupResponse(&groups[i]))
	}
	for i := range topics {
		out.Topics = append(out.Topics, toTopicResponse(&topics[i]))
	}
	for i := range apps {
		out.Applications = append(out.Applications, toApplicationResponse(&apps[i]))
	}
	h.writeJSON(w, http.StatusOK, out)
}
