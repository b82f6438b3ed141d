// Package api provides the HTTP handlers for the permissions manager REST API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"permissions-manager/internal/domain"
	"permissions-manager/internal/service/directory"
	"permissions-manager/internal/service/grants"
	"permissions-manager/internal/service/registry"
)

// Handler bundles the services behind the REST surface.
type Handler struct {
	groups       *directory.GroupService
	admins       *directory.AdminService
	members      *directory.MembershipService
	topics       *registry.TopicService
	applications *registry.ApplicationService
	permissions  *registry.PermissionService
	durations    *grants.DurationService
	appGrants    *grants.GrantService
	documents    *grants.Materializer
	logger       *slog.Logger
}

// NewHandler creates a Handler with all required service dependencies.
func NewHandler(
	groups *directory.GroupService,
	admins *directory.AdminService,
	members *directory.MembershipService,
	topics *registry.TopicService,
	applications *registry.ApplicationService,
	permissions *registry.PermissionService,
	durations *grants.DurationService,
	appGrants *grants.GrantService,
	documents *grants.Materializer,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		groups:       groups,
		admins:       admins,
		members:      members,
		topics:       topics,
		applications: applications,
		permissions:  permissions,
		durations:    durations,
		appGrants:    appGrants,
		documents:    documents,
		logger:       logger,
	}
}

// Routes mounts every API route on a new chi router. Authentication is
// expected to be applied by the caller around the returned router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/search", h.search)

	r.Route("/groups", func(r chi.Router) {
		r.Get("/", h.listGroups)
		r.Post("/", h.createGroup)
		r.Get("/{id}", h.getGroup)
		r.Put("/{id}", h.updateGroup)
		r.Delete("/{id}", h.deleteGroup)
	})

	r.Route("/admins", func(r chi.Router) {
		r.Get("/", h.listAdmins)
		r.Post("/", h.addAdmin)
		r.Put("/{id}/revoke", h.revokeAdmin)
	})

	r.Route("/group_membership", func(r chi.Router) {
		r.Get("/", h.listMembers)
		r.Post("/", h.addMember)
		r.Put("/", h.updateMember)
		r.Delete("/{id}", h.removeMember)
	})

	r.Route("/topics", func(r chi.Router) {
		r.Get("/", h.listTopics)
		r.Post("/", h.createTopic)
		r.Get("/kinds", h.topicKinds)
		r.Get("/{id}", h.getTopic)
		r.Put("/{id}", h.updateTopic)
		r.Delete("/{id}", h.deleteTopic)
	})

	r.Route("/applications", func(r chi.Router) {
		r.Get("/", h.listApplications)
		r.Post("/", h.createApplication)
		r.Get("/{id}", h.getApplication)
		r.Put("/{id}", h.updateApplication)
		r.Delete("/{id}", h.deleteApplication)
		r.Get("/{id}/permissions.xml", h.applicationPermissionsXML)
	})

	r.Route("/application_permissions", func(r chi.Router) {
		r.Get("/application/{applicationID}", h.listPermissions)
		r.Post("/{applicationID}/{topicID}", h.createPermission)
		r.Delete("/{id}", h.deletePermission)
	})

	r.Route("/grant_durations", func(r chi.Router) {
		r.Get("/", h.listDurations)
		r.Post("/", h.createDuration)
		r.Put("/{id}", h.updateDuration)
		r.Delete("/{id}", h.deleteDuration)
	})

	r.Route("/application_grants", func(r chi.Router) {
		r.Get("/", h.listGrants)
		r.Post("/", h.createGrant)
		r.Delete("/{id}", h.deleteGrant)
	})

	return r
}

// --- helpers ---

func (h *Handler) principal(r *http.Request) domain.Principal {
	p, _ := domain.PrincipalFromContext(r.Context())
	return p
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, domain.ErrValidation("invalid-id", "path parameter %q must be an integer", name)
	}
	return id, nil
}

// pageFromQuery extracts pagination from max_results/page_token and the
// optional sort=<field>[:desc] parameter.
func pageFromQuery(r *http.Request) domain.PageRequest {
	q := r.URL.Query()
	p := domain.PageRequest{PageToken: q.Get("page_token")}
	if v := q.Get("max_results"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.MaxResults = n
		}
	}
	if sort := q.Get("sort"); strings.HasSuffix(sort, ":desc") {
		p.Descending = true
	}
	return p
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, h.logger, domain.ErrValidation("invalid-body", "request body is not valid JSON"))
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", "error", err)
	}
}

// listResponse is the envelope for every paged listing.
type listResponse[T any] struct {
	Items         []T    `json:"items"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}
