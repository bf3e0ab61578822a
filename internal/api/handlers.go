// Package api exposes HTTP handlers for the directory service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/k1nque/org-directory/internal/domain"
	"github.com/k1nque/org-directory/internal/observability"
)

// Handler coordinates HTTP requests with the domain services.
type Handler struct {
	service   *domain.Service
	hierarchy *domain.Hierarchy
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, hierarchy *domain.Hierarchy) *Handler {
	return &Handler{service: service, hierarchy: hierarchy}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/organizations", h.organizations)
	mux.HandleFunc("/v1/organizations/", h.organizationSubroutes)
	mux.HandleFunc("/v1/activities", h.activities)
	mux.HandleFunc("/v1/activities/", h.activitySubroutes)
	mux.HandleFunc("/v1/buildings", h.listBuildings)
	mux.HandleFunc("/v1/buildings/", h.buildingByID)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) organizations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listOrganizations(w, r)
	case http.MethodPost:
		h.createOrganization(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) organizationSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/organizations/")
	switch {
	case rest == "search/by-name":
		h.requireMethod(w, r, http.MethodGet, h.searchByName)
	case rest == "search/by-location":
		h.requireMethod(w, r, http.MethodPost, h.searchByLocation)
	case strings.HasPrefix(rest, "by-building/"):
		h.listByBuilding(w, r, strings.TrimPrefix(rest, "by-building/"))
	case strings.HasPrefix(rest, "by-activity/"):
		h.listByActivity(w, r, strings.TrimPrefix(rest, "by-activity/"))
	default:
		h.getOrganization(w, r, rest)
	}
}

func (h *Handler) requireMethod(w http.ResponseWriter, r *http.Request, method string, next http.HandlerFunc) {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	next(w, r)
}

func (h *Handler) listOrganizations(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	result, err := h.service.ListOrganizations(r.Context(), page)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	observability.RecordSearch("all")
	writeJSON(w, http.StatusOK, toOrganizationListResponse(result))
}

func (h *Handler) createOrganization(w http.ResponseWriter, r *http.Request) {
	var req CreateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	org, err := h.service.CreateOrganization(r.Context(), domain.NewOrganization{
		Name:        req.Name,
		BuildingID:  req.BuildingID,
		Phones:      req.Phones,
		ActivityIDs: req.ActivityIDs,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrganizationView(*org))
}

func (h *Handler) getOrganization(w http.ResponseWriter, r *http.Request, raw string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	id, err := parseID(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid organization id")
		return
	}

	org, err := h.service.GetOrganization(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrganizationView(*org))
}

func (h *Handler) listByBuilding(w http.ResponseWriter, r *http.Request, raw string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	id, err := parseID(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid building id")
		return
	}
	page, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	result, err := h.service.ListByBuilding(r.Context(), id, page)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	observability.RecordSearch("building")
	writeJSON(w, http.StatusOK, toOrganizationListResponse(result))
}

func (h *Handler) listByActivity(w http.ResponseWriter, r *http.Request, raw string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	id, err := parseID(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid activity id")
		return
	}
	page, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	result, err := h.service.ListByActivity(r.Context(), id, page)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	observability.RecordSearch("activity")
	writeJSON(w, http.StatusOK, toOrganizationListResponse(result))
}

func (h *Handler) searchByName(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	result, err := h.service.ListByName(r.Context(), r.URL.Query().Get("name"), page)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	observability.RecordSearch("name")
	writeJSON(w, http.StatusOK, toOrganizationListResponse(result))
}

func (h *Handler) searchByLocation(w http.ResponseWriter, r *http.Request) {
	var req LocationSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	searchReq, err := req.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	result, err := h.service.SearchByLocation(r.Context(), searchReq)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	observability.RecordSearch(searchReq.Mode())
	writeJSON(w, http.StatusOK, toOrganizationListResponse(result))
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listActivities(w, r)
	case http.MethodPost:
		h.createActivity(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) activitySubroutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/activities/")
	if rest == "tree" {
		h.activityTree(w, r)
		return
	}
	h.getActivity(w, r, rest)
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	level := 0
	if raw := r.URL.Query().Get("level"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "invalid level")
			return
		}
		level = parsed
	}

	activities, err := h.hierarchy.ListActivities(r.Context(), level, page)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]ActivityView, 0, len(activities))
	for _, activity := range activities {
		views = append(views, toActivityView(activity))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) createActivity(w http.ResponseWriter, r *http.Request) {
	var req CreateActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	activity, err := h.hierarchy.InsertActivity(r.Context(), domain.InsertActivityInput{
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toActivityView(*activity))
}

func (h *Handler) activityTree(w http.ResponseWriter, r *http.Request) {
	forest, err := h.hierarchy.BuildTree(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	nodes := make([]ActivityNodeView, 0, len(forest))
	for _, node := range forest {
		nodes = append(nodes, toActivityNodeView(node))
	}
	writeJSON(w, http.StatusOK, ActivityTreeResponse{Activities: nodes})
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request, raw string) {
	id, err := parseID(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid activity id")
		return
	}

	node, err := h.hierarchy.GetSubtree(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityNodeView(node))
}

func (h *Handler) listBuildings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	page, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	buildings, total, err := h.service.ListBuildings(r.Context(), page)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	page, _ = page.Normalize()
	items := make([]BuildingView, 0, len(buildings))
	for _, building := range buildings {
		items = append(items, toBuildingView(building))
	}
	writeJSON(w, http.StatusOK, BuildingListResponse{Items: items, Limit: page.Limit, Offset: page.Offset, Total: total})
}

func (h *Handler) buildingByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	id, err := parseID(strings.TrimPrefix(r.URL.Path, "/v1/buildings/"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid building id")
		return
	}

	building, err := h.service.GetBuilding(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBuildingView(*building))
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSuffix(raw, "/"), 10, 64)
}

func parsePage(r *http.Request) (domain.PageRequest, error) {
	var page domain.PageRequest
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return page, errors.New("invalid limit")
		}
		page.Limit = parsed
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return page, errors.New("invalid offset")
		}
		page.Offset = parsed
	}
	return page, nil
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
