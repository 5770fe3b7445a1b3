package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"relocation/internal/domain/models"
	"relocation/internal/domain/repositories"
	"relocation/internal/domain/services"
	"relocation/internal/httputil"
)

// CatalogHandler serves one family's collections
type CatalogHandler struct {
	family  models.Family
	routes  models.Routes
	service services.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a handler for family
func NewCatalogHandler(family models.Family, service services.CatalogService, logger *slog.Logger) (*CatalogHandler, error) {
	routes, ok := models.RoutesFor(family)
	if !ok {
		return nil, fmt.Errorf("unknown family %q", family)
	}
	return &CatalogHandler{
		family:  family,
		routes:  routes,
		service: service,
		logger:  logger,
	}, nil
}

// RegisterRoutes adds the family's routes to mux
func (h *CatalogHandler) RegisterRoutes(mux *http.ServeMux) {
	r := h.routes
	if r.Scoped {
		h.registerVillageRoutes(mux)
		return
	}

	// Top level
	mux.HandleFunc("GET /"+r.Collection, h.List)
	mux.HandleFunc("POST /"+r.Collection+"/insert", h.Insert)
	mux.HandleFunc("PUT /"+r.Collection+"/{id}", h.Update)
	mux.HandleFunc("DELETE /"+r.Collection+"/{id}", h.Delete)
	mux.HandleFunc("GET /"+r.Deleted, h.ListDeleted)

	// Children
	mux.HandleFunc("POST /"+r.ChildInsert+"/{parentID}", h.Insert)
	mux.HandleFunc("PUT /"+r.Child+"/{parentID}/{id}", h.Update)
	mux.HandleFunc("DELETE /"+r.Child+"/{parentID}/{id}", h.Delete)
	mux.HandleFunc("GET /"+r.ChildDeleted+"/{parentID}", h.ListDeleted)
}

// registerVillageRoutes serves a family kept per village. The village follows
// the item or parent id; top-level inserts carry it in the body.
func (h *CatalogHandler) registerVillageRoutes(mux *http.ServeMux) {
	r := h.routes

	mux.HandleFunc("GET /"+r.Collection+"/{villageID}", h.List)
	mux.HandleFunc("POST /"+r.Collection+"/insert", h.Insert)
	mux.HandleFunc("PUT /"+r.Collection+"/{id}/{villageID}", h.Update)
	mux.HandleFunc("DELETE /"+r.Collection+"/{id}/{villageID}", h.Delete)
	mux.HandleFunc("GET /"+r.Deleted+"/{villageID}", h.ListDeleted)

	mux.HandleFunc("POST /"+r.ChildInsert+"/{parentID}/{villageID}", h.Insert)
	mux.HandleFunc("PUT /"+r.Child+"/{parentID}/{villageID}/{id}", h.Update)
	mux.HandleFunc("DELETE /"+r.Child+"/{parentID}/{villageID}/{id}", h.Delete)
	mux.HandleFunc("GET /"+r.ChildDeleted+"/{parentID}/{villageID}", h.ListDeleted)
}

// insertBody is the JSON body of an insert
type insertBody struct {
	VillageID string                        `json:"villageId"`
	Name      string                        `json:"name"`
	Desc      *string                       `json:"desc"`
	Position  *int                          `json:"position"`
	Stages    []services.CreateChildRequest `json:"stages"`
}

// updateBody is the JSON body of an update. A null desc clears it.
type updateBody struct {
	Name     *string                 `json:"name"`
	Desc     httputil.OptionalString `json:"desc"`
	Deleted  *bool                   `json:"deleted"`
	Position *int                    `json:"position"`
	Stages   json.RawMessage         `json:"stages"`
}

// List returns active top-level items with their children
// GET /{collection}
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), h.scope(r))
	if err != nil {
		handleError(w, r, err, h.logger)
		return
	}
	h.respondList(w, h.routes.Label, items)
}

// ListDeleted returns soft-deleted items of a collection
// GET /{deleted} and GET /{childDeleted}/{parentID}
func (h *CatalogHandler) ListDeleted(w http.ResponseWriter, r *http.Request) {
	scope := h.scope(r)
	items, err := h.service.ListDeleted(r.Context(), scope)
	if err != nil {
		handleError(w, r, err, h.logger)
		return
	}
	h.respondList(w, "deleted "+h.routes.LabelFor(scope.ParentID), items)
}

// Insert creates an item
// POST /{collection}/insert and POST /{childInsert}/{parentID}
func (h *CatalogHandler) Insert(w http.ResponseWriter, r *http.Request) {
	var body insertBody
	if !h.parseBody(w, r, &body) {
		return
	}

	scope := h.scope(r)
	if h.routes.Scoped && scope.ParentID == nil {
		if body.VillageID == "" {
			httputil.RespondError(w, http.StatusBadRequest, "villageId is required")
			return
		}
		scope.VillageID = &body.VillageID
	}
	item, err := h.service.Insert(r.Context(), &services.CreateItemRequest{
		Family:    h.family,
		VillageID: scope.VillageID,
		ParentID:  scope.ParentID,
		Name:      body.Name,
		Desc:      body.Desc,
		Position:  body.Position,
		Stages:    body.Stages,
	})
	if err != nil {
		handleError(w, r, err, h.logger)
		return
	}
	h.audit(r, "insert", scope, item.ID)

	httputil.RespondOK(w, http.StatusCreated, h.message(scope, "inserted"), item)
}

// Update applies a partial update, moving the item when position is given
// PUT /{collection}/{id} and PUT /{child}/{parentID}/{id}
func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body updateBody
	if !h.parseBody(w, r, &body) {
		return
	}

	scope := h.scope(r)
	req := &services.UpdateItemRequest{
		Name:      body.Name,
		Desc:      body.Desc.Value,
		ClearDesc: body.Desc.Cleared(),
		Deleted:   body.Deleted,
		Position:  body.Position,
		Stages:    body.Stages,
	}
	item, err := h.service.Update(r.Context(), scope, r.PathValue("id"), req)
	if err != nil {
		handleError(w, r, err, h.logger)
		return
	}
	h.audit(r, "update", scope, item.ID)

	httputil.RespondOK(w, http.StatusOK, h.message(scope, "updated"), item)
}

// Delete soft-deletes an item
// DELETE /{collection}/{id} and DELETE /{child}/{parentID}/{id}
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	scope := h.scope(r)
	if err := h.service.Delete(r.Context(), scope, r.PathValue("id")); err != nil {
		handleError(w, r, err, h.logger)
		return
	}
	h.audit(r, "delete", scope, r.PathValue("id"))

	httputil.RespondOK(w, http.StatusOK, h.message(scope, "deleted"), nil)
}

// scope reads the village and parent from the path; routes without
// {parentID} address the top level.
func (h *CatalogHandler) scope(r *http.Request) repositories.Scope {
	scope := repositories.Scope{Family: h.family}
	if villageID := r.PathValue("villageID"); villageID != "" {
		scope.VillageID = &villageID
	}
	if parentID := r.PathValue("parentID"); parentID != "" {
		scope.ParentID = &parentID
	}
	return scope
}

// audit records a successful mutation and who made it.
func (h *CatalogHandler) audit(r *http.Request, action string, scope repositories.Scope, id string) {
	h.logger.Info("catalog mutation",
		"action", action,
		"subject", httputil.GetSubject(r),
		"family", scope.Family,
		"village_id", scope.VillageID,
		"parent_id", scope.ParentID,
		"id", id,
	)
}

func (h *CatalogHandler) parseBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	err := httputil.ParseJSON(w, r, dest)
	switch {
	case err == nil:
		return true
	case errors.Is(err, httputil.ErrEmptyBody):
		httputil.RespondError(w, http.StatusBadRequest, "Missing request body")
	default:
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	}
	return false
}

// respondList answers 404 with an empty list when there is nothing to show.
func (h *CatalogHandler) respondList(w http.ResponseWriter, label string, items []models.CatalogItem) {
	list := models.NewItemList(items)
	if list.Count == 0 {
		httputil.RespondErrorWithResult(w, http.StatusNotFound, fmt.Sprintf("No %ss found", label), list)
		return
	}
	httputil.RespondOK(w, http.StatusOK, fmt.Sprintf("%ss fetched successfully", capitalize(label)), list)
}

func (h *CatalogHandler) message(scope repositories.Scope, verb string) string {
	return fmt.Sprintf("%s %s successfully", capitalize(h.routes.LabelFor(scope.ParentID)), verb)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
