package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relocation/internal/domain"
	"relocation/internal/domain/models"
	"relocation/internal/domain/repositories"
	"relocation/internal/domain/services"
	"relocation/internal/httputil"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// stubService records the last call and returns canned results.
type stubService struct {
	items      []models.CatalogItem
	err        error
	lastScope  repositories.Scope
	lastID     string
	lastCreate *services.CreateItemRequest
	lastUpdate *services.UpdateItemRequest
}

func (s *stubService) List(_ context.Context, scope repositories.Scope) ([]models.CatalogItem, error) {
	s.lastScope = scope
	return s.items, s.err
}

func (s *stubService) ListDeleted(_ context.Context, scope repositories.Scope) ([]models.CatalogItem, error) {
	s.lastScope = scope
	return s.items, s.err
}

func (s *stubService) Insert(_ context.Context, req *services.CreateItemRequest) (*models.CatalogItem, error) {
	s.lastCreate = req
	s.lastScope = repositories.Scope{Family: req.Family, VillageID: req.VillageID, ParentID: req.ParentID}
	if s.err != nil {
		return nil, s.err
	}
	return &models.CatalogItem{ID: "new", Name: req.Name}, nil
}

func (s *stubService) Update(_ context.Context, scope repositories.Scope, id string, req *services.UpdateItemRequest) (*models.CatalogItem, error) {
	s.lastScope, s.lastID, s.lastUpdate = scope, id, req
	if s.err != nil {
		return nil, s.err
	}
	return &models.CatalogItem{ID: id}, nil
}

func (s *stubService) Delete(_ context.Context, scope repositories.Scope, id string) error {
	s.lastScope, s.lastID = scope, id
	return s.err
}

type envelope struct {
	Error   bool            `json:"error"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func serve(t *testing.T, family models.Family, svc *stubService, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	return serveRequest(t, family, svc, discard, newRequest(method, path, body))
}

func newRequest(method, path, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	return httptest.NewRequest(method, path, reader)
}

func serveRequest(t *testing.T, family models.Family, svc *stubService, logger *slog.Logger, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	h, err := NewCatalogHandler(family, svc, logger)
	require.NoError(t, err)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestRoutesDispatchScope(t *testing.T) {
	tests := []struct {
		name       string
		family     models.Family
		method     string
		path       string
		body       string
		wantStatus int
		wantParent  string
		wantVillage string
		wantID      string
		wantMsg     string
	}{
		{name: "insert stage", family: models.FamilyStages, method: http.MethodPost, path: "/stages/insert",
			body: `{"name":"Survey"}`, wantStatus: http.StatusCreated, wantMsg: "Stage inserted successfully"},
		{name: "insert sub stage", family: models.FamilyStages, method: http.MethodPost, path: "/substage/insert/p1",
			body: `{"name":"Measure"}`, wantStatus: http.StatusCreated, wantParent: "p1", wantMsg: "Sub stage inserted successfully"},
		{name: "update stage", family: models.FamilyStages, method: http.MethodPut, path: "/stages/s1",
			body: `{"position":2}`, wantStatus: http.StatusOK, wantID: "s1", wantMsg: "Stage updated successfully"},
		{name: "update sub stage", family: models.FamilyStages, method: http.MethodPut, path: "/sstages/p1/c1",
			body: `{"name":"x"}`, wantStatus: http.StatusOK, wantParent: "p1", wantID: "c1", wantMsg: "Sub stage updated successfully"},
		{name: "delete option", family: models.FamilyOptions, method: http.MethodDelete, path: "/options/o1",
			wantStatus: http.StatusOK, wantID: "o1", wantMsg: "Option deleted successfully"},
		{name: "delete option stage", family: models.FamilyOptions, method: http.MethodDelete, path: "/ostages/o1/s9",
			wantStatus: http.StatusOK, wantParent: "o1", wantID: "s9", wantMsg: "Option stage deleted successfully"},
		{name: "insert option stage", family: models.FamilyOptions, method: http.MethodPost, path: "/ostages/insert/o1",
			body: `{"name":"Pack"}`, wantStatus: http.StatusCreated, wantParent: "o1", wantMsg: "Option stage inserted successfully"},
		{name: "list buildings", family: models.FamilyBuildings, method: http.MethodGet, path: "/buildings/v1",
			wantStatus: http.StatusNotFound, wantVillage: "v1", wantMsg: "No buildings found"},
		{name: "insert building", family: models.FamilyBuildings, method: http.MethodPost, path: "/buildings/insert",
			body: `{"villageId":"v1","name":"School"}`, wantStatus: http.StatusCreated, wantVillage: "v1", wantMsg: "Building inserted successfully"},
		{name: "update building", family: models.FamilyBuildings, method: http.MethodPut, path: "/buildings/b1/v1",
			body: `{"position":0}`, wantStatus: http.StatusOK, wantVillage: "v1", wantID: "b1", wantMsg: "Building updated successfully"},
		{name: "delete building", family: models.FamilyBuildings, method: http.MethodDelete, path: "/buildings/b1/v1",
			wantStatus: http.StatusOK, wantVillage: "v1", wantID: "b1", wantMsg: "Building deleted successfully"},
		{name: "insert building stage", family: models.FamilyBuildings, method: http.MethodPost, path: "/bstages/insert/b1/v1",
			body: `{"name":"Roof"}`, wantStatus: http.StatusCreated, wantParent: "b1", wantVillage: "v1", wantMsg: "Building stage inserted successfully"},
		{name: "update building stage", family: models.FamilyBuildings, method: http.MethodPut, path: "/bstages/b1/v1/s1",
			body: `{"name":"Walls"}`, wantStatus: http.StatusOK, wantParent: "b1", wantVillage: "v1", wantID: "s1", wantMsg: "Building stage updated successfully"},
		{name: "delete building stage", family: models.FamilyBuildings, method: http.MethodDelete, path: "/bstages/b1/v1/s1",
			wantStatus: http.StatusOK, wantParent: "b1", wantVillage: "v1", wantID: "s1", wantMsg: "Building stage deleted successfully"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{}
			rec, env := serve(t, tt.family, svc, tt.method, tt.path, tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantStatus >= 400, env.Error)
			assert.Equal(t, tt.wantMsg, env.Message)
			assert.Equal(t, tt.family, svc.lastScope.Family)
			assert.Equal(t, tt.wantID, svc.lastID)
			if tt.wantParent == "" {
				assert.Nil(t, svc.lastScope.ParentID)
			} else {
				require.NotNil(t, svc.lastScope.ParentID)
				assert.Equal(t, tt.wantParent, *svc.lastScope.ParentID)
			}
			if tt.wantVillage == "" {
				assert.Nil(t, svc.lastScope.VillageID)
			} else {
				require.NotNil(t, svc.lastScope.VillageID)
				assert.Equal(t, tt.wantVillage, *svc.lastScope.VillageID)
			}
		})
	}
}

func TestInsertBuildingNeedsVillage(t *testing.T) {
	svc := &stubService{}
	rec, env := serve(t, models.FamilyBuildings, svc, http.MethodPost, "/buildings/insert", `{"name":"School"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "villageId is required", env.Message)
	assert.Nil(t, svc.lastCreate)
}

func TestMutationsLogSubject(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	req := httputil.WithSubject(newRequest(http.MethodDelete, "/buildings/b1/v1", ""), "operator")
	rec, _ := serveRequest(t, models.FamilyBuildings, &stubService{}, logger, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, "catalog mutation", entry["msg"])
	assert.Equal(t, "delete", entry["action"])
	assert.Equal(t, "operator", entry["subject"])
	assert.Equal(t, "v1", entry["village_id"])
	assert.Equal(t, "b1", entry["id"])
}

func TestListEnvelope(t *testing.T) {
	svc := &stubService{items: []models.CatalogItem{
		{ID: "a", Name: "A", Stages: []models.CatalogItem{{ID: "c", Name: "C"}}},
	}}
	rec, env := serve(t, models.FamilyStages, svc, http.MethodGet, "/stages", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Stages fetched successfully", env.Message)
	assert.JSONEq(t, `{"count":1,"items":[{"id":"a","name":"A","position":0,"deleted":false,
		"created_at":"0001-01-01T00:00:00Z","updated_at":"0001-01-01T00:00:00Z",
		"stages":[{"id":"c","name":"C","position":0,"deleted":false,
		"created_at":"0001-01-01T00:00:00Z","updated_at":"0001-01-01T00:00:00Z"}]}]}`, string(env.Result))
}

func TestEmptyListsAre404(t *testing.T) {
	tests := []struct {
		family  models.Family
		path    string
		wantMsg string
	}{
		{models.FamilyStages, "/stages", "No stages found"},
		{models.FamilyStages, "/deleted_stages", "No deleted stages found"},
		{models.FamilyStages, "/deleted_substages/p", "No deleted sub stages found"},
		{models.FamilyOptions, "/deleted_ostages/p", "No deleted option stages found"},
		{models.FamilyBuildings, "/deleted_buildings/v", "No deleted buildings found"},
		{models.FamilyBuildings, "/deleted_bstages/b/v", "No deleted building stages found"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec, env := serve(t, tt.family, &stubService{}, http.MethodGet, tt.path, "")
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.True(t, env.Error)
			assert.Equal(t, tt.wantMsg, env.Message)
			assert.JSONEq(t, `{"count":0,"items":[]}`, string(env.Result))
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation", fmt.Errorf("%w: no valid fields to update", domain.ErrValidation), http.StatusBadRequest,
			"validation failed: no valid fields to update"},
		{"position", &domain.PositionError{Position: 7, Max: 2}, http.StatusBadRequest, "position 7 out of range 0..2"},
		{"not found", &domain.NotFoundError{Kind: "stage", ID: "x"}, http.StatusNotFound, "No stage found with id x"},
		{"wrapped not found", fmt.Errorf("item x: %w", domain.ErrNotFound), http.StatusNotFound, "item x: not found"},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := serve(t, models.FamilyStages, &stubService{err: tt.err}, http.MethodPut, "/stages/x", `{"name":"y"}`)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.True(t, env.Error)
			assert.Equal(t, tt.wantMsg, env.Message)
		})
	}
}

func TestUpdateBodyMapping(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantDesc  *string
		wantClear bool
		wantStage bool
	}{
		{name: "desc absent", body: `{"name":"a"}`},
		{name: "desc null clears", body: `{"desc":null}`, wantClear: true},
		{name: "desc value", body: `{"desc":"notes"}`, wantDesc: strPtr("notes")},
		{name: "stages forwarded", body: `{"stages":[]}`, wantStage: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{}
			serve(t, models.FamilyStages, svc, http.MethodPut, "/stages/x", tt.body)
			require.NotNil(t, svc.lastUpdate)
			assert.Equal(t, tt.wantDesc, svc.lastUpdate.Desc)
			assert.Equal(t, tt.wantClear, svc.lastUpdate.ClearDesc)
			assert.Equal(t, tt.wantStage, len(svc.lastUpdate.Stages) > 0)
		})
	}
}

func TestMissingBody(t *testing.T) {
	svc := &stubService{}
	rec, env := serve(t, models.FamilyStages, svc, http.MethodPost, "/stages/insert", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing request body", env.Message)
	assert.Nil(t, svc.lastCreate)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
	}{
		{"up", nil, http.StatusOK},
		{"down", errors.New("refused"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Health(pingFunc(func(context.Context) error { return tt.pingErr }))(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func strPtr(s string) *string { return &s }
