package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stage struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// fakeAPI serves the stage routes the client uses, moving items on PUT.
type fakeAPI struct {
	mu      sync.Mutex
	stages  []stage
	puts    []map[string]any
	putAuth string
	putFail string
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{stages: []stage{
		{ID: "s1", Name: "Survey", Position: 0},
		{ID: "s2", Name: "Pack", Position: 1},
		{ID: "s3", Name: "Move", Position: 2},
	}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /stages", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()
		writeEnvelope(w, http.StatusOK, "Stages fetched successfully", map[string]any{
			"count": len(api.stages), "items": api.stages,
		})
	})
	mux.HandleFunc("GET /buildings/{village}", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, "Buildings fetched successfully", map[string]any{
			"count": 1, "items": []stage{{ID: "b1", Name: "School in " + r.PathValue("village"), Position: 0}},
		})
	})
	mux.HandleFunc("GET /deleted_substages/{parent}", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, "ok", map[string]any{
			"count": 1, "items": []stage{{ID: "c9", Name: "Old " + r.PathValue("parent"), Position: 0}},
		})
	})
	mux.HandleFunc("PUT /stages/{id}", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		api.puts = append(api.puts, body)
		api.putAuth = r.Header.Get("Authorization")
		if api.putFail != "" {
			writeEnvelope(w, http.StatusBadRequest, api.putFail, nil)
			return
		}
		from := slices.IndexFunc(api.stages, func(s stage) bool { return s.ID == r.PathValue("id") })
		moved := api.stages[from]
		api.stages = slices.Delete(api.stages, from, from+1)
		api.stages = slices.Insert(api.stages, int(body["position"].(float64)), moved)
		for i := range api.stages {
			api.stages[i].Position = i
		}
		writeEnvelope(w, http.StatusOK, "Stage updated successfully", moved)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return api, srv
}

func writeEnvelope(w http.ResponseWriter, status int, msg string, result any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": status >= 400, "message": msg, "result": result,
	})
}

func (f *fakeAPI) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.stages))
	for i, s := range f.stages {
		out[i] = s.Name
	}
	return out
}

func execute(t *testing.T, srvURL, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	if srvURL != "" {
		args = append([]string{"--api-url", srvURL}, args...)
	}
	args = append([]string{"--log-dir", t.TempDir()}, args...)

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestList(t *testing.T) {
	_, srv := newFakeAPI(t)

	out, err := execute(t, srv.URL, "", "list")
	require.NoError(t, err)
	for _, name := range []string{"Survey", "Pack", "Move"} {
		assert.Contains(t, out, name)
	}
	assert.Less(t, strings.Index(out, "Survey"), strings.Index(out, "Move"))
}

func TestListDeletedChildren(t *testing.T) {
	_, srv := newFakeAPI(t)

	out, err := execute(t, srv.URL, "", "list", "--deleted", "--parent", "s1")
	require.NoError(t, err)
	assert.Contains(t, out, "Old s1")
}

func TestMoveWithYes(t *testing.T) {
	api, srv := newFakeAPI(t)

	out, err := execute(t, srv.URL, "", "move", "0", "2", "--yes", "--token", "tok")
	require.NoError(t, err)

	assert.Contains(t, out, `Move "Survey" to position 2 in stages?`)
	assert.Contains(t, out, "Order saved")
	require.Len(t, api.puts, 1)
	assert.Equal(t, map[string]any{"name": "Survey", "deleted": false, "position": float64(2)}, api.puts[0])
	assert.Equal(t, "Bearer tok", api.putAuth)
	assert.Equal(t, []string{"Pack", "Move", "Survey"}, api.names())
}

func TestMovePrompt(t *testing.T) {
	tests := []struct {
		name      string
		stdin     string
		wantOut   string
		wantPuts  int
		wantOrder []string
	}{
		{"declined", "n\n", "Move cancelled", 0, []string{"Survey", "Pack", "Move"}},
		{"empty answer", "", "Move cancelled", 0, []string{"Survey", "Pack", "Move"}},
		{"accepted", "y\n", "Order saved", 1, []string{"Pack", "Survey", "Move"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, srv := newFakeAPI(t)
			out, err := execute(t, srv.URL, tt.stdin, "move", "0", "1")
			require.NoError(t, err)
			assert.Contains(t, out, "Confirm? [y/N]")
			assert.Contains(t, out, tt.wantOut)
			assert.Len(t, api.puts, tt.wantPuts)
			assert.Equal(t, tt.wantOrder, api.names())
		})
	}
}

func TestStepCommands(t *testing.T) {
	api, srv := newFakeAPI(t)

	_, err := execute(t, srv.URL, "", "up", "s3", "--yes")
	require.NoError(t, err)
	assert.Equal(t, []string{"Survey", "Move", "Pack"}, api.names())

	out, err := execute(t, srv.URL, "", "up", "s1", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to move")
	assert.Len(t, api.puts, 1)
}

func TestMoveFailureSurfacesServerMessage(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.putFail = "position 2 out of range 0..1"

	_, err := execute(t, srv.URL, "", "down", "s1", "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "position 2 out of range 0..1")
	assert.Equal(t, []string{"Survey", "Pack", "Move"}, api.names())
}

func TestAPIURLFromEnv(t *testing.T) {
	_, srv := newFakeAPI(t)
	t.Setenv("STAGECTL_API_URL", srv.URL)

	out, err := execute(t, "", "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Survey")
}

func TestUnknownFamily(t *testing.T) {
	_, srv := newFakeAPI(t)

	_, err := execute(t, srv.URL, "", "list", "--family", "crates")
	assert.ErrorContains(t, err, `unknown family "crates"`)
}

func TestVillageFlag(t *testing.T) {
	_, srv := newFakeAPI(t)

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr string
	}{
		{name: "buildings of a village", args: []string{"list", "--family", "buildings", "--village", "north"}, want: "School in north"},
		{name: "buildings need a village", args: []string{"list", "--family", "buildings"}, wantErr: "buildings need a village"},
		{name: "stages are not per village", args: []string{"list", "--village", "north"}, wantErr: "stages are not kept per village"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, srv.URL, "", tt.args...)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}
