package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matzehuels/schemagraph/pkg/cache"
	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/errors"
	"github.com/matzehuels/schemagraph/pkg/geom"
	"github.com/matzehuels/schemagraph/pkg/persist"
	"github.com/matzehuels/schemagraph/pkg/pipeline"
	"github.com/matzehuels/schemagraph/pkg/schema"
	"github.com/matzehuels/schemagraph/pkg/schema/catalog"
	"github.com/matzehuels/schemagraph/pkg/storage"
)

func shop(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(catalog.File{Tables: []catalog.TableDef{
		{
			Name:    "users",
			Columns: []schema.Column{{Name: "id", DataType: "bigint"}},
		},
		{
			Name:        "orders",
			Columns:     []schema.Column{{Name: "id", DataType: "bigint"}, {Name: "user_id", DataType: "bigint"}},
			ForeignKeys: []schema.ForeignKey{{Name: "orders_user_fk", Columns: []string{"user_id"}, RefTable: "users", RefColumns: []string{"id"}}},
		},
	}})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func newServer(t *testing.T, withRepo bool) *Server {
	t.Helper()
	c, err := cache.NewMemoryCache(0)
	if err != nil {
		t.Fatal(err)
	}
	runner := pipeline.NewRunner(shop(t), c, nil, nil)
	var repo *persist.Repository
	if withRepo {
		repo = persist.New(storage.NewMemory())
	}
	return New(runner, repo)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) errors.Code {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return body.Error.Code
}

const shopRequest = `{"connection_id": "local", "schemas": ["public"]}`

func TestHealth(t *testing.T) {
	w := do(t, newServer(t, false), http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestGenerate(t *testing.T) {
	s := newServer(t, false)
	w := do(t, s, http.MethodPost, "/api/v1/diagrams", shopRequest)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	d, err := diagram.UnmarshalData(w.Body.Bytes())
	if err != nil {
		t.Fatalf("decode diagram: %v", err)
	}
	if len(d.Nodes) != 2 || len(d.Edges) != 1 {
		t.Errorf("got %d nodes, %d edges", len(d.Nodes), len(d.Edges))
	}
	if got := w.Header().Get(HeaderLayoutCache); got != "miss" {
		t.Errorf("%s = %q, want miss", HeaderLayoutCache, got)
	}

	w = do(t, s, http.MethodPost, "/api/v1/diagrams", shopRequest)
	if got := w.Header().Get(HeaderLayoutCache); got != "hit" {
		t.Errorf("second request %s = %q, want hit", HeaderLayoutCache, got)
	}
}

func TestGenerateErrors(t *testing.T) {
	s := newServer(t, false)
	tests := []struct {
		name   string
		body   string
		status int
		code   errors.Code
	}{
		{"malformed", `{"schemas": [`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"unknown field", `{"tables": []}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"no schemas", `{"connection_id": "local"}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad layout", `{"connection_id": "local", "schemas": ["public"], "layout": "spiral"}`, http.StatusBadRequest, errors.ErrCodeInvalidLayout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/api/v1/diagrams", tt.body)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			if got := errorCode(t, w); got != tt.code {
				t.Errorf("code = %s, want %s", got, tt.code)
			}
		})
	}
}

func TestUnknownConnection(t *testing.T) {
	reg := schema.NewRegistry()
	s := New(pipeline.NewRunner(reg, nil, nil, nil), nil)
	w := do(t, s, http.MethodPost, "/api/v1/diagrams", `{"connection_id": "nope", "schemas": ["public"]}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if got := errorCode(t, w); got != errors.ErrCodeUnknownConnection {
		t.Errorf("code = %s", got)
	}
}

func TestExport(t *testing.T) {
	s := newServer(t, false)

	w := do(t, s, http.MethodPost, "/api/v1/diagrams/export", shopRequest)
	if w.Code != http.StatusOK || !bytes.HasPrefix(w.Body.Bytes(), []byte("<svg")) {
		t.Fatalf("default export: status %d, body %.40s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}

	w = do(t, s, http.MethodPost, "/api/v1/diagrams/export?format=png&scale=1", shopRequest)
	if w.Code != http.StatusOK || !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Errorf("png export: status %d", w.Code)
	}

	w = do(t, s, http.MethodPost, "/api/v1/diagrams/export?format=dot", shopRequest)
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Body.String(), "digraph schema {") {
		t.Errorf("dot export: status %d, body %.40s", w.Code, w.Body.String())
	}

	w = do(t, s, http.MethodPost, "/api/v1/diagrams/export?format=gif", shopRequest)
	if w.Code != http.StatusBadRequest || errorCode(t, w) != errors.ErrCodeInvalidFormat {
		t.Errorf("gif export: status %d, body %s", w.Code, w.Body.String())
	}

	w = do(t, s, http.MethodPost, "/api/v1/diagrams/export?format=png&scale=big", shopRequest)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad scale: status %d", w.Code)
	}
}

func TestConfigsWithoutStorage(t *testing.T) {
	w := do(t, newServer(t, false), http.MethodGet, "/api/v1/configs", "")
	if w.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", w.Code)
	}
}

func TestConfigLifecycle(t *testing.T) {
	s := newServer(t, true)

	create := `{"connection_id": "local", "name": "main", "schemas": ["public"],
		"options": {"column_display": "all", "show_data_types": true},
		"layout": {"algorithm": "grid", "node_positions": {"public.users": {"x": 900, "y": 10}}}}`
	w := do(t, s, http.MethodPost, "/api/v1/configs", create)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", w.Code, w.Body.String())
	}
	var created diagram.Config
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("created = %+v", created)
	}

	w = do(t, s, http.MethodGet, "/api/v1/configs/"+created.ID, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"name":"main"`) {
		t.Errorf("get: status %d, body %s", w.Code, w.Body.String())
	}

	w = do(t, s, http.MethodPut, "/api/v1/configs/"+created.ID, `{"connection_id": "local", "name": "renamed", "schemas": ["public"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("put: status %d, body %s", w.Code, w.Body.String())
	}
	var updated diagram.Config
	_ = json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.Name != "renamed" || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("updated = %+v", updated)
	}

	w = do(t, s, http.MethodPut, "/api/v1/configs/"+created.ID, `{"id": "other", "name": "x"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("mismatched id: status %d", w.Code)
	}

	w = do(t, s, http.MethodGet, "/api/v1/configs?connection=local", "")
	var list []diagram.Config
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Errorf("list = %s (err %v)", w.Body.String(), err)
	}
	w = do(t, s, http.MethodGet, "/api/v1/configs?connection=elsewhere", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("filtered list = %s, want []", w.Body.String())
	}

	w = do(t, s, http.MethodDelete, "/api/v1/configs/"+created.ID, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("delete: status %d", w.Code)
	}
	w = do(t, s, http.MethodGet, "/api/v1/configs/"+created.ID, "")
	if w.Code != http.StatusNotFound || errorCode(t, w) != errors.ErrCodeNotFound {
		t.Errorf("get after delete: status %d", w.Code)
	}
}

func TestExportConfigUsesSavedPositions(t *testing.T) {
	s := newServer(t, true)
	saved, err := s.repo.Save(t.Context(), diagram.Config{
		ConnectionID: "local",
		Name:         "pinned",
		Schemas:      []string{"public"},
		Options:      diagram.DefaultOptions(),
		Layout: diagram.LayoutState{
			NodePositions: map[string]geom.Point{"public.users": {X: 1234, Y: 0}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	w := do(t, s, http.MethodGet, "/api/v1/configs/"+saved.ID+"/export?format=json", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	d, err := diagram.UnmarshalData(w.Body.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if got := d.Node("public.users").Position; got.X != 1234 {
		t.Errorf("users at %v, want saved x=1234", got)
	}

	w = do(t, s, http.MethodGet, "/api/v1/configs/missing/export", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing config export: status %d", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.ErrCodeInvalidIdentifier, http.StatusBadRequest},
		{errors.ErrCodeSuperseded, http.StatusConflict},
		{errors.ErrCodeGeneration, http.StatusBadGateway},
		{errors.ErrCodeExportUnavailable, http.StatusNotImplemented},
		{errors.ErrCodePersistence, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(errors.New(tt.code, "x")); got != tt.want {
			t.Errorf("statusFor(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
