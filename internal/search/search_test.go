package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/auth_service/internal/config"
	"github.com/Skotchmaster/auth_service/internal/models"
)

type request struct {
	Method string
	Path   string
	Body   []byte
}

type fakeES struct {
	mu       sync.Mutex
	requests []request
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, request{Method: r.Method, Path: r.URL.Path, Body: body})
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	if f.handler != nil {
		f.handler(w, r)
		return
	}
	_, _ = w.Write([]byte(`{}`))
}

func (f *fakeES) last() request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newIndex(t *testing.T, f *fakeES) *UserIndex {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewUserIndex(es, "users")
}

func TestNewClient(t *testing.T) {
	f := &fakeES{handler: func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"version":{"number":"9.0.0"}}`))
	}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	_, err := NewClient(context.Background(), config.ElasticConfig{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "/", f.last().Path)

	f.handler = func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusUnauthorized) }
	_, err = NewClient(context.Background(), config.ElasticConfig{URL: srv.URL})
	assert.Error(t, err)
}

func TestIndex(t *testing.T) {
	f := &fakeES{}
	x := newIndex(t, f)

	tenant := uint(2)
	u := &models.User{ID: 5, FirstName: "John", LastName: "Doe", Email: "john@example.com", Password: "secret-hash", Role: models.RoleCustomer, TenantID: &tenant}
	require.NoError(t, x.Index(context.Background(), u))

	req := f.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/users/_doc/5", req.Path)
	assert.NotContains(t, string(req.Body), "secret-hash")

	var doc UserDoc
	require.NoError(t, json.Unmarshal(req.Body, &doc))
	assert.Equal(t, DocFromUser(u), doc)

	f.handler = func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusInternalServerError) }
	assert.Error(t, x.Index(context.Background(), u))
}

func TestDelete(t *testing.T) {
	f := &fakeES{handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) }}
	x := newIndex(t, f)

	require.NoError(t, x.Delete(context.Background(), 9))
	req := f.last()
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "/users/_doc/9", req.Path)

	f.handler = func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusForbidden) }
	assert.Error(t, x.Delete(context.Background(), 9))
}

func TestSearch(t *testing.T) {
	f := &fakeES{handler: func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"hits": {
				"total": {"value": 2, "relation": "eq"},
				"hits": [
					{"_id": "1", "_source": {"id": 1, "firstName": "John", "lastName": "Doe", "email": "john@example.com", "role": "customer"}},
					{"_id": "2", "_source": {"id": 2, "firstName": "Johan", "lastName": "Dole", "email": "johan@example.com", "role": "admin"}}
				]
			}
		}`))
	}}
	x := newIndex(t, f)

	total, docs, err := x.Search(context.Background(), "jon", 0, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, docs, 2)
	assert.Equal(t, "john@example.com", docs[0].Email)
	assert.Equal(t, models.RoleAdmin, docs[1].Role)

	req := f.last()
	assert.Equal(t, "/users/_search", req.Path)
	var body map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.EqualValues(t, 6, body["size"])
	mm := body["query"].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "jon", mm["query"])

	f.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad query"}`))
	}
	_, _, err = x.Search(context.Background(), "jon", 0, 6)
	assert.ErrorContains(t, err, "bad query")
}
