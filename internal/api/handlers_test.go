package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrapra-work/rag-system-api/internal/bulk"
	"github.com/andrapra-work/rag-system-api/internal/llm"
	"github.com/andrapra-work/rag-system-api/internal/rag"
	"github.com/andrapra-work/rag-system-api/internal/store"
)

// doJSON performs an authenticated JSON request against the server.
func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)

	form := url.Values{"username": {testUser.Email}, "password": {"hunter22"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, testToken, body["access_token"])
	assert.Equal(t, "bearer", body["token_type"])
}

func TestLoginInvalidCredentials(t *testing.T) {
	srv := newTestServer(t)

	form := url.Values{"username": {testUser.Email}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}

func TestLoginMissingFields(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("username=only@example.com"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/auth/register", map[string]string{
		"email":    "new@example.com",
		"password": "longenough",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "new@example.com", body["email"])
	assert.NotEmpty(t, body["client_id"])
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"bad email", map[string]string{"email": "not-an-email", "password": "longenough"}},
		{"short password", map[string]string{"email": "a@b.com", "password": "short"}},
		{"bad client_id", map[string]string{"email": "a@b.com", "password": "longenough", "client_id": "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/auth/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	srv := newTestServer(t, func(cfg *ServerConfig) {
		cfg.Auth = &fakeAuthService{registerErr: store.ErrDuplicateEmail}
	})

	rec := doJSON(t, srv, http.MethodPost, "/auth/register", map[string]string{
		"email":    "taken@example.com",
		"password": "longenough",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestChangePassword(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/auth/change-password", map[string]string{
		"current_password": "hunter22",
		"new_password":     "evenlonger",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/auth/change-password", map[string]string{
		"current_password": "wrong",
		"new_password":     "evenlonger",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/documents"},
		{http.MethodGet, "/documents"},
		{http.MethodPost, "/search/query"},
		{http.MethodPost, "/upload/csv"},
		{http.MethodPost, "/auth/change-password"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			req := httptest.NewRequest(p.method, p.path, nil)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAuthRejectsBadToken(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "could not validate credentials", body.Message)
}

func TestDocumentLifecycle(t *testing.T) {
	docs := newFakeDocuments()
	srv := newTestServer(t, func(cfg *ServerConfig) {
		cfg.Documents = docs
		cfg.Ingester = docs
	})

	// Create
	rec := doJSON(t, srv, http.MethodPost, "/documents", map[string]any{
		"title":    "Guide",
		"content":  "How to do things",
		"metadata": map[string]any{"lang": "en"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[store.Document](t, rec)
	assert.Equal(t, testUser.ClientID, created.ClientID)

	// Get
	rec = doJSON(t, srv, http.MethodGet, "/documents/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Update
	rec = doJSON(t, srv, http.MethodPatch, "/documents/"+created.ID.String(), map[string]string{"title": "Guide v2"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody[store.Document](t, rec)
	assert.Equal(t, "Guide v2", updated.Title)

	// List
	rec = doJSON(t, srv, http.MethodGet, "/documents?page=1&page_size=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeBody[store.DocumentPage](t, rec)
	assert.Equal(t, int64(1), page.Total)

	// Mine
	rec = doJSON(t, srv, http.MethodGet, "/documents/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decodeBody[map[string][]store.Document](t, rec)
	assert.Len(t, mine["data"], 1)

	// Delete
	rec = doJSON(t, srv, http.MethodDelete, "/documents/"+created.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/documents/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocumentValidation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"create missing title", http.MethodPost, "/documents", map[string]string{"content": "c"}},
		{"create missing content", http.MethodPost, "/documents", map[string]string{"title": "t"}},
		{"get bad id", http.MethodGet, "/documents/not-a-uuid", nil},
		{"patch empty title", http.MethodPatch, "/documents/" + uuid.NewString(), map[string]string{"title": "  "}},
		{"delete bad id", http.MethodDelete, "/documents/not-a-uuid", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestDocumentNotFoundMapsTo404(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/documents/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchQuery(t *testing.T) {
	search := &fakeSearch{answer: &rag.Answer{
		Answer:  "The answer",
		Sources: []store.SearchResult{{Title: "Doc", Similarity: 0.8}},
	}}
	srv := newTestServer(t, func(cfg *ServerConfig) { cfg.Search = search })

	rec := doJSON(t, srv, http.MethodPost, "/search/query", map[string]any{"query": "what?"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[rag.Answer](t, rec)
	assert.Equal(t, "The answer", body.Answer)
	require.Len(t, body.Sources, 1)
	assert.Equal(t, "what?", search.query)
}

func TestSearchQueryValidation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"empty query", map[string]any{"query": "   "}},
		{"limit too high", map[string]any{"query": "q", "limit": 50}},
		{"threshold out of range", map[string]any{"query": "q", "threshold": 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/search/query", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSearchUpstreamFailureMapsTo502(t *testing.T) {
	srv := newTestServer(t, func(cfg *ServerConfig) {
		cfg.Search = &fakeSearch{err: fmt.Errorf("embedding query: %w", llm.ErrUpstream)}
	})

	rec := doJSON(t, srv, http.MethodPost, "/search/query", map[string]any{"query": "q"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSearchUnknownFailureIsOpaque500(t *testing.T) {
	srv := newTestServer(t, func(cfg *ServerConfig) {
		cfg.Search = &fakeSearch{err: errors.New("secret database detail")}
	})

	rec := doJSON(t, srv, http.MethodPost, "/search/query", map[string]any{"query": "q"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret database detail")
}

// multipartUpload builds a multipart request with a single file field.
func multipartUpload(t *testing.T, path, filename, content string) *http.Request {
	t.Helper()

	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

func TestUploadCSV(t *testing.T) {
	fb := &fakeBulk{result: &bulk.Result{
		Status: "completed", TotalDocuments: 2, ProcessedDocuments: 2, Errors: []string{},
	}}
	srv := newTestServer(t, func(cfg *ServerConfig) { cfg.Bulk = fb })

	req := multipartUpload(t, "/upload/csv", "docs.csv", "title,content\nA,B")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[bulk.Result](t, rec)
	assert.Equal(t, 2, body.ProcessedDocuments)
	assert.Equal(t, "title,content\nA,B", string(fb.read))
}

func TestUploadRejectsWrongExtension(t *testing.T) {
	srv := newTestServer(t)

	req := multipartUpload(t, "/upload/csv", "docs.txt", "whatever")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = multipartUpload(t, "/upload/json", "docs.csv", "whatever")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadTooLarge(t *testing.T) {
	srv := newTestServer(t, func(cfg *ServerConfig) { cfg.MaxUploadSize = 256 })

	req := multipartUpload(t, "/upload/json", "docs.json", strings.Repeat("x", 4096))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUploadUnusableFileIsBadRequest(t *testing.T) {
	srv := newTestServer(t, func(cfg *ServerConfig) {
		cfg.Bulk = &fakeBulk{err: errors.New("reading CSV header: EOF")}
	})

	req := multipartUpload(t, "/upload/csv", "docs.csv", "")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestReadyWithoutPool(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
