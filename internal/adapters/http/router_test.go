package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sillsdev/liftmerge/internal/adapters/db/sqlite"
	"github.com/sillsdev/liftmerge/internal/application"
	"github.com/sillsdev/liftmerge/internal/domain"
)

const importBody = `{
  "style": "keep-new",
  "ranges": [{"id": "lexical-relation", "elements": [
    {"id": "Antonym", "label": {"en": "Antonym"}, "traits": [{"name": "referenceType", "value": "pair"}]}
  ]}],
  "entries": [
    {"id": "hot", "guid": "00000000-0000-4000-8000-000000000001", "lexicalUnit": {"en": "hot"},
     "relations": [{"type": "Antonym", "ref": "cold"}]},
    {"id": "cold", "guid": "00000000-0000-4000-8000-000000000002", "lexicalUnit": {"en": "cold"}}
  ]
}`

func newTestServer(t *testing.T, apiKey string) *httptest.Server {
	t.Helper()
	db, err := sqlite.OpenMigrated(context.Background(), filepath.Join(t.TempDir(), "http_test.db"))
	require.NoError(t, err)
	svc := application.NewImportService(sqlite.NewLexiconRepository(db), nil)
	require.NoError(t, svc.SetAPIKey(apiKey))
	srv := httptest.NewServer(NewRouter(svc, nil))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, contentType, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestImportAndQueryOverHTTP(t *testing.T) {
	srv := newTestServer(t, "")

	resp := post(t, srv.URL+"/api/import", "application/json", "", importBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out application.ImportOutcome
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 2, out.Result.Created)
	require.NotZero(t, out.Run.ID)

	var entries []domain.EntrySummary
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/entries?q=co", &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "cold", entries[0].Headword)

	var links []domain.LinkSummary
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/relations?type=Antonym", &links))
	require.Len(t, links, 1)
	assert.Len(t, links[0].Members, 2)

	var runs []domain.ImportRun
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/runs", &runs))
	assert.Len(t, runs, 1)

	var logs []domain.MergeLogRecord
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/runs/1/log?kind=created", &logs))
	assert.NotEmpty(t, logs)

	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/entries/00000000-0000-4000-8000-000000000001", nil))
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/entries/00000000-0000-4000-8000-000000000009", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/entries/nope", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/runs/x/log", nil))
}

func TestImportStreamsJSONLines(t *testing.T) {
	srv := newTestServer(t, "")
	var body bytes.Buffer
	body.WriteString(`{"id":"a","lexicalUnit":{"en":"apple"}}` + "\n")
	body.WriteString(`{"id":"b","lexicalUnit":{"en":"banana"}}` + "\n")

	resp := post(t, srv.URL+"/api/import?style=keep-only-new", "application/x-ndjson", "", body.String())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out application.ImportOutcome
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 2, out.Result.EntriesProcessed)
	assert.Equal(t, "keep-only-new", out.Run.Style)
}

func TestImportRejectsBadInput(t *testing.T) {
	srv := newTestServer(t, "")
	assert.Equal(t, http.StatusBadRequest, post(t, srv.URL+"/api/import", "application/json", "", `{"entries":`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, srv.URL+"/api/import", "application/json", "", `{"style":"merge-all"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, srv.URL+"/api/import?style=merge-all", "application/x-ndjson", "", "").StatusCode)
}

func TestImportRequiresAPIKey(t *testing.T) {
	srv := newTestServer(t, "s3cret")

	assert.Equal(t, http.StatusUnauthorized, post(t, srv.URL+"/api/import", "application/json", "", importBody).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, post(t, srv.URL+"/api/import", "application/json", "wrong", importBody).StatusCode)
	assert.Equal(t, http.StatusOK, post(t, srv.URL+"/api/import", "application/json", "s3cret", importBody).StatusCode)

	// Reads stay open.
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/healthz", nil))
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/reference-types", nil))
}
