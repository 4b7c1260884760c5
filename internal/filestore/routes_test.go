package filestore

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/jwulff/tubemarker/internal/logger"
)

func init() {
	logger.SetOutput(io.Discard)
}

func newTestServer(t *testing.T, initial string) (*httptest.Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "videos.json")
	if initial != "" {
		require.NoError(t, os.WriteFile(path, []byte(initial), 0o644))
	}
	srv := httptest.NewServer(Handler(NewFile(path)))
	t.Cleanup(srv.Close)
	return srv, path
}

func do(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestListReturnsFileContents(t *testing.T) {
	srv, _ := newTestServer(t, `[{"id":1,"name":"a"}]`)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/videos", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, `[{"id":1,"name":"a"}]`, body)
}

func TestListMissingFile(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, body := do(t, http.MethodGet, srv.URL+"/api/videos", "")

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "unable to read server data", gjson.Get(body, "message").String())
}

func TestListCorruptFile(t *testing.T) {
	srv, _ := newTestServer(t, `[{"id":`)

	resp, _ := do(t, http.MethodGet, srv.URL+"/api/videos", "")

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestReplaceWritesPrettyJSON(t *testing.T) {
	srv, path := newTestServer(t, `[]`)

	payload := `[{"id":1,"name":"Intro","videoId":"abc","timeLabels":[{"start":1,"end":2,"label":"x","type":"summary"}],"bpm":null}]`
	resp, body := do(t, http.MethodPut, srv.URL+"/api/videos", payload)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "data saved", gjson.Get(body, "message").String())

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(written), "\n  {")
	assert.JSONEq(t, payload, string(written))

	// key order survives the rewrite
	assert.Less(t, strings.Index(string(written), `"id"`), strings.Index(string(written), `"timeLabels"`))

	_, listed := do(t, http.MethodGet, srv.URL+"/api/videos", "")
	assert.JSONEq(t, payload, listed)
}

func TestReplaceRejectsNonArray(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"object", `{"id":1}`},
		{"string", `"videos"`},
		{"invalid", `[{"id":`},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, path := newTestServer(t, `[{"id":9}]`)

			resp, body := do(t, http.MethodPut, srv.URL+"/api/videos", tt.body)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, gjson.Get(body, "message").String())

			kept, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, `[{"id":9}]`, string(kept))
		})
	}
}

func TestReplaceCreatesMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "videos.json")
	f := NewFile(path)

	require.NoError(t, f.Replace([]byte(`[]`)))

	data, err := f.Read()
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, `[]`)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/videos", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPut)
}
