package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lundberg/billdiff/internal/config"
	"github.com/lundberg/billdiff/internal/fetch"
	"github.com/lundberg/billdiff/internal/redline"
)

func testAssets() fstest.MapFS {
	return fstest.MapFS{
		"index.html": &fstest.MapFile{
			Data: []byte("<html><body>Hello billdiff</body></html>"),
		},
	}
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *httptest.Server {
	t.Helper()

	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	fetcher := fetch.NewFetcher(5*time.Second, 1000)
	srv := New(cfg, fetcher, testAssets(), slog.New(slog.DiscardHandler))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postCompare(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/compare", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAPICompare_PastedText(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := postCompare(t, ts, `{
		"original": {"text": "The cat sat"},
		"amended":  {"text": "The dog sat"}
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var c Comparison
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&c))

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "original bill", c.OriginalLabel)
	assert.Equal(t, "amendment", c.AmendedLabel)
	require.NotNil(t, c.Diff)

	expected := []redline.Op{
		{Kind: redline.OpCopy, Tokens: []redline.Token{"The"}},
		{Kind: redline.OpDelete, Tokens: []redline.Token{"cat"}},
		{Kind: redline.OpInsert, Tokens: []redline.Token{"dog"}},
		{Kind: redline.OpCopy, Tokens: []redline.Token{"sat"}},
	}
	assert.Equal(t, expected, c.Diff.Ops)
}

func TestAPICompare_LineGranularityOverride(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := postCompare(t, ts, `{
		"original": {"text": "a\nb\n"},
		"amended":  {"text": "a\nc\n"},
		"granularity": "line"
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var c Comparison
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&c))
	assert.Equal(t, redline.Line, c.Diff.Granularity)
}

func TestAPICompare_BadGranularity(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := postCompare(t, ts, `{
		"original": {"text": "a"},
		"amended":  {"text": "b"},
		"granularity": "char"
	}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPICompare_MalformedBody(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := postCompare(t, ts, `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPICompare_URLInput(t *testing.T) {
	page := `<html><body><article>
<p>The Secretary shall establish a grant program under this section.</p>
<p>Funds made available under this section remain available until expended.</p>
</article></body></html>`
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer source.Close()

	ts := newTestServer(t, nil)

	body, err := json.Marshal(map[string]any{
		"original": map[string]string{"url": source.URL + "/bill"},
		"amended":  map[string]string{"text": "The Secretary may establish a grant program."},
	})
	require.NoError(t, err)

	resp := postCompare(t, ts, string(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var c Comparison
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&c))
	assert.NotEmpty(t, c.Diff.Ops)
}

func TestAPICompare_FetchFailure(t *testing.T) {
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer source.Close()

	ts := newTestServer(t, nil)

	body := `{"original": {"url": "` + source.URL + `"}, "amended": {"text": "x"}}`
	resp := postCompare(t, ts, body)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestAPIDiff_PreloadedComparison(t *testing.T) {
	cfg := config.Default()
	cfg.Mode = config.ModeFiles
	srv := New(cfg, nil, testAssets(), slog.New(slog.DiscardHandler))

	c, err := srv.Compare(
		fetch.FromText("strike section 2", "old.txt"),
		fetch.FromText("strike section 3", "new.txt"),
		redline.Word)
	require.NoError(t, err)
	srv.SetCurrent(c)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/diff")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got Comparison
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "old.txt", got.OriginalLabel)
	assert.Equal(t, c.ID, got.ID)
}

func TestAPIDiff_NotLoaded(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/diff")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIMeta(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Mode = config.ModeFiles
		cfg.View = "split"
		cfg.Watch = true
	})

	resp, err := http.Get(ts.URL + "/api/meta")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var m map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	assert.Equal(t, "files", m["mode"])
	assert.Equal(t, "split", m["view"])
	assert.Equal(t, "word", m["granularity"])
	assert.Equal(t, true, m["watching"])
	assert.Equal(t, false, m["hasDiff"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	// Generate one successful comparison so the counter is non-zero.
	resp := postCompare(t, ts, `{"original": {"text": "a"}, "amended": {"text": "b"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	mresp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	require.Equal(t, http.StatusOK, mresp.StatusCode)

	body, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `billdiff_comparisons_total{outcome="ok"} 1`)
}

func TestFrontendServed(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Hello billdiff")
}

func TestAPICompare_BodyTooLarge(t *testing.T) {
	ts := newTestServer(t, nil)

	big := bytes.Repeat([]byte("a"), maxRequestBodySize+1024)
	body := `{"original": {"text": "` + string(big) + `"}, "amended": {"text": "b"}}`
	resp := postCompare(t, ts, body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
