package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aue-natural/pricewatch/internal/model"
	"github.com/aue-natural/pricewatch/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestBuildMux_HealthEndpoint(t *testing.T) {
	mux := buildMux(newTestStore(t), t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	err := json.Unmarshal(rr.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, "ok", body["status"])
}

func TestBuildMux_SummaryNoRuns(t *testing.T) {
	mux := buildMux(newTestStore(t), t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/summary", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "no runs recorded")
}

func TestBuildMux_SummaryLatestRun(t *testing.T) {
	st := newTestStore(t)
	summary := model.RunSummary{
		RunID:         "run-1",
		EngineVersion: "hybrid-embeddings-v1",
		TotalProducts: 12,
		TotalPairs:    3,
	}
	require.NoError(t, st.SaveRun(context.Background(), summary, nil, nil))

	mux := buildMux(st, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/summary", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var got model.RunSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 12, got.TotalProducts)
}

func TestBuildMux_DedupStatsEmpty(t *testing.T) {
	mux := buildMux(newTestStore(t), t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/dedup/stats", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var body map[string]int
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 0, body["seen_urls"])
	assert.Equal(t, 0, body["seen_thumbnails"])
	assert.Equal(t, 0, body["seen_product_ids"])
}
