package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denosys/InferenceMAX/internal/model"
	"github.com/denosys/InferenceMAX/internal/normalize"
	"github.com/denosys/InferenceMAX/internal/payload"
	"github.com/denosys/InferenceMAX/internal/series"
)

type stubFetcher struct {
	calls atomic.Int32
	data  map[string]string
}

func (f *stubFetcher) Fetch(_ context.Context, name string) ([]byte, error) {
	f.calls.Add(1)
	body, ok := f.data[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(body), nil
}

func testServer(t *testing.T, staticDir string) (*Server, *stubFetcher) {
	t.Helper()
	p := &payload.Payload{
		GeneratedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Threshold:   2,
		Entries: []*payload.Entry{
			{
				Filename:    "eager.json",
				Columns:     []string{"concurrency", "hw", "parallelism", "value"},
				RecordCount: 2,
				Tier:        model.TierEager,
				SchemaID:    "s1",
				Records: []model.Record{
					{"hw": "h100", "parallelism": int64(1), "concurrency": int64(8), "value": 2.0, "precision": "fp8"},
					{"hw": "h100", "parallelism": int64(1), "concurrency": int64(4), "value": 1.0, "precision": "fp8"},
				},
			},
			{
				Filename:    "deferred.json",
				RecordCount: 3,
				Tier:        model.TierDeferred,
				SchemaID:    "s1",
				Sample:      model.Record{"filename": "deferred.json", "model_display": "Llama 70B"},
			},
			{
				Filename:    "gone.json",
				RecordCount: 5,
				Tier:        model.TierDeferred,
				SchemaID:    "s1",
			},
		},
	}
	f := &stubFetcher{data: map[string]string{
		"deferred.json": `[{"hw":"MI300X","tp":8,"conc":1,"value":5},
			{"hw":"MI300X","tp":8,"conc":2,"value":6},
			{"hw":"MI300X","tp":4,"conc":1,"value":7}]`,
	}}
	n := normalize.New(normalize.Options{})
	r := payload.NewResolver(f, n, payload.ResolverOptions{Timeout: time.Second})
	return New(p, r, staticDir), f
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	s, _ := testServer(t, "")
	rec := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListDatasets(t *testing.T) {
	s, _ := testServer(t, "")
	rec := get(t, s, "/api/datasets")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[[]DatasetSummary](t, rec)
	require.Len(t, got, 3)
	assert.Equal(t, "eager.json", got[0].Filename)
	assert.Equal(t, "materialized", got[0].State)
	assert.Equal(t, "deferred", got[1].State)
}

func TestDatasetRecords(t *testing.T) {
	s, f := testServer(t, "")

	t.Run("eager entries never fetch", func(t *testing.T) {
		rec := get(t, s, "/api/datasets/eager.json/records")
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[RecordsResponse](t, rec)
		assert.Len(t, got.Records, 2)
		assert.Zero(t, f.calls.Load())
	})

	t.Run("deferred entries resolve once", func(t *testing.T) {
		for range 2 {
			rec := get(t, s, "/api/datasets/deferred.json/records")
			require.Equal(t, http.StatusOK, rec.Code)
			got := decode[RecordsResponse](t, rec)
			assert.Len(t, got.Records, 3)
			assert.Equal(t, "materialized", got.State)
		}
		assert.Equal(t, int32(1), f.calls.Load())
	})

	t.Run("fetch failure returns empty records", func(t *testing.T) {
		rec := get(t, s, "/api/datasets/gone.json/records")
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[RecordsResponse](t, rec)
		assert.Empty(t, got.Records)
		assert.Equal(t, "deferred", got.State)
	})

	t.Run("unknown dataset", func(t *testing.T) {
		rec := get(t, s, "/api/datasets/missing.json/records")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSeries(t *testing.T) {
	s, _ := testServer(t, "")

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantNames  []string
	}{
		{"eager sorted by concurrency", "/api/series?file=eager.json&y=value", http.StatusOK, []string{"h100 tp=1"}},
		{"deferred grouped by parallelism", "/api/series?file=deferred.json", http.StatusOK, []string{"mi300x tp=4", "mi300x tp=8"}},
		{"hardware only", "/api/series?file=deferred.json&group=hw", http.StatusOK, []string{"mi300x"}},
		{"parallelism filter", "/api/series?file=deferred.json&tp=8", http.StatusOK, []string{"mi300x tp=8"}},
		{"missing file", "/api/series", http.StatusBadRequest, nil},
		{"bad connect", "/api/series?file=eager.json&connect=maybe", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, tt.target)
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			got := decode[SeriesResponse](t, rec)
			var names []string
			for _, sr := range got.Series {
				names = append(names, sr.Name)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}

	rec := get(t, s, "/api/series?file=eager.json&y=value&connect=true")
	got := decode[SeriesResponse](t, rec)
	require.Len(t, got.Series, 1)
	assert.Equal(t, series.ModeLinesMarkers, got.Series[0].Mode)
	require.Len(t, got.Series[0].Points, 2)
	assert.InDelta(t, 4.0, got.Series[0].Points[0].X, 0.001)
}

func TestSelectors(t *testing.T) {
	s, f := testServer(t, "")

	rec := get(t, s, "/api/selectors")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[series.Selectors](t, rec)
	assert.Equal(t, []string{"h100"}, got.Hardware)
	assert.Equal(t, []string{"Llama 70B"}, got.Models)
	assert.Zero(t, f.calls.Load(), "overview uses samples only")

	rec = get(t, s, "/api/selectors?file=deferred.json")
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[series.Selectors](t, rec)
	assert.Equal(t, []string{"mi300x"}, got.Hardware)
	assert.Equal(t, []string{"4", "8"}, got.Parallelism)
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>ok</html>"), 0o644))
	s, _ := testServer(t, dir)

	rec := get(t, s, "/index.html")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code, "FileServer redirects index.html to /")

	rec = get(t, s, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestCORSPreflight(t *testing.T) {
	s, _ := testServer(t, "")
	req := httptest.NewRequest(http.MethodOptions, "/api/datasets", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestListenAndServeShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ListenAndServe(ctx, "127.0.0.1:0", http.NotFoundHandler()) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
