package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/geosift/eligo/internal/cache"
	"github.com/geosift/eligo/internal/eligibility"
	"github.com/geosift/eligo/internal/events"
	"github.com/geosift/eligo/internal/loader"
)

// memStore is a map-backed result cache for handler tests.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

var _ cache.Interface = (*memStore)(nil)

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key string, val []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = val
	m.sets++
	return nil
}

func (m *memStore) Close() error { return nil }

type capturingPublisher struct {
	mu     sync.Mutex
	events []events.RunCompleted
}

var _ events.Publisher = (*capturingPublisher)(nil)

func (p *capturingPublisher) Publish(ev events.RunCompleted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func newTestServer(t *testing.T, store cache.Interface, pub events.Publisher) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	fl, err := loader.New(log, 8)
	if err != nil {
		t.Fatalf("loader.New: %v", err)
	}
	engine := eligibility.New(log, fl, 2)
	h := NewHandler(log, testConfig(), engine, store, pub)
	srv := httptest.NewServer(Router(h, log))
	t.Cleanup(srv.Close)
	return srv
}

func analyzeBody() []byte {
	zero := 0.0
	req := AnalyzeRequest{
		SliverThreshold: &zero,
		BaseArea:        LayerSpecDTO{Name: "base", GeoJSON: json.RawMessage(basePolyJSON)},
		Excluded: []LayerSpecDTO{{
			Name:    "wetland",
			GeoJSON: json.RawMessage(`{"type":"Polygon","coordinates":[[[0,0],[4,0],[4,4],[0,4],[0,0]]]}`),
		}},
	}
	b, _ := json.Marshal(req)
	return b
}

func postAnalyze(t *testing.T, srv *httptest.Server, body []byte) (*http.Response, AnalyzeResponse) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/analyze", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /analyze: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	var out AnalyzeResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp, out
}

func TestAnalyze_ComputesRegions(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp, out := postAnalyze(t, srv, analyzeBody())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if out.Meta.RunID == "" {
		t.Fatalf("missing run id")
	}
	if out.Meta.CRS != "EPSG:3857" {
		t.Fatalf("meta CRS = %q", out.Meta.CRS)
	}
	if a := out.Meta.EligibleArea; a < 83.99 || a > 84.01 {
		t.Fatalf("eligible area = %v, want 84", a)
	}
	if out.Meta.RestrictedArea != 0 {
		t.Fatalf("restricted area = %v, want 0", out.Meta.RestrictedArea)
	}

	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(out.Eligible, &fc); err != nil {
		t.Fatalf("eligible payload: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) == 0 {
		t.Fatalf("eligible payload shape: type=%q features=%d", fc.Type, len(fc.Features))
	}
}

func TestAnalyze_InclusionExtendsBase(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	zero := 0.0
	req := AnalyzeRequest{
		SliverThreshold: &zero,
		BaseArea:        LayerSpecDTO{Name: "base", GeoJSON: json.RawMessage(basePolyJSON)},
		Included: []LayerSpecDTO{{
			Name:    "grant",
			GeoJSON: json.RawMessage(`{"type":"Polygon","coordinates":[[[20,0],[25,0],[25,5],[20,5],[20,0]]]}`),
		}},
	}
	body, _ := json.Marshal(req)

	resp, out := postAnalyze(t, srv, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	// 10x10 base plus a disjoint 5x5 included square
	if a := out.Meta.EligibleArea; a < 124.99 || a > 125.01 {
		t.Fatalf("eligible area = %v, want 125", a)
	}
}

func TestAnalyze_CacheHit(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(t, store, nil)
	body := analyzeBody()

	resp1, out1 := postAnalyze(t, srv, body)
	if resp1.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp1.StatusCode)
	}
	if got := resp1.Header.Get("X-Cache"); got != "miss" {
		t.Fatalf("first X-Cache = %q, want miss", got)
	}

	resp2, out2 := postAnalyze(t, srv, body)
	if got := resp2.Header.Get("X-Cache"); got != "hit" {
		t.Fatalf("second X-Cache = %q, want hit", got)
	}
	if out1.Meta.RunID != out2.Meta.RunID {
		t.Fatalf("cache hit produced a different payload")
	}
	if store.sets != 1 {
		t.Fatalf("sets = %d, want 1", store.sets)
	}
}

func TestAnalyze_PublishesEvent(t *testing.T) {
	pub := &capturingPublisher{}
	srv := newTestServer(t, nil, pub)

	resp, out := postAnalyze(t, srv, analyzeBody())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 1 {
		t.Fatalf("events = %d, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.RunID != out.Meta.RunID {
		t.Fatalf("event run id = %q, response %q", ev.RunID, out.Meta.RunID)
	}
	if ev.LayerCount != 1 || ev.EligibleArea != out.Meta.EligibleArea {
		t.Fatalf("event payload = %+v", ev)
	}
}

func TestAnalyze_BadRequests(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"not json", "{", http.StatusBadRequest},
		{"missing base source", `{"base_area":{"name":"x"}}`, http.StatusBadRequest},
		{
			"bad predicate",
			`{"base_area":{"geojson":` + basePolyJSON + `},"excluded":[{"geojson":` + basePolyJSON + `,"where":{"op":"xor"}}]}`,
			http.StatusBadRequest,
		},
		{
			"negative buffer",
			`{"base_area":{"geojson":` + basePolyJSON + `,"buffer":-1}}`,
			http.StatusBadRequest,
		},
		{
			"filter on base area",
			`{"base_area":{"geojson":` + basePolyJSON + `,"where":{"op":"eq","attr":"a","value":1}}}`,
			http.StatusBadRequest,
		},
		{
			"buffer on base area",
			`{"base_area":{"geojson":` + basePolyJSON + `,"buffer":5}}`,
			http.StatusBadRequest,
		},
		{
			"unsupported crs authority",
			`{"crs":"ESRI:102100","base_area":{"geojson":` + basePolyJSON + `}}`,
			http.StatusUnprocessableEntity,
		},
		{
			"unknown epsg code",
			`{"crs":"EPSG:999999","base_area":{"geojson":` + basePolyJSON + `,"crs":"EPSG:4326"}}`,
			http.StatusUnprocessableEntity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := postAnalyze(t, srv, []byte(tt.body))
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
