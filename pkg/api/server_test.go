package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/patriline/pkg/pipeline"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	srv := NewServer(pipeline.NewRunner(nil, nil, logger), logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestSimulateEndpoint(t *testing.T) {
	ts := newTestServer(t)

	body := `{
		"population_size": 20,
		"generations": -1,
		"seed": 7,
		"haplotypes": {
			"model": "autosomal",
			"allele_dist": [0.2, 0.3, 0.5],
			"theta": 0.1,
			"mutation_rate": 0.05
		},
		"estimate_theta": true
	}`
	resp, data := postJSON(t, ts.URL+"/api/simulate", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, data)
	}

	var got struct {
		RunID       string `json:"run_id"`
		Individuals int    `json:"individuals"`
		Founders    int    `json:"founders"`
		Pedigrees   int    `json:"pedigrees"`
		Theta       *struct {
			Details string `json:"details"`
		} `json:"theta"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.RunID == "" {
		t.Error("missing run_id")
	}
	if got.Individuals == 0 || got.Pedigrees == 0 {
		t.Errorf("empty simulation summary: %+v", got)
	}
	if got.Founders != 1 {
		t.Errorf("founders = %d, want 1", got.Founders)
	}
	if got.Theta == nil {
		t.Error("missing theta block")
	}
}

func TestSimulateEndpointRejectsBadOptions(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := postJSON(t, ts.URL+"/api/simulate", `{"variant": "bogus"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 for invalid options", resp.StatusCode)
	}

	resp, _ = postJSON(t, ts.URL+"/api/simulate", "{")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for bad JSON", resp.StatusCode)
	}
}

func TestEstimateThetaEndpoint(t *testing.T) {
	ts := newTestServer(t)

	var pairs []string
	for i := 0; i < 50; i++ {
		pairs = append(pairs, "[1,1]")
	}
	for i := 0; i < 30; i++ {
		pairs = append(pairs, "[1,2]")
	}
	for i := 0; i < 20; i++ {
		pairs = append(pairs, "[2,2]")
	}
	body := `{"genotypes": [` + strings.Join(pairs, ",") + `]}`

	resp, data := postJSON(t, ts.URL+"/api/estimate/theta", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, data)
	}

	var got thetaResponse
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Error || got.Details != "OK" {
		t.Errorf("estimate flagged: %+v", got)
	}
	if got.Estimate <= 0 || got.Estimate >= 1 {
		t.Errorf("estimate = %v, want in (0, 1)", got.Estimate)
	}

	// Empty sample is a client error.
	resp, _ = postJSON(t, ts.URL+"/api/estimate/theta", `{"genotypes": []}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty sample status = %d, want 400", resp.StatusCode)
	}
}

func TestEstimateFStatsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	body := `{
		"subpops": [
			[[0,0],[0,0],[0,0]],
			[[1,1],[1,1],[1,1]]
		],
		"sizes": [3, 3]
	}`
	resp, data := postJSON(t, ts.URL+"/api/estimate/fstats", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, data)
	}

	var got fstatsResponse
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Theta < 0.99 {
		t.Errorf("theta = %v, want ~1 for fixed subpopulations", got.Theta)
	}

	resp, _ = postJSON(t, ts.URL+"/api/estimate/fstats", `{"subpops": [], "sizes": []}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty subpops status = %d, want 400", resp.StatusCode)
	}
}
