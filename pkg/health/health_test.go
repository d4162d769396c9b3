package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

const goroutineCount = 50

func decode(t *testing.T, w *httptest.ResponseRecorder) healthResponse {
	t.Helper()
	var resp healthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestChecker_Transitions(t *testing.T) {
	hc := NewChecker()
	if hc.State() != "starting" || hc.IsReady() {
		t.Fatalf("new checker state = %q ready=%v", hc.State(), hc.IsReady())
	}
	hc.SetReady()
	if hc.State() != "ready" || !hc.IsReady() {
		t.Fatalf("after SetReady() state = %q", hc.State())
	}
	hc.SetDraining()
	if hc.State() != "draining" || hc.IsReady() {
		t.Fatalf("after SetDraining() state = %q", hc.State())
	}
}

func TestLivenessHandler(t *testing.T) {
	hc := NewChecker()
	hc.Register("database", func(context.Context) error { return errors.New("down") })

	w := httptest.NewRecorder()
	hc.LivenessHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if got := decode(t, w).Status; got != "ok" {
		t.Errorf("status = %q, want ok", got)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestReadinessHandler(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	broken := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		ready      bool
		probes     map[string]Probe
		wantCode   int
		wantStatus string
	}{
		{"starting", false, nil, http.StatusServiceUnavailable, "starting"},
		{"ready no probes", true, nil, http.StatusOK, "ready"},
		{"ready healthy deps", true, map[string]Probe{"database": healthy, "redis": healthy}, http.StatusOK, "ready"},
		{"ready broken dep", true, map[string]Probe{"database": healthy, "redis": broken}, http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewChecker()
			for name, p := range tt.probes {
				hc.Register(name, p)
			}
			if tt.ready {
				hc.SetReady()
			}

			w := httptest.NewRecorder()
			hc.ReadinessHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			resp := decode(t, w)
			if resp.Status != tt.wantStatus {
				t.Errorf("body status = %q, want %q", resp.Status, tt.wantStatus)
			}
			if len(tt.probes) > 0 && len(resp.Dependencies) != len(tt.probes) {
				t.Errorf("dependencies = %v", resp.Dependencies)
			}
		})
	}
}

func TestDependencies_ProbeTimeout(t *testing.T) {
	hc := NewChecker()
	hc.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	deps := hc.Dependencies(ctx)
	if deps["slow"] == "ok" {
		t.Errorf("slow probe reported ok after cancellation")
	}
}

func TestConcurrentAccess(t *testing.T) {
	hc := NewChecker()

	var wg sync.WaitGroup
	wg.Add(goroutineCount * 3)
	for range goroutineCount {
		go func() {
			defer wg.Done()
			hc.SetReady()
		}()
		go func() {
			defer wg.Done()
			hc.Register("p", func(context.Context) error { return nil })
		}()
		go func() {
			defer wg.Done()
			_ = hc.Dependencies(context.Background())
			_ = hc.State()
		}()
	}
	wg.Wait()
}
