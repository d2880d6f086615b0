package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JonMunkholm/emojiimport/internal/core"
)

func TestRecorder_Observe(t *testing.T) {
	r := NewRecorder("pack")

	r.Observe(core.ItemResult{Outcome: core.OutcomeImported, Bytes: 2048, Duration: 10 * time.Millisecond})
	r.Observe(core.ItemResult{Outcome: core.OutcomeImported, Bytes: 4096})
	r.Observe(core.ItemResult{Outcome: core.OutcomeFiltered})
	r.Observe(core.ItemResult{Outcome: core.OutcomeFailed, Kind: core.KindDecode})

	tests := []struct {
		name  string
		value float64
		want  float64
	}{
		{"imported", testutil.ToFloat64(r.items.WithLabelValues(string(core.OutcomeImported))), 2},
		{"filtered", testutil.ToFloat64(r.items.WithLabelValues(string(core.OutcomeFiltered))), 1},
		{"failed", testutil.ToFloat64(r.items.WithLabelValues(string(core.OutcomeFailed))), 1},
		{"decode failures", testutil.ToFloat64(r.failures.WithLabelValues(string(core.KindDecode))), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != tt.want {
				t.Errorf("got %v, want %v", tt.value, tt.want)
			}
		})
	}

	if n := testutil.CollectAndCount(r.imageBytes); n != 1 {
		t.Errorf("image_bytes series = %d, want 1", n)
	}
}

func TestRecorder_ObserveRun(t *testing.T) {
	r := NewRecorder("steamgame")
	finished := time.Unix(1700000000, 0)

	r.ObserveRun(&core.Report{Duration: 3 * time.Second}, false, finished)
	if got := testutil.ToFloat64(r.lastSuccess); got != 0 {
		t.Errorf("last success = %v after interrupted run, want 0", got)
	}

	r.ObserveRun(&core.Report{Duration: 3 * time.Second}, true, finished)
	if got := testutil.ToFloat64(r.runDuration); got != 3 {
		t.Errorf("run duration = %v, want 3", got)
	}
	if got := testutil.ToFloat64(r.lastSuccess); got != 1700000000 {
		t.Errorf("last success = %v, want 1700000000", got)
	}

	r.SetRegistrySize(42)
	if got := testutil.ToFloat64(r.registryEmojis); got != 42 {
		t.Errorf("registry emojis = %v, want 42", got)
	}
}

func TestRecorder_Push(t *testing.T) {
	var gotPath, gotBody string

	router := chi.NewRouter()
	router.Put("/metrics/job/{job}/source/{source}", func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		body, _ := io.ReadAll(req.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	r := NewRecorder("mastodon")
	r.Observe(core.ItemResult{Outcome: core.OutcomeImported, Bytes: 100})

	if err := r.Push(context.Background(), srv.URL, "emojiimport"); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if gotPath != "/metrics/job/emojiimport/source/mastodon" {
		t.Errorf("push path = %q", gotPath)
	}
	if gotBody == "" {
		t.Error("push body is empty")
	}
}

func TestRecorder_SourceOnlyInGroupingKey(t *testing.T) {
	r := NewRecorder("slack")
	r.Observe(core.ItemResult{Outcome: core.OutcomeFailed, Kind: core.KindFetch})
	r.ObserveRun(&core.Report{Duration: time.Second}, true, time.Now())

	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(families) == 0 {
		t.Fatal("Gather() returned no metric families")
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "source" {
					t.Errorf("%s carries label source; it would collide with the push grouping key", mf.GetName())
				}
			}
		}
	}
}

func TestRecorder_PushError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewRecorder("x").Push(context.Background(), srv.URL, "emojiimport")
	if err == nil || !strings.Contains(err.Error(), "push metrics") {
		t.Errorf("Push() error = %v, want push failure", err)
	}
}
