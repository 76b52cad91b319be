package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"marketing-etl/internal/metrics"
)

// readCounterValue reads the current value of a Counter for assertions in tests.
func readCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("Counter.Write() error = %v", err)
	}
	if m.GetCounter() == nil {
		t.Fatalf("metric did not contain Counter value")
	}
	return m.GetCounter().GetValue()
}

// readSummaryCountSum reads sample count and sum from a SummaryVec for assertions in tests.
func readSummaryCountSum(t *testing.T, v *prometheus.SummaryVec, labels ...string) (uint64, float64) {
	t.Helper()

	m := &dto.Metric{}
	metric, ok := v.WithLabelValues(labels...).(prometheus.Metric)
	if !ok {
		t.Fatalf("SummaryVec.WithLabelValues(...) does not implement prometheus.Metric")
	}
	if err := metric.Write(m); err != nil {
		t.Fatalf("Summary.Write() error = %v", err)
	}
	if m.GetSummary() == nil {
		t.Fatalf("metric did not contain Summary value")
	}
	sum := m.GetSummary()
	return sum.GetSampleCount(), sum.GetSampleSum()
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		jobName     string
		gatewayURL  string
		wantErr     bool
		wantJobName string
	}{
		{
			name:       "missing gateway URL returns error",
			jobName:    "marketing",
			gatewayURL: "",
			wantErr:    true,
		},
		{
			name:        "empty job name uses default",
			jobName:     "",
			gatewayURL:  "http://pushgateway:9091",
			wantErr:     false,
			wantJobName: "marketing-etl",
		},
		{
			name:        "explicit job name is preserved",
			jobName:     "my-custom-job",
			gatewayURL:  "http://pushgateway:9091",
			wantErr:     false,
			wantJobName: "my-custom-job",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, err := NewBackend(tt.jobName, tt.gatewayURL)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NewBackend(%q, %q) error = nil, want non-nil", tt.jobName, tt.gatewayURL)
				}
				if b != nil {
					t.Fatalf("NewBackend(%q, %q) backend = %v, want nil", tt.jobName, tt.gatewayURL, b)
				}
				return
			}

			if err != nil {
				t.Fatalf("NewBackend(%q, %q) error = %v, want nil", tt.jobName, tt.gatewayURL, err)
			}
			if b.jobName != tt.wantJobName {
				t.Fatalf("backend.jobName = %q, want %q", b.jobName, tt.wantJobName)
			}
			if b.gatewayURL != tt.gatewayURL {
				t.Fatalf("backend.gatewayURL = %q, want %q", b.gatewayURL, tt.gatewayURL)
			}

			// Metric label cardinality: these calls should not panic.
			b.stageCounter.WithLabelValues("merge", "success").Add(1)
			b.stageDuration.WithLabelValues("kpi", "failure").Observe(0.5)
			b.rowCounter.WithLabelValues("written").Add(1)
		})
	}
}

func TestIncCounter(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("marketing", "http://pushgateway:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	b.IncCounter("pipeline_stage_total", 3, metrics.Labels{"stage": "load_ads", "status": "success"})
	if got := readCounterValue(t, b.stageCounter.WithLabelValues("load_ads", "success")); got != 3 {
		t.Fatalf("stage counter = %v, want 3", got)
	}

	b.IncCounter("pipeline_rows_total", 5, metrics.Labels{"kind": "skipped"})
	if got := readCounterValue(t, b.rowCounter.WithLabelValues("skipped")); got != 5 {
		t.Fatalf("row counter = %v, want 5", got)
	}

	// Unknown metric names are ignored.
	b.IncCounter("unknown_metric", 10, metrics.Labels{"foo": "bar"})
	if got := readCounterValue(t, b.stageCounter.WithLabelValues("load_ads", "success")); got != 3 {
		t.Fatalf("stage counter = %v after unknown metric, want 3", got)
	}
}

func TestObserveDuration(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("marketing", "http://pushgateway:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	b.ObserveDuration("pipeline_stage_duration_seconds", 1.5, metrics.Labels{"stage": "merge", "status": "success"})
	b.ObserveDuration("pipeline_stage_duration_seconds", 0.5, metrics.Labels{"stage": "merge", "status": "success"})
	b.ObserveDuration("something_else_seconds", 9, metrics.Labels{"stage": "merge", "status": "success"})

	count, sum := readSummaryCountSum(t, b.stageDuration, "merge", "success")
	if count != 2 {
		t.Fatalf("summary count = %d, want 2", count)
	}
	if sum != 2.0 {
		t.Fatalf("summary sum = %v, want 2.0", sum)
	}
}

func TestFlushPushesToGateway(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := NewBackend("marketing", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	b.IncCounter("pipeline_stage_total", 1, metrics.Labels{"stage": "write", "status": "success"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if gotPath != "/metrics/job/marketing" {
		t.Fatalf("push path = %q", gotPath)
	}
	if len(gotBody) == 0 {
		t.Fatalf("push body is empty")
	}
}
