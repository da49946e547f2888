package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sifan077/PowerMark/config"
)

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "powermark_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), "powermark_test_total 1") {
		t.Errorf("metrics body missing counter:\n%s", body)
	}
}

func TestNewServer_DefaultPort(t *testing.T) {
	if got := NewServer(config.PrometheusConfig{}).Addr; got != ":9090" {
		t.Errorf("Addr = %q", got)
	}
}
