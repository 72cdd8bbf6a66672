package observability

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// UpstreamMetricsClient fetches the headscale metrics exposition.
type UpstreamMetricsClient interface {
	FetchMetrics(ctx context.Context) ([]byte, error)
}

// HTTPMetricsSource scrapes a Prometheus text endpoint.
type HTTPMetricsSource struct {
	URL  string
	HTTP *http.Client
}

func (s HTTPMetricsSource) FetchMetrics(ctx context.Context) ([]byte, error) {
	hc := s.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	res, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", res.StatusCode)
	}
	return io.ReadAll(res.Body)
}

// NewCombinedMetricsHandler returns an http.Handler that writes Prometheus text metrics
// for the dashboard gatherer followed by headscale metrics if available.
// Upstream families whose names clash with local ones are skipped.
func NewCombinedMetricsHandler(g prom.Gatherer, upstream UpstreamMetricsClient) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		format := expfmt.NewFormat(expfmt.TypeTextPlain)
		w.Header().Set("Content-Type", string(format))
		enc := expfmt.NewEncoder(w, format)

		mfs, err := g.Gather()
		if err != nil {
			_, _ = w.Write([]byte("# gather error: " + err.Error() + "\n"))
		}
		local := make(map[string]struct{}, len(mfs))
		for _, mf := range mfs {
			local[mf.GetName()] = struct{}{}
			_ = enc.Encode(mf)
		}

		if upstream == nil {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		data, err := upstream.FetchMetrics(ctx)
		if err != nil {
			_, _ = w.Write([]byte("# headscale metrics unavailable: " + err.Error() + "\n"))
			return
		}
		families, err := parseText(data)
		if err != nil {
			_, _ = w.Write([]byte("# headscale metrics unparsable: " + err.Error() + "\n"))
			return
		}
		for _, mf := range families {
			if _, clash := local[mf.GetName()]; clash {
				continue
			}
			_ = enc.Encode(mf)
		}
	})
}

func parseText(data []byte) ([]*dto.MetricFamily, error) {
	var p expfmt.TextParser
	byName, err := p.TextToMetricFamilies(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]*dto.MetricFamily, 0, len(names))
	for _, n := range names {
		out = append(out, byName[n])
	}
	return out, nil
}
