package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kbukum/callguard/health"
	"github.com/kbukum/callguard/resilience"
)

// Status is what the status command reports about a running probe.
type Status struct {
	Health  health.Response            `json:"health"`
	Metrics *resilience.MetricsSummary `json:"metrics,omitempty"`
}

func newStatusCmd() *cobra.Command {
	var addr string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query the health endpoint of a running probe",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			st, err := FetchStatus(ctx, http.DefaultClient, baseURL(addr))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			_, err = fmt.Fprint(out, st.Text())
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8090", "health server address")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func baseURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimSuffix(addr, "/")
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

// FetchStatus reads /health and /metrics/summary concurrently. A 503 from
// /health is a valid open-circuit report and a 404 from /metrics/summary
// means collection is disabled; neither is an error.
func FetchStatus(ctx context.Context, client *http.Client, base string) (*Status, error) {
	st := &Status{}
	var summary resilience.MetricsSummary
	var metricsCode int

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		code, err := getJSON(ctx, client, base+health.PathHealth, &st.Health)
		if err != nil {
			return err
		}
		if code != http.StatusOK && code != http.StatusServiceUnavailable {
			return fmt.Errorf("%s: unexpected status %d", health.PathHealth, code)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		metricsCode, err = getJSON(ctx, client, base+health.PathMetrics, &summary)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if metricsCode == http.StatusOK {
		st.Metrics = &summary
	}
	return st, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, into any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusServiceUnavailable {
		if err := json.Unmarshal(body, into); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding %s: %w", url, err)
		}
	}
	return resp.StatusCode, nil
}

// Text renders the status as a table.
func (s *Status) Text() string {
	h := s.Health
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("%s %s: %s", h.Name, h.Version, h.Status))
	t.AppendHeader(table.Row{"Part", "State", "Notes"})

	circuit := fmt.Sprintf("%d failures", h.CircuitBreaker.Failures)
	if h.CircuitBreaker.TimeUntilRetryMs > 0 {
		circuit += fmt.Sprintf(", retry in %dms", h.CircuitBreaker.TimeUntilRetryMs)
	}
	t.AppendRow(table.Row{"circuit", h.CircuitBreaker.State.String(), circuit})

	if h.RateLimiter.Enabled {
		t.AppendRow(table.Row{"limiter", fmt.Sprintf("%.1f/%d tokens", h.RateLimiter.AvailableTokens, h.RateLimiter.BurstSize),
			fmt.Sprintf("%g rps", h.RateLimiter.RequestsPerSecond)})
	} else {
		t.AppendRow(table.Row{"limiter", "disabled", ""})
	}
	if b := h.Bulkhead; b != nil {
		t.AppendRow(table.Row{"bulkhead", fmt.Sprintf("%d/%d in use", b.InUse, b.MaxConcurrent),
			fmt.Sprintf("%d rejected", b.Rejected)})
	}
	if m := s.Metrics; m != nil {
		t.AppendFooter(table.Row{
			"requests",
			fmt.Sprintf("%d (%.1f%% ok)", m.TotalRequests, m.SuccessRate),
			fmt.Sprintf("p50 %.1fms p95 %.1fms p99 %.1fms", m.P50Latency, m.P95Latency, m.P99Latency),
		})
	}
	return t.Render() + "\n"
}
