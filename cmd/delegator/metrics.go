package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/delegator/internal/delegation"
	"github.com/ShayCichocki/delegator/internal/report"
)

var metricsURL string

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show delegation metrics from a running server",
	Long: `Fetch the delegation metrics snapshot from a server started with
"delegator serve" and print it.

Metrics live in the serving process only; nothing is persisted.`,
	Args: cobra.NoArgs,
	RunE: runMetrics,
}

func init() {
	metricsCmd.Flags().StringVar(&metricsURL, "url", "", "Server base URL (default http://<server.addr>)")
}

func runMetrics(cmd *cobra.Command, args []string) error {
	base := metricsURL
	if base == "" {
		base = "http://" + cfg.Server.Addr
	}
	m, err := fetchMetrics(cmd, strings.TrimRight(base, "/")+"/v1/metrics/delegation")
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), m, func(w io.Writer) { report.Metrics(w, m) })
}

func fetchMetrics(cmd *cobra.Command, url string) (delegation.Metrics, error) {
	var m delegation.Metrics
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return m, err
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return m, fmt.Errorf("fetch metrics: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return m, fmt.Errorf("fetch metrics: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return m, fmt.Errorf("decode metrics: %w", err)
	}
	return m, nil
}
