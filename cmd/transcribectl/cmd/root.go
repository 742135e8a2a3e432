// Package cmd implements the transcribectl command line client.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "transcribectl",
	Short: "Client for the AI Speech Transcribe service",
	Long: `transcribectl talks to a running AI Speech Transcribe service.

Commands:
  transcribe  - upload a .wav file and print the transcript
  ping        - show service status and pool size
  wakeup      - force a warm-up of the recognizer pool
  gen         - write a silent or tone .wav file for smoke tests`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", envOr("TRANSCRIBE_SERVER", "http://localhost:8080"), "Service base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "Request timeout")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func httpClient() *http.Client {
	return &http.Client{Timeout: timeout}
}

func endpoint(path string) string {
	return strings.TrimRight(serverURL, "/") + path
}

// printResponse pretty-prints a JSON body and fails on error status codes
// other than the ones the caller accepts.
func printResponse(out io.Writer, resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		fmt.Fprintln(out, strings.TrimSpace(string(body)))
	} else {
		pretty, _ := json.MarshalIndent(v, "", "  ")
		fmt.Fprintln(out, string(pretty))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}

func getAndPrint(cmd *cobra.Command, path string) error {
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, endpoint(path), nil)
	if err != nil {
		return err
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	return printResponse(cmd.OutOrStdout(), resp)
}
