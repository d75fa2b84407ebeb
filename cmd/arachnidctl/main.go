// Command arachnidctl is a thin HTTP client for arachnidd: submit a task,
// inspect running webs, and list an agent DAG, grounded on
// o9nn-echo.go/cmd/echo.go's cobra subcommand shape (one RunE per verb, a
// shared client talking JSON over HTTP to a long-running daemon).
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var baseURL string

func main() {
	root := &cobra.Command{
		Use:   "arachnidctl",
		Short: "Control the arachnid coordination runtime",
	}
	root.PersistentFlags().StringVar(&baseURL, "addr", envOr("ARACHNIDCTL_ADDR", "http://localhost:8080"), "arachnidd base URL")

	root.AddCommand(newSubmitCmd(), newListCmd(), newGetCmd(), newAgentsCmd(), newHealthCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newSubmitCmd() *cobra.Command {
	var capability string
	cmd := &cobra.Command{
		Use:   "submit TASK",
		Short: "Submit a new task, spawning a root agent and its web",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := args[0]
			for _, extra := range args[1:] {
				task += " " + extra
			}
			body := map[string]string{"task": task, "capability": capability}
			var resp map[string]string
			if err := postJSON(cmd.Context(), "/v1/webs/", body, &resp); err != nil {
				return err
			}
			fmt.Printf("web submitted: %s\n", resp["web_id"])
			return nil
		},
	}
	cmd.Flags().StringVar(&capability, "capability", "", "root agent capability tag (default: generic)")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all running webs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var webs []webView
			if err := getJSON(cmd.Context(), "/v1/webs/", &webs); err != nil {
				return err
			}
			if len(webs) == 0 {
				fmt.Println("no running webs")
				return nil
			}
			for _, w := range webs {
				fmt.Printf("%s  %-10s  %s\n", w.ID, w.State, w.Task)
			}
			return nil
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get WEB_ID",
		Short: "Show details of a single web",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var w webView
			if err := getJSON(cmd.Context(), "/v1/webs/"+args[0], &w); err != nil {
				return err
			}
			fmt.Printf("id:        %s\n", w.ID)
			fmt.Printf("task:      %s\n", w.Task)
			fmt.Printf("state:     %s\n", w.State)
			fmt.Printf("root:      %s\n", w.RootAgentID)
			fmt.Printf("created:   %s\n", w.CreatedAt.Format(time.RFC3339))
			fmt.Printf("tick_seq:  %d\n", w.TickSeq)
			return nil
		},
	}
}

func newAgentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents WEB_ID",
		Short: "List the agent DAG for a web",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var agents []agentView
			if err := getJSON(cmd.Context(), "/v1/webs/"+args[0]+"/agents", &agents); err != nil {
				return err
			}
			if len(agents) == 0 {
				fmt.Println("no agents")
				return nil
			}
			for _, a := range agents {
				fmt.Printf("%s  parent=%-36s  state=%-11s  health=%.2f  cap=%-12s  %s\n",
					a.ID, orDash(a.ParentID), a.State, a.Health, a.Capability, a.Purpose)
			}
			return nil
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that arachnidd is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status map[string]string
			if err := getJSON(cmd.Context(), "/healthz", &status); err != nil {
				return err
			}
			fmt.Println("status:", status["status"])
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

type webView struct {
	ID          string    `json:"ID"`
	RootAgentID string    `json:"RootAgentID"`
	Task        string    `json:"Task"`
	State       string    `json:"State"`
	CreatedAt   time.Time `json:"CreatedAt"`
	TickSeq     uint64    `json:"TickSeq"`
}

type agentView struct {
	ID         string  `json:"ID"`
	ParentID   string  `json:"ParentID"`
	Purpose    string  `json:"Purpose"`
	State      string  `json:"State"`
	Health     float64 `json:"Health"`
	Capability string  `json:"Capability"`
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

func getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("arachnidd not responding at %s: %w", baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func postJSON(ctx context.Context, path string, body, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("arachnidd not responding at %s: %w", baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body["error"] != "" {
		return fmt.Errorf("%s: %s", resp.Status, body["error"])
	}
	return fmt.Errorf("request failed: %s", resp.Status)
}
