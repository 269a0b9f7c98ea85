// chatmeshctl - command line client for a chatmeshd server
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	addr    string
	ownerID int64
)

func main() {
	root := &cobra.Command{
		Use:           "chatmeshctl",
		Short:         "Interact with a chatmeshd server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&addr, "addr", "http://localhost:8080", "chatmeshd base URL")

	send := &cobra.Command{
		Use:   "send <session-key> <text>",
		Short: "Send a message to a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{"text": args[1]}
			if cmd.Flags().Changed("owner") {
				payload["owner_id"] = ownerID
			}
			return post(fmt.Sprintf("%s/sessions/%s/messages", addr, args[0]), payload)
		},
	}
	send.Flags().Int64Var(&ownerID, "owner", 0, "owner id to attach to the session")

	history := &cobra.Command{
		Use:   "history <session-key>",
		Short: "Print the session transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return get(fmt.Sprintf("%s/sessions/%s/history", addr, args[0]))
		},
	}

	summary := &cobra.Command{
		Use:   "summary <session-key>",
		Short: "Print the session summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return get(fmt.Sprintf("%s/sessions/%s/summary", addr, args[0]))
		},
	}

	complete := &cobra.Command{
		Use:   "complete <session-key>",
		Short: "Request session completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return post(fmt.Sprintf("%s/sessions/%s/complete", addr, args[0]), map[string]any{})
		},
	}

	newSession := &cobra.Command{
		Use:   "new",
		Short: "Create a fresh session key",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return post(fmt.Sprintf("%s/sessions", addr), map[string]any{})
		},
	}

	root.AddCommand(newSession, send, history, summary, complete)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

func post(url string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func get(url string) error {
	resp, err := httpClient.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, raw, "", "  ") == nil {
		raw = pretty.Bytes()
	}
	fmt.Println(string(raw))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}
