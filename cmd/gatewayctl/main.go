// Command gatewayctl is the CLI client for the stateful session daemon
// (spec §4.8 "Client"): open/execute/list/stop sessions over the daemon's
// IPC endpoint, spawning it on demand. Grounded on the teacher's
// cmd/mcpproxy CLI command structure and internal/cli/output formatting.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcp-gateway/toolkit/internal/cli/output"
	"github.com/mcp-gateway/toolkit/internal/daemon"
	"github.com/mcp-gateway/toolkit/internal/daemonclient"
	"github.com/mcp-gateway/toolkit/internal/session"
)

var outputFormat string

func main() {
	root := &cobra.Command{Use: "gatewayctl", Short: "MCP gateway session CLI"}
	root.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table, json, yaml")

	root.AddCommand(newSessionCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() *daemonclient.Client {
	dir, err := daemon.SessionsDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, "resolve sessions dir:", err)
		os.Exit(1)
	}
	return daemonclient.New(dir, nil)
}

func render(v any) error {
	f, err := output.NewFormatter(outputFormat)
	if err != nil {
		return err
	}
	s, err := f.Format(v)
	if err != nil {
		return err
	}
	fmt.Println(s)
	return nil
}

func newSessionCmd() *cobra.Command {
	sessionCmd := &cobra.Command{Use: "session", Short: "manage upstream sessions via the daemon"}
	sessionCmd.AddCommand(newOpenCmd(), newExecCmd(), newListCmd(), newStopCmd(), newPingCmd())
	return sessionCmd
}

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "check the daemon's health",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := newClient().Call(cmd.Context(), daemon.MethodHealthPing, nil, daemonclient.CallOptions{})
			if err != nil {
				return err
			}
			var result daemon.HealthPingResult
			if err := json.Unmarshal(raw, &result); err != nil {
				return err
			}
			return render(result)
		},
	}
}

func newOpenCmd() *cobra.Command {
	var command, url string
	var args []string
	cmd := &cobra.Command{
		Use:   "open <name>",
		Short: "open (or reuse) a session for an upstream server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			spec := session.ServerSpec{Name: cmdArgs[0], Command: command, Args: args, URL: url}
			raw, err := newClient().Call(cmd.Context(), daemon.MethodSessionOpen,
				daemon.SessionOpenParams{Spec: spec}, daemonclient.CallOptions{})
			if err != nil {
				return err
			}
			var result daemon.OpenResult
			if err := json.Unmarshal(raw, &result); err != nil {
				return err
			}
			return render(result)
		},
	}
	cmd.Flags().StringVar(&command, "command", "", "stdio command to launch")
	cmd.Flags().StringSliceVar(&args, "args", nil, "stdio command arguments")
	cmd.Flags().StringVar(&url, "url", "", "remote server URL")
	return cmd
}

func newExecCmd() *cobra.Command {
	var method, paramsJSON string
	cmd := &cobra.Command{
		Use:   "exec <name>",
		Short: "invoke a method on an open session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			params := daemon.SessionExecuteParams{Name: cmdArgs[0], Method: method}
			if paramsJSON != "" {
				params.Params = json.RawMessage(paramsJSON)
			}
			raw, err := newClient().Call(cmd.Context(), daemon.MethodSessionExecute, params, daemonclient.CallOptions{})
			if err != nil {
				return err
			}
			var result any
			if err := json.Unmarshal(raw, &result); err != nil {
				return err
			}
			return render(result)
		},
	}
	cmd.Flags().StringVar(&method, "method", "", "upstream method to call")
	cmd.Flags().StringVar(&paramsJSON, "params", "", "JSON-encoded params")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list tracked sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := newClient().Call(cmd.Context(), daemon.MethodSessionList, nil, daemonclient.CallOptions{})
			if err != nil {
				return err
			}
			var entries []daemon.SessionRegistryEntry
			if err := json.Unmarshal(raw, &entries); err != nil {
				return err
			}
			return render(entries)
		},
	}
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <name>",
		Short: "stop a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := newClient().Call(cmd.Context(), daemon.MethodSessionStop,
				daemon.SessionStopParams{Name: args[0]}, daemonclient.CallOptions{})
			if err != nil {
				return err
			}
			fmt.Println("stopped", args[0])
			return nil
		},
	}
}
