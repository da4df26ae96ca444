// Command gatewayd runs the MCP gateway: either the stateful session daemon
// (spec §4.8) or the HTTP call surface backed by gwruntime.Runtime.
// Grounded on the teacher's cmd/mcpproxy cobra root, trimmed to the
// gateway's two run modes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "gatewayd",
		Short: "MCP gateway daemon",
	}
	root.AddCommand(newDaemonCmd())
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
