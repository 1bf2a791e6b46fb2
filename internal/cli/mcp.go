package cli

import (
	"github.com/spf13/cobra"
	"github.com/srstomp/ohno/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	Long: `Run the Model Context Protocol server, exposing the engine as tools
(create_task, next_task, start_task, complete_task, set_blocker,
conclude_spike, get_session_context, get_alerts) for AI coding
assistants.

The server speaks MCP over stdin/stdout and runs until the client
disconnects.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		server := mcp.NewServer(Engine, Tasks, IDGen, Graph, Sessions, AlertEngine, ServerVersion)
		return server.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
