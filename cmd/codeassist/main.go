package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const rootLongDesc = `codeassist is a conversational coding assistant.

Each prompt is scored against the registered agents (code generation, bug
fixing, explanation, memory) and dispatched to the best match. Prompts no
agent handles are answered by direct text generation.`

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "codeassist",
		Short:         "Conversational coding assistant",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")

	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newAskCmd(&configPath))
	cmd.AddCommand(newAgentsCmd(&configPath))
	cmd.AddCommand(newHealthcheckCmd())
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
