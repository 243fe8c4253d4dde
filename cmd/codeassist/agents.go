package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/snow-ghost/codeassist/core"
)

func newAgentsCmd(configPath *string) *cobra.Command {
	var prompt string

	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List registered agents, or rank them for a prompt",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()

			if prompt != "" {
				fmt.Fprintln(w, "RANK\tKEY\tNAME\tSCORE")
				for i, c := range a.router.Rank(prompt) {
					fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", i+1, c.Key, c.Provider.Name(), c.Score)
				}
				return nil
			}

			fmt.Fprintln(w, "KEY\tNAME\tTRIGGER TERMS")
			for _, e := range a.registry.All() {
				terms := ""
				if tt, ok := e.Provider.(core.TriggerTermer); ok {
					terms = strings.Join(tt.TriggerTerms(), ", ")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Key, e.Provider.Name(), terms)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&prompt, "rank", "r", "", "Show the ranking for this prompt")
	return cmd
}
