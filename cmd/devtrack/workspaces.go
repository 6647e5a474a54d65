package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"devtrack/internal/workspace"
)

func workspacesCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "workspaces",
		Short: "List every workspace with its member count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := connect(v)
			if err != nil {
				return err
			}
			defer db.Close()

			manager := workspace.NewManager(workspace.NewDatastore(db.DB))
			summaries, err := manager.ListWithMemberCounts(cmd.Context())
			if err != nil {
				return err
			}

			printWorkspaces(cmd.OutOrStdout(), summaries)
			return nil
		},
	}
}

func printWorkspaces(w io.Writer, summaries []*workspace.Summary) {
	fmt.Fprintf(w, "Found %d workspaces:\n", len(summaries))
	for _, s := range summaries {
		fmt.Fprintf(w, "- [%s] (ID: %s) | Members: %d\n", s.Name, s.ID, s.MemberCount)
	}
}
