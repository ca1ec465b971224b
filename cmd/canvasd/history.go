package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history <document-id>",
	Short: "Show the command history of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		m, _, cleanup, err := openManager(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		s, err := m.Open(ctx, args[0])
		if err != nil {
			return err
		}
		st := s.Status().Bus
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("History of %s (%d/%d)", args[0], st.CurrentIndex+1, st.HistoryLen)))
		for _, e := range s.History() {
			ts := time.UnixMilli(e.Timestamp).Format("2006-01-02 15:04:05")
			line := fmt.Sprintf("  %3d  %-10s %-9s %s", e.Index, e.Type, source(string(e.Source)), e.Description)
			if len(e.Targets) > 0 {
				line += "  " + idStyle.Render(strings.Join(e.Targets, ","))
			}
			line += "  " + idStyle.Render(ts)
			if !e.Applied {
				line = redoStyle.Render(line)
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}
