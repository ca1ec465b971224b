package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/canvas/editor"
	"github.com/hazyhaar/canvas/scene"
)

var ingestFresh bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <document-id>",
	Short: "Open a document session and list its elements",
	Long: `Ingest fetches the document from the configured content source, mounts it
on the surface and hydrates the element store. When a stored session exists
it is restored instead, unless --fresh discards it first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		docID := args[0]
		ctx := cmd.Context()

		m, _, cleanup, err := openManager(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		if ingestFresh {
			if err := m.Store().DeleteSession(ctx, editor.SessionKey(docID)); err != nil {
				return err
			}
		}
		s, err := m.Open(ctx, docID)
		if err != nil {
			return err
		}

		st := s.Status()
		out := cmd.OutOrStdout()
		state := "hydrated"
		if st.Restored {
			state = "restored"
		}
		fmt.Fprintf(out, "%s %s\n", headerStyle.Render(docID), idStyle.Render(state))
		for _, el := range s.Elements() {
			fmt.Fprintln(out, formatElement(el))
		}
		fmt.Fprintf(out, "%s elements, %s history entries\n",
			countStyle.Render(fmt.Sprint(st.Bus.Elements)),
			countStyle.Render(fmt.Sprint(st.Bus.HistoryLen)))
		for _, w := range st.Warnings {
			fmt.Fprintln(out, errorStyle.Render("warning: ")+w)
		}
		return nil
	},
}

func formatElement(el scene.Element) string {
	line := fmt.Sprintf("  %-8s %-8s %s", el.Type, el.Mode, el.ID)
	if el.StableID != "" {
		line += "  " + idStyle.Render(el.StableID)
	}
	if el.Mode == scene.ModeAbsolute {
		if t, ok := el.TransformAt(scene.Desktop); ok {
			line += idStyle.Render(fmt.Sprintf("  @%g,%g %gx%g", t.Left, t.Top, t.Width, t.Height))
		}
	}
	return line
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestFresh, "fresh", false, "discard the stored session before opening")
}
