package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/canvas/editor"
)

var undoCmd = &cobra.Command{
	Use:   "undo <document-id>",
	Short: "Undo the last command of a stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return step(cmd, args[0], "undo", (*editor.Session).Undo)
	},
}

var redoCmd = &cobra.Command{
	Use:   "redo <document-id>",
	Short: "Redo the next command of a stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return step(cmd, args[0], "redo", (*editor.Session).Redo)
	},
}

// step opens the session, moves its history cursor and saves it back.
func step(cmd *cobra.Command, docID, verb string, move func(*editor.Session, context.Context) error) error {
	ctx := cmd.Context()
	m, _, cleanup, err := openManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := m.Open(ctx, docID)
	if err != nil {
		return err
	}
	if err := move(s, ctx); err != nil {
		return fmt.Errorf("%s %s: %w", verb, docID, err)
	}
	if err := s.Save(ctx); err != nil {
		return err
	}
	st := s.Status().Bus
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n",
		okStyle.Render(verb),
		headerStyle.Render(docID),
		idStyle.Render(fmt.Sprintf("at %d/%d, %d elements", st.CurrentIndex+1, st.HistoryLen, st.Elements)))
	return nil
}
