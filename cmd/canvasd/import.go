package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/canvas/editor"
)

var importTitle string

var importCmd = &cobra.Command{
	Use:   "import <document-id> <file.html>",
	Short: "Store an HTML file as a local document",
	Long: `Import validates the markup with the ingest pipeline and stores it in the
local database so sessions can open it without an external content source.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		docID, path := args[0], args[1]
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		title := importTitle
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}

		m, _, cleanup, err := openManager(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		if err := m.Import(cmd.Context(), docID, title, string(raw)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n",
			okStyle.Render("imported"),
			headerStyle.Render(docID),
			idStyle.Render(fmt.Sprintf("(%d bytes)", len(raw))))
		return nil
	},
}

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs", "ls"},
	Short:   "List local documents and stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _, cleanup, err := openManager(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		docs, err := m.Store().ListDocuments(ctx)
		if err != nil {
			return err
		}
		sessions, err := m.Store().ListSessions(ctx)
		if err != nil {
			return err
		}
		stored := make(map[string]int64, len(sessions))
		for _, s := range sessions {
			stored[s.Key] = s.Size
		}

		out := cmd.OutOrStdout()
		if len(docs) == 0 {
			fmt.Fprintln(out, "No documents. Use 'canvasd import' to add one.")
			return nil
		}
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Documents (%d)", len(docs))))
		for _, d := range docs {
			line := fmt.Sprintf("  %s  %s", countStyle.Render(d.ID), d.Title)
			if size, ok := stored[editor.SessionKey(d.ID)]; ok {
				line += "  " + idStyle.Render(fmt.Sprintf("session %d bytes", size))
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importTitle, "title", "t", "", "document title (default: file name)")
}
