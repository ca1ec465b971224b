// CLAUDE:SUMMARY Entry point for canvasd: cobra CLI over the canvas editor (serve, mcp, import, ingest, history, undo, redo).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}
