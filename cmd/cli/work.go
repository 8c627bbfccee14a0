package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"bookfinder/internal/openlibrary"
)

func newWorkCmd(a *app) *cobra.Command {
	var raw bool
	c := &cobra.Command{
		Use:   "work <id>",
		Short: "Show one work (e.g. OL45883W)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.svc.Work(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			md := workMarkdown(w, a.svc.CoverURL(w.CoverID(), openlibrary.CoverLarge))
			if raw {
				fmt.Fprint(a.out, md)
				return nil
			}
			fmt.Fprint(a.out, renderMarkdown(md, a.out))
			return nil
		},
	}
	c.Flags().BoolVar(&raw, "raw", false, "print markdown without rendering")
	return c
}

// renderMarkdown uses glamour when out is a terminal and returns md unchanged otherwise.
func renderMarkdown(md string, out io.Writer) string {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return md
	}
	rendered, err := glamour.Render(md, "dark")
	if err != nil {
		return md
	}
	return rendered
}
