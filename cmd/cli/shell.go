package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"bookfinder/internal/openlibrary"
	"bookfinder/internal/parser"
	"bookfinder/internal/query"
	"bookfinder/internal/search"
)

const shellHelp = `Type a query to search, e.g.
  title:Clean Code
  author:"Ursula K. Le Guin" earthsea
  dune messiah                  (general search)

Commands:
  more        load the next page
  open <n>    show details for result n
  reset       clear the search
  fields      list searchable fields
  help        show this help
  exit        leave the shell`

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive search shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runShell(cmd.Context())
		},
	}
}

func (a *app) runShell(ctx context.Context) error {
	ctrl := a.svc.NewController(search.WithContext(ctx), search.WithLogger(a.log), search.WithDebounce(a.cfg.Search.Debounce))
	defer ctrl.Close()
	sh := &shell{ctx: ctx, ctrl: ctrl, svc: a.svc, out: a.out}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeFields)

	history := a.cfg.CLI.HistoryFile
	if history != "" {
		if f, err := os.Open(history); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}

	fmt.Fprintln(a.out, titleStyle.Render("Bookfinder shell")+metaStyle.Render("  (help for commands)"))
	for {
		input, err := line.Prompt("bookfinder> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		if sh.handle(input) {
			break
		}
	}

	if history != "" {
		f, err := os.Create(history)
		if err != nil {
			a.log.WithError(err).Warn("shell.history not saved")
			return nil
		}
		defer f.Close()
		if _, err := line.WriteHistory(f); err != nil {
			a.log.WithError(err).Warn("shell.history not saved")
		}
	}
	return nil
}

func completeFields(line string) []string {
	var out []string
	for _, f := range query.SearchableFields() {
		name := string(f.Field) + ":"
		if strings.HasPrefix(name, line) {
			out = append(out, name)
		}
	}
	for _, c := range []string{"more", "open ", "reset", "fields", "help", "exit"} {
		if line != "" && strings.HasPrefix(c, line) {
			out = append(out, c)
		}
	}
	return out
}

// shell interprets one input line at a time against a controller.
type shell struct {
	ctx  context.Context
	ctrl *search.Controller
	svc  *search.Service
	out  io.Writer
}

// handle runs one line and reports whether the shell should exit.
func (s *shell) handle(input string) bool {
	cmd, arg, _ := strings.Cut(input, " ")
	switch strings.ToLower(cmd) {
	case "exit", "quit":
		return true
	case "help", "?":
		fmt.Fprintln(s.out, shellHelp)
	case "fields":
		for _, f := range query.SearchableFields() {
			fmt.Fprintf(s.out, "  %-10s %s\n", f.Field, metaStyle.Render(f.Placeholder))
		}
	case "more":
		s.more()
	case "reset":
		s.ctrl.Reset()
		fmt.Fprintln(s.out, noDataStyle.Render("Search cleared."))
	case "open":
		s.open(strings.TrimSpace(arg))
	default:
		s.search(input)
	}
	return false
}

func (s *shell) search(input string) {
	filters := parser.Parse(input)
	if filters.IsEmpty() {
		fmt.Fprintln(s.out, noDataStyle.Render("Nothing to search for. Type help for examples."))
		return
	}
	s.ctrl.SetFilters(filters)
	s.ctrl.Flush()
	st, err := s.ctrl.Settle(s.ctx)
	if err != nil {
		fmt.Fprintln(s.out, errorStyle.Render(err.Error()))
		return
	}
	s.print(0, st)
}

func (s *shell) more() {
	before := len(s.ctrl.Results())
	if !s.ctrl.LoadMore() {
		fmt.Fprintln(s.out, noDataStyle.Render("No more results."))
		return
	}
	st, err := s.ctrl.Settle(s.ctx)
	if err != nil {
		fmt.Fprintln(s.out, errorStyle.Render(err.Error()))
		return
	}
	if st.Page == 1 {
		// a retried first page replaced the list
		before = 0
	}
	s.print(before, st)
}

// print shows results from index from onward, then the error or summary.
func (s *shell) print(from int, st search.State) {
	if from < len(st.Results) {
		fmt.Fprint(s.out, renderBooks(from, s.svc.Books(st.Results[from:])))
	}
	if st.Err != "" {
		fmt.Fprintln(s.out, errorStyle.Render("Error: "+st.Err))
		return
	}
	fmt.Fprintln(s.out, renderSummary(len(st.Results), st.Total, st.HasMore))
}

func (s *shell) open(arg string) {
	results := s.ctrl.Results()
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(results) {
		fmt.Fprintln(s.out, errorStyle.Render(fmt.Sprintf("open takes a result number between 1 and %d", len(results))))
		return
	}
	doc := results[n-1]
	w, err := s.svc.Work(s.ctx, doc.Key)
	if err != nil {
		fmt.Fprintln(s.out, errorStyle.Render("Error: "+err.Error()))
		return
	}
	fmt.Fprint(s.out, renderMarkdown(workMarkdown(w, s.svc.CoverURL(w.CoverID(), openlibrary.CoverLarge)), s.out))
}
