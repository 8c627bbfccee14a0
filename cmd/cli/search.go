package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"bookfinder/internal/parser"
	"bookfinder/internal/query"
	"bookfinder/internal/search"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		field      string
		page       int
		all        bool
		maxResults int
		asJSON     bool
	)
	c := &cobra.Command{
		Use:   "search <query...>",
		Short: "Search the catalog",
		Long: `Search the catalog and print result cards.

Without --field the query uses the shell syntax, e.g.
  bookfinder search title:Clean Code
  bookfinder search author:"Ursula K. Le Guin" earthsea`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.Join(args, " ")
			var filters query.FilterSet
			if field != "" {
				f, ok := query.ParseField(field)
				if !ok {
					return fmt.Errorf("unknown field %q", field)
				}
				filters = query.One(f, input)
			} else {
				filters = parser.Parse(input)
			}
			if filters.IsEmpty() {
				return fmt.Errorf("empty query")
			}

			if all {
				return a.searchAll(cmd.Context(), filters, maxResults, asJSON)
			}
			res, err := a.svc.Search(cmd.Context(), filters, page)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(a, res)
			}
			start := (res.Page - 1) * a.svc.PageSize()
			fmt.Fprint(a.out, renderBooks(start, res.Books))
			hasMore := res.Total == nil || start+len(res.Books) < *res.Total
			fmt.Fprintln(a.out, renderSummary(start+len(res.Books), res.Total, hasMore))
			return nil
		},
	}
	c.Flags().StringVarP(&field, "field", "f", "", "search a single field (q, title, author, isbn, publisher, subject, person, place)")
	c.Flags().IntVarP(&page, "page", "p", 1, "page to fetch")
	c.Flags().BoolVar(&all, "all", false, "keep loading pages until the end of results")
	c.Flags().IntVar(&maxResults, "max", 150, "with --all, stop after this many results")
	c.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of cards")
	return c
}

// searchAll drives a controller through LoadMore until the results run out.
func (a *app) searchAll(ctx context.Context, filters query.FilterSet, maxResults int, asJSON bool) error {
	ctrl := a.svc.NewController(search.WithContext(ctx), search.WithLogger(a.log))
	defer ctrl.Close()

	ctrl.SetFilters(filters)
	ctrl.Flush()
	st, err := ctrl.Settle(ctx)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	for st.Err == "" && st.HasMore && len(st.Results) < maxResults {
		if bar == nil {
			limit := maxResults
			if st.Total != nil && *st.Total < limit {
				limit = *st.Total
			}
			bar = progressbar.NewOptions(limit,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription("loading"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			_ = bar.Set(len(st.Results))
		}
		before := len(st.Results)
		if !ctrl.LoadMore() {
			break
		}
		if st, err = ctrl.Settle(ctx); err != nil {
			return err
		}
		_ = bar.Set(min(len(st.Results), bar.GetMax()))
		if len(st.Results) == before {
			break
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	if st.Err != "" {
		return fmt.Errorf("%s (after %d results)", st.Err, len(st.Results))
	}

	books := a.svc.Books(st.Results)
	if len(books) > maxResults {
		books = books[:maxResults]
	}
	if asJSON {
		return printJSON(a, search.SearchResult{Page: st.Page, Total: st.Total, Books: books})
	}
	fmt.Fprint(a.out, renderBooks(0, books))
	fmt.Fprintln(a.out, renderSummary(len(books), st.Total, false))
	return nil
}

func printJSON(a *app, v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
