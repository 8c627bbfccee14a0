package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"bookfinder/internal/openlibrary"
	"bookfinder/internal/search"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	indexStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Margin(0, 0, 0, 2)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	summaryStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("32")).
			Margin(1, 0, 1, 0)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0)
)

// renderBook draws one numbered result card.
func renderBook(n int, b search.BookDTO) string {
	lines := []string{
		indexStyle.Render(fmt.Sprintf("%d.", n)) + " " + titleStyle.Render(b.Title),
		b.FullAuthors,
	}
	var meta []string
	if b.FirstPublishYear != nil {
		meta = append(meta, fmt.Sprintf("first published %d", *b.FirstPublishYear))
	}
	if len(b.Publishers) > 0 {
		meta = append(meta, strings.Join(firstN(b.Publishers, 2), ", "))
	}
	if len(b.LanguageNames) > 0 {
		meta = append(meta, strings.Join(firstN(b.LanguageNames, 3), ", "))
	}
	if len(meta) > 0 {
		lines = append(lines, metaStyle.Render(strings.Join(meta, " · ")))
	}
	if b.WorkID != "" {
		lines = append(lines, metaStyle.Render("id "+b.WorkID))
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

// renderBooks draws cards numbered from start+1.
func renderBooks(start int, books []search.BookDTO) string {
	var sb strings.Builder
	for i, b := range books {
		sb.WriteString(renderBook(start+i+1, b))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func renderSummary(shown int, total *int, hasMore bool) string {
	switch {
	case shown == 0:
		return noDataStyle.Render("No results.")
	case total == nil:
		return summaryStyle.Render(fmt.Sprintf("%d results shown", shown))
	case hasMore:
		return summaryStyle.Render(fmt.Sprintf("%d of %d shown. Type \"more\" for the next page.", shown, *total))
	default:
		return summaryStyle.Render(fmt.Sprintf("%d of %d shown. End of results.", shown, *total))
	}
}

// workMarkdown renders a work as markdown for glamour.
func workMarkdown(w *openlibrary.Work, coverURL string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", w.Title)
	if w.Subtitle != "" {
		fmt.Fprintf(&sb, "_%s_\n\n", w.Subtitle)
	}
	if w.FirstPublishDate != "" {
		fmt.Fprintf(&sb, "**First published:** %s\n\n", w.FirstPublishDate)
	}
	if w.Description != "" {
		sb.WriteString(w.Description)
		sb.WriteString("\n\n")
	} else {
		sb.WriteString("_No description._\n\n")
	}
	section := func(name string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&sb, "## %s\n\n%s\n\n", name, strings.Join(firstN(items, 12), ", "))
	}
	section("Subjects", w.Subjects)
	section("People", w.SubjectPeople)
	section("Places", w.SubjectPlaces)
	section("Times", w.SubjectTimes)
	if coverURL != "" {
		fmt.Fprintf(&sb, "Cover: %s\n", coverURL)
	}
	return sb.String()
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
