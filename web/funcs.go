package web

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"time"
)

var monthAbbreviationsPtBR = [12]string{
	"jan", "fev", "mar", "abr", "mai", "jun",
	"jul", "ago", "set", "out", "nov", "dez",
}

var publicationDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	time.DateOnly,
}

func (h *Handler) funcs() template.FuncMap {
	return template.FuncMap{
		"formatDate":  formatDate,
		"loadMoreURL": loadMoreURL,
		"markdown":    h.renderMarkdown,
	}
}

// formatDate renders a publication date as "15 mar 2021".
// It returns an empty string for absent or unparseable dates.
func formatDate(date *string) string {
	if date == nil || *date == "" {
		return ""
	}

	for _, layout := range publicationDateLayouts {
		t, err := time.Parse(layout, *date)
		if err != nil {
			continue
		}

		return fmt.Sprintf("%02d %s %d", t.Day(), monthAbbreviationsPtBR[t.Month()-1], t.Year())
	}

	return ""
}

func loadMoreURL(nextPage string) string {
	return "/posts?" + url.Values{"next_page": []string{nextPage}}.Encode()
}

func (h *Handler) renderMarkdown(source string) (template.HTML, error) {
	var buf bytes.Buffer

	err := h.markdown.Convert([]byte(source), &buf)
	if err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}

	return template.HTML(buf.String()), nil //nolint:gosec
}
