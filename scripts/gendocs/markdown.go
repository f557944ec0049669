package main

import (
	"bytes"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/weslink/internal/cli/output"
)

// MarkdownWriter accumulates a markdown page.
type MarkdownWriter struct {
	buf bytes.Buffer
}

// NewMarkdownWriter creates an empty page.
func NewMarkdownWriter() *MarkdownWriter {
	return &MarkdownWriter{}
}

// Frontmatter writes the page's YAML frontmatter.
func (w *MarkdownWriter) Frontmatter(title, description string) {
	w.buf.WriteString("---\ntitle: " + title + "\ndescription: " + quoteYAML(description) + "\n---\n\n")
}

// GeneratedMarker notes that the page must not be edited by hand.
func (w *MarkdownWriter) GeneratedMarker() {
	w.buf.WriteString("<!-- Generated by scripts/gendocs. DO NOT EDIT. -->\n\n")
}

func (w *MarkdownWriter) Header(level int, text string) {
	w.buf.WriteString(output.FormatHeader(level, text) + "\n\n")
}

func (w *MarkdownWriter) Paragraph(text string) {
	w.buf.WriteString(strings.TrimSpace(text) + "\n\n")
}

func (w *MarkdownWriter) CodeBlock(lang, code string) {
	w.buf.WriteString(output.FormatCodeBlock(lang, code) + "\n\n")
}

func (w *MarkdownWriter) BulletList(items []string) {
	for _, item := range items {
		w.buf.WriteString("- " + item + "\n")
	}
	w.buf.WriteString("\n")
}

// Table writes a markdown table. Nothing is written without rows.
func (w *MarkdownWriter) Table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(&w.buf)
	hr := make(table.Row, len(headers))
	for i, h := range headers {
		hr[i] = h
	}
	t.AppendHeader(hr)
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, c := range row {
			tr[i] = c
		}
		t.AppendRow(tr)
	}
	t.RenderMarkdown()
	w.buf.WriteString("\n")
}

func (w *MarkdownWriter) Bytes() []byte {
	return w.buf.Bytes()
}

// InlineCode wraps s in backticks.
func InlineCode(s string) string {
	return "`" + s + "`"
}

// cleanDescription makes flag and command text fit a table cell.
func cleanDescription(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}

func quoteYAML(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
