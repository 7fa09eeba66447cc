// Package report renders selected branches for humans and machines.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/joestump/refselect/internal/branches"
	"github.com/joestump/refselect/internal/material"
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// Formats lists the supported output formats.
func Formats() []string {
	return []string{FormatJSON, FormatTable, FormatMarkdown, FormatHTML}
}

var header = table.Row{"REF", "BRANCH", "SANITIZED", "URL"}

// Render writes contexts to w in the given format.
func Render(w io.Writer, format string, contexts []branches.BranchContext) error {
	if contexts == nil {
		contexts = []branches.BranchContext{}
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(contexts)
	case FormatTable:
		_, err := fmt.Fprintln(w, newTable(contexts).Render())
		return err
	case FormatMarkdown:
		_, err := fmt.Fprintln(w, newTable(contexts).RenderMarkdown())
		return err
	case FormatHTML:
		return renderHTML(w, contexts)
	default:
		return fmt.Errorf("unknown output format %q (want one of %s)", format, strings.Join(Formats(), ", "))
	}
}

func newTable(contexts []branches.BranchContext) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(header)
	for _, c := range contexts {
		t.AppendRow(table.Row{c.FullRefName, c.BranchName, c.SanitizedBranchName, repoURL(c.Repo)})
	}
	return t
}

func renderHTML(w io.Writer, contexts []branches.BranchContext) error {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Table),
	)
	var buf bytes.Buffer
	if err := md.Convert([]byte(newTable(contexts).RenderMarkdown()), &buf); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// repoURL extracts the clone URL from the descriptor kinds this module
// produces.
func repoURL(repo any) string {
	switch r := repo.(type) {
	case material.GitMaterial:
		return r.URL
	case *material.GitMaterial:
		if r != nil {
			return r.URL
		}
	case map[string]any:
		if u, ok := r["url"].(string); ok {
			return u
		}
	}
	return ""
}
