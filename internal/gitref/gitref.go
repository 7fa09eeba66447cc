// Package gitref parses remote reference advertisements, the line-oriented
// output of `git ls-remote`, into named references.
package gitref

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// refLineRe matches "<hex id><whitespace>refs/...". The hex run is the
// object identifier and everything from "refs/" to end of line is the name.
// The name never contains a line terminator.
var refLineRe = regexp.MustCompile(`^([0-9a-fA-F]+)[ \t\n\x0B\f\r]+(refs/[^\n\r\x{85}\x{2028}\x{2029}]+)$`)

// lineTerminators are the sequences that may end a line, longest first.
var lineTerminators = []string{"\r\n", "\n", "\r", "\u0085", "\u2028", "\u2029"}

// TrimLineTerminator removes at most one trailing line terminator from s.
func TrimLineTerminator(s string) string {
	for _, t := range lineTerminators {
		if strings.HasSuffix(s, t) {
			return s[:len(s)-len(t)]
		}
	}
	return s
}

// NamedReference is one entry of a remote reference advertisement.
type NamedReference struct {
	Name string `json:"name"` // full reference path, e.g. refs/heads/main
	ID   string `json:"id"`   // object identifier as advertised (hex, any case)
}

// Parse converts advertisement lines into named references. Lines that do
// not have the "<hex> refs/..." shape (blank lines, informational output,
// peeled HEAD entries and the like) are skipped. Input order and duplicates
// are preserved.
func Parse(lines []string) []NamedReference {
	refs := make([]NamedReference, 0, len(lines))
	for _, line := range lines {
		if ref, ok := parseLine(line); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

// ParseText splits raw advertisement output on LF or CRLF and parses it.
func ParseText(text string) []NamedReference {
	if text == "" {
		return []NamedReference{}
	}
	return Parse(strings.Split(text, "\n"))
}

// ParseReader parses an advertisement streamed from r. Lines may be of any
// length. The only error it returns is one from reading r.
func ParseReader(r io.Reader) ([]NamedReference, error) {
	refs := []NamedReference{}
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if ref, ok := parseLine(line); ok {
				refs = append(refs, ref)
			}
		}
		if err == io.EOF {
			return refs, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Names returns the full reference names of refs, in order.
func Names(refs []NamedReference) []string {
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.Name
	}
	return names
}

// parseLine matches a single line, ignoring one trailing line terminator.
func parseLine(line string) (NamedReference, bool) {
	m := refLineRe.FindStringSubmatch(TrimLineTerminator(line))
	if m == nil {
		return NamedReference{}, false
	}
	return NamedReference{Name: m[2], ID: m[1]}, true
}
