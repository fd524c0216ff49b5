// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

package vault

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Finding is one structural problem in a vault document.
type Finding struct {
	// Line is the 1-based source line, 0 when unknown.
	Line int

	// Message describes the problem.
	Message string
}

// inspectParserInstance is initialized once and reused. The parser
// configuration never changes and the goldmark Parser is safe to
// share; actual parsing creates per-call state via Parse(reader).
var (
	inspectParserInstance goldmark.Markdown
	inspectParserOnce     sync.Once
)

func inspectParser() goldmark.Markdown {
	inspectParserOnce.Do(func() {
		inspectParserInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		)
	})
	return inspectParserInstance
}

var (
	clockLead = regexp.MustCompile(`^\d{1,2}:\d{2}\s`)
	dateOnly  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Inspect parses a vault document and reports structural problems:
// a timeline document that does not open with its configured header,
// list items whose text does not start with a clock time, and topic
// date blocks out of newest-first order. An empty finding list means
// the document is well formed. Header conformance is checked for
// timeline documents only; long-lived topic files predate the header
// convention.
func Inspect(source []byte, kind Kind, header string) []Finding {
	var findings []Finding

	document := inspectParser().Parser().Parse(text.NewReader(source))

	if kind == KindTimeline && header != "" {
		findings = append(findings, checkHeader(document, source, header)...)
	}

	previousDate := ""
	_ = ast.Walk(document, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node.Kind() {
		case ast.KindListItem:
			findings = append(findings, checkListItem(node, source)...)
			return ast.WalkSkipChildren, nil

		case ast.KindParagraph:
			if kind != KindTopic {
				return ast.WalkContinue, nil
			}
			value := nodeText(node, source)
			if !dateOnly.MatchString(value) {
				return ast.WalkContinue, nil
			}
			if previousDate != "" && value >= previousDate {
				findings = append(findings, Finding{
					Line:    lineOfNode(node, source),
					Message: fmt.Sprintf("date block %s out of order below %s", value, previousDate),
				})
			}
			previousDate = value
		}
		return ast.WalkContinue, nil
	})

	return findings
}

// checkHeader verifies the document opens with the configured section
// header, e.g. "## Timeline".
func checkHeader(document ast.Node, source []byte, header string) []Finding {
	wantLevel := 0
	rest := header
	for strings.HasPrefix(rest, "#") {
		wantLevel++
		rest = rest[1:]
	}
	wantText := strings.TrimSpace(rest)

	missing := []Finding{{
		Line:    1,
		Message: fmt.Sprintf("document does not open with the %q header", header),
	}}

	heading, ok := document.FirstChild().(*ast.Heading)
	if !ok {
		return missing
	}
	if heading.Level != wantLevel || nodeText(heading, source) != wantText {
		return missing
	}
	return nil
}

// checkListItem verifies the item's text opens with a clock time.
func checkListItem(item ast.Node, source []byte) []Finding {
	block := item.FirstChild()
	if block == nil {
		return []Finding{{Message: "empty list item"}}
	}
	value := nodeText(block, source)
	if !clockLead.MatchString(value) {
		return []Finding{{
			Line:    lineOfNode(block, source),
			Message: fmt.Sprintf("entry does not start with a clock time: %q", strings.TrimSpace(value)),
		}}
	}
	return nil
}

// nodeText collects the node's direct text content, joining segments.
func nodeText(node ast.Node, source []byte) string {
	var builder strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch typed := child.(type) {
		case *ast.Text:
			builder.Write(typed.Segment.Value(source))
		case *ast.String:
			builder.Write(typed.Value)
		}
	}
	return builder.String()
}

// lineOfNode returns the 1-based line of the node's first text
// segment, or 0 when the node has none.
func lineOfNode(node ast.Node, source []byte) int {
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		if textNode, ok := child.(*ast.Text); ok {
			return 1 + bytes.Count(source[:textNode.Segment.Start], []byte("\n"))
		}
	}
	return 0
}
