package htmlutil

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText concatenates every text node under `node` in document order.
func GetText(node *html.Node) string {
	var out strings.Builder
	writeText(&out, node)
	return out.String()
}

func writeText(out *strings.Builder, node *html.Node) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		out.WriteString(node.Data)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		writeText(out, child)
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

// printable drops every rune that is neither printable nor whitespace.
func printable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}

// Clean strips non-printable runes, trims the ends and collapses inner whitespace to one space.
func Clean(s string) string {
	s = printable(s)
	s = innerWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Text is the cleaned text of every node in the selection.
func Text(sel *goquery.Selection) string {
	var out strings.Builder
	for _, n := range sel.Nodes {
		writeText(&out, n)
	}
	return Clean(out.String())
}

// TextLines returns the cleaned, non-empty text of each direct text child or element child
// of the selection's first node. Elements like <br> split the content into separate lines.
func TextLines(sel *goquery.Selection) []string {
	if sel.Length() == 0 {
		return nil
	}

	var lines []string
	for child := sel.Nodes[0].FirstChild; child != nil; child = child.NextSibling {
		text := Clean(GetText(child))
		if text == "" {
			continue
		}
		lines = append(lines, text)
	}
	return lines
}
