// Package extract turns fetched HTML into markdown. Content is narrowed to
// the page's main region when one is marked up (main, article, role=main,
// #content) before conversion, so navigation chrome and footers drop out.
package extract

import (
	"bytes"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"

	"github.com/fetchguard/engine/pkg/types"
)

const sniffLen = 100

// IsHTML reports whether the response should be treated as an HTML page.
// Any signal suffices: a text/html content type, no content type at all
// (servers that omit the header are overwhelmingly serving pages), or an
// <html marker in the first bytes of the body.
func IsHTML(body []byte, contentType string) bool {
	if contentType == "" {
		return true
	}
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return true
	}
	head := body
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<html"))
}

// ToMarkdown converts an HTML page to markdown, narrowed to its main
// content region when the page marks one up.
func ToMarkdown(page string) (string, error) {
	narrowed := narrowToMainContent(page)

	markdown, err := htmltomarkdown.ConvertString(narrowed)
	if err != nil {
		return "", types.WrapFetchError(types.KindInvalidParameter, err, "failed to convert page to markdown")
	}

	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return "<e>Page failed to be simplified from HTML</e>", nil
	}
	return markdown, nil
}

// contentSelectors in priority order. The first match wins.
var contentSelectors = []func(*html.Node) bool{
	func(n *html.Node) bool { return n.Data == "main" },
	func(n *html.Node) bool { return n.Data == "article" },
	func(n *html.Node) bool { return getAttr(n, "role") == "main" },
	func(n *html.Node) bool { return getAttr(n, "id") == "content" },
}

func narrowToMainContent(page string) string {
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return page
	}

	for _, matches := range contentSelectors {
		if node := findNode(root, matches); node != nil {
			var buf bytes.Buffer
			if err := html.Render(&buf, node); err != nil {
				return page
			}
			return buf.String()
		}
	}
	return page
}

func findNode(node *html.Node, matches func(*html.Node) bool) *html.Node {
	if node.Type == html.ElementNode && matches(node) {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findNode(child, matches); found != nil {
			return found
		}
	}
	return nil
}

func getAttr(node *html.Node, name string) string {
	for _, attr := range node.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}
