package outline

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLLoader turns headings into # lines, list items into nested bullets and
// paragraphs into summary text.
type HTMLLoader struct{}

func (l *HTMLLoader) Load(r io.Reader, filename string) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var out []string
	if title := findTitle(doc); title != "" && findTag(doc, "h1") == nil {
		out = append(out, "# "+title, "")
	}

	var walk func(n *html.Node, listDepth int)
	walk = func(n *html.Node, listDepth int) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				if t := textContent(n); t != "" {
					out = append(out, "", strings.Repeat("#", level)+" "+t, "")
				}
				return
			}

			switch n.Data {
			case "script", "style", "nav", "footer", "header":
				return
			case "ul", "ol":
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c, listDepth+1)
				}
				return
			case "li":
				if t := ownText(n); t != "" {
					out = append(out, strings.Repeat("  ", max(listDepth-1, 0))+"- "+t)
				}
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
						walk(c, listDepth)
					}
				}
				return
			case "pre":
				out = append(out, "", "```", strings.TrimRight(rawText(n), "\n"), "```", "")
				return
			case "p", "blockquote", "td":
				if t := textContent(n); t != "" {
					out = append(out, t)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, listDepth)
		}
	}

	if body := findTag(doc, "body"); body != nil {
		walk(body, 0)
	} else {
		walk(doc, 0)
	}
	return strings.TrimSpace(strings.Join(out, "\n")) + "\n", nil
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// textContent collapses the text below n to a single line.
func textContent(n *html.Node) string {
	return strings.Join(strings.Fields(rawText(n)), " ")
}

func rawText(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

// ownText is the text of a list item without its nested lists.
func ownText(li *html.Node) string {
	var parts []string
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
			continue
		}
		parts = append(parts, rawText(c))
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func findTitle(n *html.Node) string {
	if t := findTag(n, "title"); t != nil {
		return textContent(t)
	}
	return ""
}

func findTag(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findTag(c, tag); b != nil {
			return b
		}
	}
	return nil
}
