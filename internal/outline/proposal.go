package outline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/docgen/internal/doctree"
	"github.com/dgallion1/docgen/internal/provider"
)

// ErrMalformedProposal means a proposed structure could not be decoded.
var ErrMalformedProposal = errors.New("outline: malformed proposal")

type proposalItem struct {
	Title       string         `json:"title"`
	Subchapters []proposalItem `json:"subchapters"`
}

// ParseProposal decodes a proposed structure: either a JSON array of
// {"title", "subchapters"} objects or an object wrapping that array under
// "chapters". Surrounding prose and code fences are tolerated.
func ParseProposal(raw string) ([]*doctree.Node, error) {
	text := strings.TrimSpace(raw)
	var items []proposalItem

	start := strings.IndexAny(text, "[{")
	if start < 0 {
		return nil, fmt.Errorf("%w: no JSON found", ErrMalformedProposal)
	}
	if text[start] == '[' {
		arr := provider.FirstJSONArray(text[start:])
		if arr == "" {
			return nil, fmt.Errorf("%w: unterminated array", ErrMalformedProposal)
		}
		if err := json.Unmarshal([]byte(arr), &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedProposal, err)
		}
	} else {
		obj := provider.FirstJSONObject(text[start:])
		if obj == "" {
			return nil, fmt.Errorf("%w: unterminated object", ErrMalformedProposal)
		}
		var wrapped struct {
			Chapters []proposalItem `json:"chapters"`
		}
		if err := json.Unmarshal([]byte(obj), &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedProposal, err)
		}
		items = wrapped.Chapters
	}

	nodes := convertProposal(items, 1)
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: no chapters", ErrMalformedProposal)
	}
	return nodes, nil
}

func convertProposal(items []proposalItem, depth int) []*doctree.Node {
	var out []*doctree.Node
	for _, it := range items {
		title := CleanHeadingText(it.Title, depth)
		if title == "" {
			continue
		}
		n := &doctree.Node{Title: title}
		if depth < MaxDepth {
			n.Children = convertProposal(it.Subchapters, depth+1)
		}
		out = append(out, n)
	}
	return out
}

// DemoTOC is the small built-in outline used in demo mode and as the last
// fallback when no structure can be established.
func DemoTOC() []*doctree.Node {
	return []*doctree.Node{
		{
			Title: "Fundamentals",
			Children: []*doctree.Node{
				{Title: "Introduction"},
				{Title: "Getting Started"},
			},
		},
		{
			Title: "Applied Practice",
			Children: []*doctree.Node{
				{Title: "Guided Example"},
				{Title: "Good Practices"},
			},
		},
	}
}
