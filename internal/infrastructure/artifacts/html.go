package artifacts

import (
	"errors"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

var errNoBody = errors.New("no <body> in page source")

type CleanConfig struct {
	TagsToRemove  []string
	AttrsToRemove []string
	// MaxOutputSize caps the rendered body in bytes; 0 means no cap.
	MaxOutputSize int
	// KeepData keeps data-* attributes, which test ids often live in.
	KeepData bool
}

var DefaultCleanConfig = CleanConfig{
	TagsToRemove: []string{
		"script", "style", "noscript", "svg", "iframe",
		"link", "meta", "head", "title",
	},
	AttrsToRemove: []string{
		"style", "srcset", "sizes", "loading", "decoding", "fetchpriority",
	},
	MaxOutputSize: 512 << 10,
	KeepData:      true,
}

// CleanHTML returns the <body> of rawHTML without comments, script-like tags
// and presentational attributes. On error the raw source is returned
// alongside it so the caller can still save something.
func CleanHTML(rawHTML string, cfg CleanConfig) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML, err
	}

	body := findBody(doc)
	if body == nil {
		return rawHTML, errNoBody
	}

	cleanNode(body, cfg)

	var sb strings.Builder
	if err := html.Render(&sb, body); err != nil {
		return rawHTML, err
	}
	return truncate(sb.String(), cfg.MaxOutputSize), nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

func cleanNode(n *html.Node, cfg CleanConfig) {
	switch {
	case n.Type == html.CommentNode:
		n.Parent.RemoveChild(n)
		return
	case n.Type != html.ElementNode:
		return
	case slices.Contains(cfg.TagsToRemove, n.Data):
		n.Parent.RemoveChild(n)
		return
	}

	kept := n.Attr[:0]
	for _, attr := range n.Attr {
		if !dropAttr(attr.Key, cfg) {
			kept = append(kept, attr)
		}
	}
	n.Attr = kept

	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		cleanNode(c, cfg)
		c = next
	}
}

func dropAttr(key string, cfg CleanConfig) bool {
	if slices.Contains(cfg.AttrsToRemove, key) {
		return true
	}
	if strings.HasPrefix(key, "data-") {
		return !cfg.KeepData
	}
	return strings.HasPrefix(key, "aria-") || strings.HasPrefix(key, "on")
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "\n<!-- truncated -->"
}
