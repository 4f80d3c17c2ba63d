package content

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

// Converter renders page HTML as Markdown. The HTML is sanitised first so
// scripts, styles and event handlers never reach the output.
type Converter struct {
	policy *bluemonday.Policy
	md     *converter.Converter
}

// NewConverter creates a Converter with the UGC sanitising policy.
func NewConverter() *Converter {
	return &Converter{
		policy: bluemonday.UGCPolicy(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Markdown converts doc to Markdown.
func (c *Converter) Markdown(doc string) (string, error) {
	clean := c.policy.Sanitize(doc)
	md, err := c.md.ConvertString(clean)
	if err != nil {
		return "", fmt.Errorf("content: markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}
