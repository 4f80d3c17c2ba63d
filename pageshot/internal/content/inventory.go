// CLAUDE:SUMMARY Media and link inventory of an HTML page: absolute http(s) URLs of images, audio, video and links.
// Package content describes what a captured page contains besides its
// pixels: the media and link inventory, and a sanitised Markdown rendition.
package content

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/pageshot/pageshot/internal/protocol"
)

// Collect lists the images, audio, video and links of an HTML document.
// Relative references are resolved against pageURL (or the document's
// <base href>). Only http and https URLs are kept, each once, in document
// order.
func Collect(pageURL, doc string) (protocol.Content, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return protocol.Content{}, fmt.Errorf("content: parse: %w", err)
	}
	base, _ := url.Parse(pageURL)
	if href := findBase(root); href != "" {
		if b, err := resolve(base, href); err == nil {
			base = b
		}
	}

	c := &collector{base: base, seen: make(map[string]bool)}
	c.walk(root, 0)
	return protocol.Content{
		Images: nonNil(c.images),
		Audio:  nonNil(c.audio),
		Video:  nonNil(c.video),
		Links:  nonNil(c.links),
	}, nil
}

type collector struct {
	base                        *url.URL
	seen                        map[string]bool
	images, audio, video, links []string
}

// walk visits n; media tracks whether n sits inside <audio> or <video> so
// that nested <source> elements are attributed to it.
func (c *collector) walk(n *html.Node, media atom.Atom) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Template:
			return
		case atom.Img:
			c.add(&c.images, "img", attr(n, "src"))
		case atom.Audio:
			c.add(&c.audio, "audio", attr(n, "src"))
			media = atom.Audio
		case atom.Video:
			c.add(&c.video, "video", attr(n, "src"))
			media = atom.Video
		case atom.Source:
			switch media {
			case atom.Audio:
				c.add(&c.audio, "audio", attr(n, "src"))
			case atom.Video:
				c.add(&c.video, "video", attr(n, "src"))
			}
		case atom.A, atom.Area:
			c.add(&c.links, "link", attr(n, "href"))
		}
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.walk(ch, media)
	}
}

func (c *collector) add(list *[]string, kind, ref string) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return
	}
	u, err := resolve(c.base, ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return
	}
	s := u.String()
	key := kind + " " + s
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	*list = append(*list, s)
}

func resolve(base *url.URL, ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	return u, nil
}

func findBase(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Base {
		return attr(n, "href")
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if href := findBase(ch); href != "" {
			return href
		}
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
