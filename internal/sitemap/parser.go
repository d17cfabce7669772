package sitemap

import (
	"encoding/xml"
	"strings"
)

type DocumentKind string

const (
	KindURLSet  DocumentKind = "urlset"
	KindIndex   DocumentKind = "sitemapindex"
	KindUnknown DocumentKind = "unknown"
)

// Document is the normalized result of parsing one sitemap file. Locs is
// always a list regardless of how many entries the XML held.
type Document struct {
	Kind DocumentKind
	Locs []string
}

// Parse classifies raw XML as a urlset or a sitemapindex and extracts the
// <loc> values. It is deliberately permissive: malformed or truncated XML
// yields whatever was readable up to the error, and anything that is neither
// shape comes back as KindUnknown with zero locs. Parse never fails.
func Parse(data string) Document {
	dec := xml.NewDecoder(strings.NewReader(data))

	doc := Document{Kind: KindUnknown}
	var stack []string
	var inLoc bool
	var b strings.Builder

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := strings.ToLower(t.Name.Local)
			if len(stack) == 0 {
				switch name {
				case "urlset":
					doc.Kind = KindURLSet
				case "sitemapindex":
					doc.Kind = KindIndex
				default:
					return doc
				}
			}
			// Only <loc> directly under <url> or <sitemap> counts; this
			// skips image:loc and similar extension elements.
			if name == "loc" && len(stack) > 0 {
				parent := stack[len(stack)-1]
				if parent == "url" || parent == "sitemap" {
					inLoc = true
					b.Reset()
				}
			}
			stack = append(stack, name)
		case xml.CharData:
			if inLoc {
				b.Write(t)
			}
		case xml.EndElement:
			name := strings.ToLower(t.Name.Local)
			if inLoc && name == "loc" {
				inLoc = false
				if loc := strings.TrimSpace(b.String()); loc != "" {
					doc.Locs = append(doc.Locs, loc)
				}
				b.Reset()
			}
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	return doc
}
