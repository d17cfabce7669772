package sitemap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_URLSet(t *testing.T) {
	doc := Parse(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/a</loc><lastmod>2025-01-01</lastmod></url>
  <url><loc>https://example.com/b</loc></url>
  <url><loc> https://example.com/c </loc></url>
</urlset>`)

	require.Equal(t, KindURLSet, doc.Kind)
	require.Equal(t, []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/c",
	}, doc.Locs)
}

func TestParse_SingleEntryIsStillAList(t *testing.T) {
	doc := Parse(`<urlset><url><loc>https://example.com/only</loc></url></urlset>`)

	require.Equal(t, KindURLSet, doc.Kind)
	require.Len(t, doc.Locs, 1)
	require.Equal(t, "https://example.com/only", doc.Locs[0])
}

func TestParse_SitemapIndex(t *testing.T) {
	doc := Parse(`<sitemapindex>
  <sitemap><loc>https://example.com/sitemap-1.xml</loc></sitemap>
  <sitemap><loc>https://example.com/sitemap-2.xml</loc></sitemap>
</sitemapindex>`)

	require.Equal(t, KindIndex, doc.Kind)
	require.Equal(t, []string{
		"https://example.com/sitemap-1.xml",
		"https://example.com/sitemap-2.xml",
	}, doc.Locs)
}

func TestParse_EmptyLocsDropped(t *testing.T) {
	doc := Parse(`<urlset>
  <url><loc></loc></url>
  <url><loc>   </loc></url>
  <url><loc>https://example.com/kept</loc></url>
  <url></url>
</urlset>`)

	require.Equal(t, []string{"https://example.com/kept"}, doc.Locs)
}

func TestParse_ExtensionLocsIgnored(t *testing.T) {
	doc := Parse(`<urlset xmlns:image="http://www.google.com/schemas/sitemap-image/1.1">
  <url>
    <loc>https://example.com/page</loc>
    <image:image><image:loc>https://example.com/photo.jpg</image:loc></image:image>
  </url>
</urlset>`)

	require.Equal(t, []string{"https://example.com/page"}, doc.Locs)
}

func TestParse_UnknownRoot(t *testing.T) {
	doc := Parse(`<rss><channel><item><loc>https://example.com/x</loc></item></channel></rss>`)

	require.Equal(t, KindUnknown, doc.Kind)
	require.Empty(t, doc.Locs)
}

func TestParse_Garbage(t *testing.T) {
	doc := Parse("this is not xml at all")

	require.Equal(t, KindUnknown, doc.Kind)
	require.Empty(t, doc.Locs)
}

func TestParse_TruncatedXMLSalvagesEarlierEntries(t *testing.T) {
	doc := Parse(`<urlset>
  <url><loc>https://example.com/a</loc></url>
  <url><loc>https://example.com/b</loc></url>
  <url><loc>https://example.com/trunc`)

	require.Equal(t, KindURLSet, doc.Kind)
	require.Equal(t, []string{
		"https://example.com/a",
		"https://example.com/b",
	}, doc.Locs)
}
