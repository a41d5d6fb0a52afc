package seo

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"git.home.luguber.info/inful/pavesite/internal/blog"
	"git.home.luguber.info/inful/pavesite/internal/foundation/errors"
	"git.home.luguber.info/inful/pavesite/internal/registry"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

// Entry is one sitemap URL.
type Entry struct {
	Path       string
	LastMod    time.Time
	ChangeFreq string
	Priority   float64
}

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// Entries lists every public page of the site in a stable order.
func Entries(reg *registry.Registry, articles []*blog.Article) []Entry {
	entries := []Entry{
		{Path: HomePath, ChangeFreq: "monthly", Priority: 1.0},
		{Path: LocationsPath, ChangeFreq: "monthly", Priority: 0.8},
	}
	for _, r := range reg.Regions() {
		entries = append(entries, Entry{Path: RegionPath(r.Slug), ChangeFreq: "monthly", Priority: 0.7})
	}
	for _, c := range reg.Cities() {
		entries = append(entries, Entry{Path: CityPath(c.Slug), ChangeFreq: "monthly", Priority: 0.9})
	}

	blogIndex := Entry{Path: BlogPath, ChangeFreq: "weekly", Priority: 0.6}
	if len(articles) > 0 {
		blogIndex.LastMod = articles[0].Modified
	}
	entries = append(entries, blogIndex)
	for _, a := range articles {
		entries = append(entries, Entry{Path: ArticlePath(a.Slug), LastMod: a.Modified, ChangeFreq: "yearly", Priority: 0.5})
	}
	return entries
}

// Sitemap renders entries as a sitemaps.org urlset.
func Sitemap(baseURL string, entries []Entry) ([]byte, error) {
	site := Site{BaseURL: baseURL}
	set := urlset{XMLNS: sitemapNS, URLs: make([]sitemapURL, 0, len(entries))}
	for _, e := range entries {
		u := sitemapURL{Loc: site.URL(e.Path), ChangeFreq: e.ChangeFreq}
		if !e.LastMod.IsZero() {
			u.LastMod = e.LastMod.UTC().Format("2006-01-02")
		}
		if e.Priority > 0 {
			u.Priority = fmt.Sprintf("%.1f", e.Priority)
		}
		set.URLs = append(set.URLs, u)
	}
	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRender, "failed to encode sitemap").Build()
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}

// Robots renders robots.txt allowing everything except disallow and
// pointing crawlers at the sitemap.
func Robots(baseURL string, disallow ...string) []byte {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	if len(disallow) == 0 {
		b.WriteString("Allow: /\n")
	}
	for _, d := range disallow {
		fmt.Fprintf(&b, "Disallow: %s\n", d)
	}
	fmt.Fprintf(&b, "\nSitemap: %s\n", Site{BaseURL: baseURL}.URL(SitemapPath))
	return []byte(b.String())
}
