package seo

import (
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pavesite/internal/blog"
	"git.home.luguber.info/inful/pavesite/internal/registry"
)

var testSite = Site{
	Name:    "Sanctuary Sealcoating",
	BaseURL: "https://example.org/",
	Phone:   "+1-519-555-0100",
	Email:   "office@example.org",
	Image:   "/images/og.jpg",
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)
	return reg
}

func TestSiteURL(t *testing.T) {
	assert.Equal(t, "https://example.org/", testSite.URL("/"))
	assert.Equal(t, "https://example.org/", testSite.URL(""))
	assert.Equal(t, "https://example.org/locations/guelph", testSite.URL(CityPath("guelph")))
	assert.Equal(t, "https://cdn.example.com/a.jpg", testSite.URL("https://cdn.example.com/a.jpg"))
}

func TestCityMeta(t *testing.T) {
	reg := testRegistry(t)
	city, err := reg.City("guelph")
	require.NoError(t, err)
	region, err := reg.Region(city.Region)
	require.NoError(t, err)

	m := CityMeta(testSite, city, region)
	assert.Equal(t, "Sealcoating in Guelph | Sanctuary Sealcoating", m.Title)
	assert.Equal(t, "https://example.org/locations/guelph", m.Canonical)
	assert.Equal(t, m.Canonical, m.OG.URL)
	assert.Equal(t, "https://example.org/images/og.jpg", m.OG.Image)
	assert.Equal(t, "summary_large_image", m.Twitter.Card)
	assert.Contains(t, m.Description, "Guelph")
	assert.LessOrEqual(t, len([]rune(m.Description)), DescriptionLimit)
}

func TestDescriptionTruncated(t *testing.T) {
	long := strings.Repeat("asphalt ", 60)
	m := newMeta(Site{BaseURL: "https://example.org"}, "/x", "T", long, "website", "")
	assert.LessOrEqual(t, len([]rune(m.Description)), DescriptionLimit)
	assert.True(t, strings.HasSuffix(m.Description, "…"))
	assert.Equal(t, "summary", m.Twitter.Card)
}

func TestJSONLD(t *testing.T) {
	reg := testRegistry(t)
	city, err := reg.City("guelph")
	require.NoError(t, err)
	region, err := reg.Region(city.Region)
	require.NoError(t, err)

	js, err := JSONLD(
		LocalBusiness(testSite, city, region),
		Service(testSite, city, region),
		Breadcrumbs(testSite, Crumb{"Home", HomePath}, Crumb{"Locations", LocationsPath}, Crumb{city.Name, CityPath(city.Slug)}),
		FAQPage(CityFAQs(testSite, city)),
	)
	require.NoError(t, err)

	var doc struct {
		Context string           `json:"@context"`
		Graph   []map[string]any `json:"@graph"`
	}
	require.NoError(t, json.Unmarshal([]byte(js), &doc))
	assert.Equal(t, "https://schema.org", doc.Context)
	require.Len(t, doc.Graph, 4)
	assert.Equal(t, "LocalBusiness", doc.Graph[0]["@type"])
	assert.Equal(t, "Guelph", doc.Graph[0]["areaServed"].(map[string]any)["name"])
	assert.Equal(t, "Service", doc.Graph[1]["@type"])

	crumbs := doc.Graph[2]["itemListElement"].([]any)
	require.Len(t, crumbs, 3)
	assert.InDelta(t, 3, crumbs[2].(map[string]any)["position"], 0)
	assert.Equal(t, "https://example.org/locations/guelph", crumbs[2].(map[string]any)["item"])

	assert.Len(t, doc.Graph[3]["mainEntity"].([]any), 3)
}

func TestJSONLDSingleNodeAndEscaping(t *testing.T) {
	js, err := JSONLD(FAQPage([]FAQ{{Question: "</script>?", Answer: "a & b"}}))
	require.NoError(t, err)
	assert.NotContains(t, string(js), "</script>")
	assert.Contains(t, string(js), `"@type":"FAQPage"`)
	assert.Contains(t, string(js), `"@context":"https://schema.org"`)

	empty, err := JSONLD()
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBlogPosting(t *testing.T) {
	a := &blog.Article{
		UID: "11111111-2222-5333-8444-555555555555", Slug: "spring", Title: "Spring",
		Author: "Crew", Tags: []string{"spring"},
		Date:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Modified: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
	}
	n := BlogPosting(testSite, a)
	assert.Equal(t, "https://example.org/blog/spring", n["url"])
	assert.Equal(t, "2025-03-02T00:00:00Z", n["dateModified"])
	assert.Equal(t, Node{"@type": "Person", "name": "Crew"}, n["author"])
}

func TestSitemap(t *testing.T) {
	reg := testRegistry(t)
	articles := []*blog.Article{{Slug: "newest", Modified: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}}
	entries := Entries(reg, articles)
	assert.Len(t, entries, 2+len(reg.Regions())+reg.Len()+1+len(articles))

	out, err := Sitemap("https://example.org", entries)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), xml.Header))

	var set urlset
	require.NoError(t, xml.Unmarshal(out, &set))
	require.Len(t, set.URLs, len(entries))
	assert.Equal(t, "https://example.org/", set.URLs[0].Loc)
	assert.Equal(t, "1.0", set.URLs[0].Priority)
	last := set.URLs[len(set.URLs)-1]
	assert.Equal(t, "https://example.org/blog/newest", last.Loc)
	assert.Equal(t, "2025-06-01", last.LastMod)
}

func TestRobots(t *testing.T) {
	assert.Equal(t, "User-agent: *\nAllow: /\n\nSitemap: https://example.org/sitemap.xml\n", string(Robots("https://example.org")))
	assert.Contains(t, string(Robots("https://example.org", "/healthz")), "Disallow: /healthz\n")
}
