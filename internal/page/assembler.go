package page

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"strings"
	"time"

	"git.home.luguber.info/inful/pavesite/internal/blog"
	"git.home.luguber.info/inful/pavesite/internal/content"
	"git.home.luguber.info/inful/pavesite/internal/foundation/errors"
	"git.home.luguber.info/inful/pavesite/internal/logfields"
	"git.home.luguber.info/inful/pavesite/internal/metrics"
	"git.home.luguber.info/inful/pavesite/internal/registry"
	"git.home.luguber.info/inful/pavesite/internal/seo"
	"git.home.luguber.info/inful/pavesite/internal/variant"
)

//go:embed templates/*.html
var templateFS embed.FS

// latestArticles is how many articles the home page lists.
const latestArticles = 3

// nearbyCities is how many neighbours a city page links to.
const nearbyCities = 6

// Sources is the content an Assembler reads.
type Sources struct {
	Registry *registry.Registry
	Table    *content.Table
	Blog     *blog.Store
}

// Assembler builds pages. It is safe for concurrent use.
type Assembler struct {
	src      Sources
	site     seo.Site
	recorder metrics.Recorder
	tmpl     *template.Template
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(a *Assembler) {
		if r != nil {
			a.recorder = r
		}
	}
}

// NewAssembler parses the embedded layout and returns an Assembler.
func NewAssembler(src Sources, site seo.Site, opts ...Option) (*Assembler, error) {
	if src.Registry == nil || src.Table == nil || src.Blog == nil {
		return nil, errors.ValidationError("assembler requires a registry, a variant table and a blog store").Build()
	}
	tmpl, err := template.New("site").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "failed to parse page templates").Build()
	}
	a := &Assembler{src: src, site: site, recorder: metrics.NoopRecorder{}, tmpl: tmpl}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

var funcs = template.FuncMap{
	"date":        func(t time.Time) string { return t.Format("January 2, 2006") },
	"isodate":     func(t time.Time) string { return t.Format("2006-01-02") },
	"cityPath":    seo.CityPath,
	"regionPath":  seo.RegionPath,
	"articlePath": seo.ArticlePath,
	"km":          func(f float64) string { return fmt.Sprintf("%.0f km", f) },
	"year":        func() int { return time.Now().Year() },
}

// Site returns the site identity the assembler was built with.
func (a *Assembler) Site() seo.Site { return a.site }

// Registry returns the registry pages are assembled from.
func (a *Assembler) Registry() *registry.Registry { return a.src.Registry }

// Blog returns the article store pages are assembled from.
func (a *Assembler) Blog() *blog.Store { return a.src.Blog }

func (a *Assembler) business() content.Business {
	return content.Business{Name: a.site.Name, Phone: a.site.Phone, Email: a.site.Email}
}

func (a *Assembler) observe(kind Kind, start time.Time, err error) {
	a.recorder.ObservePageDuration(string(kind), time.Since(start))
	a.recorder.IncPageResult(string(kind), metrics.ResultFor(err, errors.IsNotFound))
}

func (a *Assembler) groups() ([]RegionGroup, error) {
	regions := a.src.Registry.Regions()
	out := make([]RegionGroup, 0, len(regions))
	for _, r := range regions {
		cities, err := a.src.Registry.CitiesIn(r.Slug)
		if err != nil {
			return nil, err
		}
		out = append(out, RegionGroup{Region: r, Cities: cities})
	}
	return out, nil
}

func (a *Assembler) jsonld(nodes ...seo.Node) (template.JS, error) {
	return seo.JSONLD(nodes...)
}

// Home assembles the landing page.
func (a *Assembler) Home(ctx context.Context) (p *Page, err error) {
	defer func(start time.Time) { a.observe(KindHome, start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	groups, err := a.groups()
	if err != nil {
		return nil, err
	}
	articles := a.src.Blog.Published()
	if len(articles) > latestArticles {
		articles = articles[:latestArticles]
	}
	ld, err := a.jsonld(seo.Organization(a.site, a.src.Registry.Regions()))
	if err != nil {
		return nil, err
	}
	return &Page{
		Kind:     KindHome,
		Path:     seo.HomePath,
		Site:     a.site,
		Meta:     seo.HomeMeta(a.site),
		JSONLD:   ld,
		Heading:  "Parking lot care for Ontario's places of worship",
		Regions:  groups,
		Articles: articles,
	}, nil
}

// Locations assembles the index of every service area.
func (a *Assembler) Locations(ctx context.Context) (p *Page, err error) {
	defer func(start time.Time) { a.observe(KindLocations, start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	groups, err := a.groups()
	if err != nil {
		return nil, err
	}
	crumbs := []seo.Crumb{{Name: "Home", Path: seo.HomePath}, {Name: "Locations", Path: seo.LocationsPath}}
	ld, err := a.jsonld(seo.Organization(a.site, a.src.Registry.Regions()), seo.Breadcrumbs(a.site, crumbs...))
	if err != nil {
		return nil, err
	}
	return &Page{
		Kind:    KindLocations,
		Path:    seo.LocationsPath,
		Site:    a.site,
		Meta:    seo.LocationsMeta(a.site, a.src.Registry.Len()),
		JSONLD:  ld,
		Crumbs:  crumbs,
		Heading: "Communities we serve",
		Regions: groups,
	}, nil
}

// City assembles a city landing page. Each section renders the variant
// selected for the city's slug.
func (a *Assembler) City(ctx context.Context, slug string) (p *Page, err error) {
	defer func(start time.Time) { a.observe(KindCity, start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := content.DataFor(a.src.Registry, slug, a.business())
	if err != nil {
		return nil, err
	}
	city, region := data.City, data.Region

	blocks := make([]content.Block, 0, len(variant.Sections()))
	for _, section := range a.src.Table.Sections() {
		idx := variant.Select(city.Slug, section)
		block, err := a.src.Table.Render(section, idx, data)
		if err != nil {
			return nil, err
		}
		a.recorder.IncVariantSelected(string(section), int(idx))
		slog.Debug("Variant selected",
			logfields.City(city.Slug),
			logfields.Section(string(section)),
			logfields.Variant(int(idx)))
		blocks = append(blocks, block)
	}

	nearby, err := a.src.Registry.Nearby(city.Slug, nearbyCities)
	if err != nil {
		return nil, err
	}

	faqs := seo.CityFAQs(a.site, city)
	crumbs := []seo.Crumb{
		{Name: "Home", Path: seo.HomePath},
		{Name: region.Name, Path: seo.RegionPath(region.Slug)},
		{Name: city.Name, Path: seo.CityPath(city.Slug)},
	}
	ld, err := a.jsonld(
		seo.LocalBusiness(a.site, city, region),
		seo.Service(a.site, city, region),
		seo.Breadcrumbs(a.site, crumbs...),
		seo.FAQPage(faqs),
	)
	if err != nil {
		return nil, err
	}

	return &Page{
		Kind:    KindCity,
		Path:    seo.CityPath(city.Slug),
		Site:    a.site,
		Meta:    seo.CityMeta(a.site, city, region),
		JSONLD:  ld,
		Crumbs:  crumbs,
		Heading: "Church parking lot sealcoating in " + city.Name,
		City:    &city,
		Region:  &region,
		Blocks:  blocks,
		FAQs:    faqs,
		Nearby:  nearby,
	}, nil
}

// Region assembles a region page listing its cities.
func (a *Assembler) Region(ctx context.Context, slug string) (p *Page, err error) {
	defer func(start time.Time) { a.observe(KindRegion, start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	region, err := a.src.Registry.Region(slug)
	if err != nil {
		return nil, err
	}
	cities, err := a.src.Registry.CitiesIn(slug)
	if err != nil {
		return nil, err
	}
	crumbs := []seo.Crumb{
		{Name: "Home", Path: seo.HomePath},
		{Name: "Locations", Path: seo.LocationsPath},
		{Name: region.Name, Path: seo.RegionPath(region.Slug)},
	}
	ld, err := a.jsonld(seo.Organization(a.site, []registry.Region{region}), seo.Breadcrumbs(a.site, crumbs...))
	if err != nil {
		return nil, err
	}
	return &Page{
		Kind:    KindRegion,
		Path:    seo.RegionPath(region.Slug),
		Site:    a.site,
		Meta:    seo.RegionMeta(a.site, region),
		JSONLD:  ld,
		Crumbs:  crumbs,
		Heading: "Sealcoating across " + region.Name,
		Region:  &region,
		Cities:  cities,
	}, nil
}

// BlogIndex assembles the list of published articles.
func (a *Assembler) BlogIndex(ctx context.Context) (p *Page, err error) {
	defer func(start time.Time) { a.observe(KindBlogIndex, start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	crumbs := []seo.Crumb{{Name: "Home", Path: seo.HomePath}, {Name: "Blog", Path: seo.BlogPath}}
	ld, err := a.jsonld(seo.Breadcrumbs(a.site, crumbs...))
	if err != nil {
		return nil, err
	}
	return &Page{
		Kind:     KindBlogIndex,
		Path:     seo.BlogPath,
		Site:     a.site,
		Meta:     seo.BlogIndexMeta(a.site),
		JSONLD:   ld,
		Crumbs:   crumbs,
		Heading:  "Parking lot care for congregations",
		Articles: a.src.Blog.Published(),
	}, nil
}

// Article assembles a published blog article.
func (a *Assembler) Article(ctx context.Context, slug string) (p *Page, err error) {
	defer func(start time.Time) { a.observe(KindArticle, start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	art, err := a.src.Blog.Get(slug)
	if err != nil {
		return nil, err
	}
	crumbs := []seo.Crumb{
		{Name: "Home", Path: seo.HomePath},
		{Name: "Blog", Path: seo.BlogPath},
		{Name: art.Title, Path: seo.ArticlePath(art.Slug)},
	}
	ld, err := a.jsonld(seo.BlogPosting(a.site, art), seo.Breadcrumbs(a.site, crumbs...))
	if err != nil {
		return nil, err
	}
	return &Page{
		Kind:    KindArticle,
		Path:    seo.ArticlePath(art.Slug),
		Site:    a.site,
		Meta:    seo.ArticleMeta(a.site, art),
		JSONLD:  ld,
		Crumbs:  crumbs,
		Heading: art.Title,
		Article: art,
		ETag:    art.Fingerprint,
	}, nil
}

// NotFound assembles the page shown for unknown paths.
func (a *Assembler) NotFound(path string) *Page {
	return &Page{
		Kind:    KindNotFound,
		Path:    path,
		Site:    a.site,
		Meta:    seo.Meta{Title: "Page not found | " + a.site.Name},
		Heading: "We couldn't find that page",
	}
}

// Resolve assembles the page served at path.
func (a *Assembler) Resolve(ctx context.Context, path string) (*Page, error) {
	clean := strings.TrimSuffix(path, "/")
	switch {
	case clean == "":
		return a.Home(ctx)
	case clean == seo.LocationsPath:
		return a.Locations(ctx)
	case clean == seo.BlogPath:
		return a.BlogIndex(ctx)
	}
	if rest, ok := strings.CutPrefix(clean, seo.LocationsPath+"/"); ok && !strings.Contains(rest, "/") {
		return a.City(ctx, rest)
	}
	if rest, ok := strings.CutPrefix(clean, seo.RegionPath("")); ok && rest != "" && !strings.Contains(rest, "/") {
		return a.Region(ctx, rest)
	}
	if rest, ok := strings.CutPrefix(clean, seo.BlogPath+"/"); ok && !strings.Contains(rest, "/") {
		return a.Article(ctx, rest)
	}
	return nil, errors.NotFound("no page at path").WithContext("path", path).Build()
}

// Render writes p as a complete HTML document.
func (a *Assembler) Render(w io.Writer, p *Page) error {
	if p == nil {
		return errors.InternalError("nil page").Build()
	}
	if err := a.tmpl.ExecuteTemplate(w, "layout", p); err != nil {
		return errors.WrapError(err, errors.CategoryRender, "page failed to render").
			WithContext("kind", string(p.Kind)).
			WithContext("path", p.Path).
			Build()
	}
	return nil
}

// Sitemap renders sitemap.xml for the current content.
func (a *Assembler) Sitemap() ([]byte, error) {
	return seo.Sitemap(a.site.BaseURL, seo.Entries(a.src.Registry, a.src.Blog.Published()))
}

// Robots renders robots.txt.
func (a *Assembler) Robots() []byte {
	return seo.Robots(a.site.BaseURL, "/healthz", "/metrics")
}

// Paths lists every page path the site serves, in sitemap order.
func (a *Assembler) Paths() []string {
	entries := seo.Entries(a.src.Registry, a.src.Blog.Published())
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}
	return out
}
