// Package page assembles the documents of the site from the registry, the
// content variant table and the blog, and renders them with the embedded
// layout.
package page

import (
	"html/template"

	"git.home.luguber.info/inful/pavesite/internal/blog"
	"git.home.luguber.info/inful/pavesite/internal/content"
	"git.home.luguber.info/inful/pavesite/internal/registry"
	"git.home.luguber.info/inful/pavesite/internal/seo"
)

// Kind identifies the template a page renders with.
type Kind string

const (
	KindHome      Kind = "home"
	KindLocations Kind = "locations"
	KindCity      Kind = "city"
	KindRegion    Kind = "region"
	KindBlogIndex Kind = "blog"
	KindArticle   Kind = "article"
	KindNotFound  Kind = "notfound"
)

// RegionGroup is a region with its member cities, sorted by name.
type RegionGroup struct {
	Region registry.Region
	Cities []registry.City
}

// Page is an assembled document ready to render.
type Page struct {
	Kind    Kind
	Path    string
	Site    seo.Site
	Meta    seo.Meta
	JSONLD  template.JS
	Crumbs  []seo.Crumb
	Heading string

	// city and region pages
	City    *registry.City
	Region  *registry.Region
	Blocks  []content.Block
	FAQs    []seo.FAQ
	Nearby  []registry.Neighbour
	Cities  []registry.City
	Regions []RegionGroup

	// blog pages
	Articles []*blog.Article
	Article  *blog.Article

	// ETag is set when the page has a content fingerprint.
	ETag string
}
