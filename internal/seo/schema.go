package seo

import (
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"git.home.luguber.info/inful/pavesite/internal/blog"
	"git.home.luguber.info/inful/pavesite/internal/foundation/errors"
	"git.home.luguber.info/inful/pavesite/internal/registry"
)

const schemaContext = "https://schema.org"

// Node is one schema.org object of a JSON-LD graph.
type Node = map[string]any

// Crumb is one step of a breadcrumb trail.
type Crumb struct {
	Name string
	Path string
}

// FAQ is a question and answer pair for FAQPage markup.
type FAQ struct {
	Question string
	Answer   string
}

func (s Site) businessID() string { return s.URL("/") + "#business" }

func (s Site) business() Node {
	n := Node{
		"@type": "LocalBusiness",
		"@id":   s.businessID(),
		"name":  s.Name,
		"url":   s.URL("/"),
	}
	if s.Phone != "" {
		n["telephone"] = s.Phone
	}
	if s.Email != "" {
		n["email"] = s.Email
	}
	if s.Image != "" {
		n["image"] = s.URL(s.Image)
	}
	return n
}

func place(city registry.City, region registry.Region) Node {
	return Node{
		"@type": "City",
		"name":  city.Name,
		"containedInPlace": Node{
			"@type": "AdministrativeArea",
			"name":  region.Name,
		},
		"geo": Node{
			"@type":     "GeoCoordinates",
			"latitude":  city.Location.Lat,
			"longitude": city.Location.Lng,
		},
	}
}

// Organization describes the business serving every region.
func Organization(site Site, regions []registry.Region) Node {
	n := site.business()
	areas := make([]Node, 0, len(regions))
	for _, r := range regions {
		areas = append(areas, Node{"@type": "AdministrativeArea", "name": r.Name})
	}
	n["areaServed"] = areas
	return n
}

// LocalBusiness describes the business as serving one city.
func LocalBusiness(site Site, city registry.City, region registry.Region) Node {
	n := site.business()
	n["areaServed"] = place(city, region)
	return n
}

// Service describes the sealcoating offering in a city.
func Service(site Site, city registry.City, region registry.Region) Node {
	return Node{
		"@type":       "Service",
		"serviceType": "Parking lot sealcoating",
		"name":        fmt.Sprintf("Church parking lot sealcoating in %s", city.Name),
		"provider":    Node{"@id": site.businessID()},
		"areaServed":  place(city, region),
		"audience": Node{
			"@type":        "Audience",
			"audienceType": "Churches and places of worship",
		},
	}
}

// Breadcrumbs builds a BreadcrumbList; positions start at 1.
func Breadcrumbs(site Site, crumbs ...Crumb) Node {
	items := make([]Node, 0, len(crumbs))
	for i, c := range crumbs {
		items = append(items, Node{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     c.Name,
			"item":     site.URL(c.Path),
		})
	}
	return Node{"@type": "BreadcrumbList", "itemListElement": items}
}

// FAQPage marks up question and answer pairs.
func FAQPage(faqs []FAQ) Node {
	entities := make([]Node, 0, len(faqs))
	for _, f := range faqs {
		entities = append(entities, Node{
			"@type": "Question",
			"name":  f.Question,
			"acceptedAnswer": Node{
				"@type": "Answer",
				"text":  f.Answer,
			},
		})
	}
	return Node{"@type": "FAQPage", "mainEntity": entities}
}

// CityFAQs returns the questions shown on a city page.
func CityFAQs(site Site, city registry.City) []FAQ {
	return []FAQ{
		{
			Question: fmt.Sprintf("When is the best time to sealcoat a church parking lot in %s?", city.Name),
			Answer: fmt.Sprintf("Between late May and September, when overnight temperatures in %s stay above 10°C. "+
				"We book work on weekdays so the lot is ready for weekend services.", city.Name),
		},
		{
			Question: "How often should a parking lot be sealcoated?",
			Answer: fmt.Sprintf("Every two to three years. In %s, %s shortens that cycle for lots that are left unsealed.",
				city.Name, city.PrimaryClimate()),
		},
		{
			Question: fmt.Sprintf("Does %s offer line painting?", site.Name),
			Answer:   "Yes. We re-stripe stalls, accessible parking, fire routes and drop-off zones once the sealcoat has cured.",
		},
	}
}

// BlogPosting describes an article.
func BlogPosting(site Site, a *blog.Article) Node {
	n := Node{
		"@type":            "BlogPosting",
		"@id":              "urn:uuid:" + a.UID,
		"headline":         a.Title,
		"description":      a.Description,
		"url":              site.URL(ArticlePath(a.Slug)),
		"datePublished":    a.Date.Format(time.RFC3339),
		"dateModified":     a.Modified.Format(time.RFC3339),
		"publisher":        Node{"@id": site.businessID()},
		"mainEntityOfPage": site.URL(ArticlePath(a.Slug)),
	}
	if a.Author != "" {
		n["author"] = Node{"@type": "Person", "name": a.Author}
	}
	if a.Image != "" {
		n["image"] = site.URL(a.Image)
	}
	if len(a.Tags) > 0 {
		n["keywords"] = a.Tags
	}
	return n
}

// JSONLD serializes nodes as one schema.org graph for a
// <script type="application/ld+json"> element.
func JSONLD(nodes ...Node) (template.JS, error) {
	doc := Node{"@context": schemaContext}
	switch len(nodes) {
	case 0:
		return "", nil
	case 1:
		for k, v := range nodes[0] {
			doc[k] = v
		}
	default:
		doc["@graph"] = nodes
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryRender, "failed to encode JSON-LD").Build()
	}
	return template.JS(out), nil //nolint:gosec // json.Marshal escapes <, > and &
}
