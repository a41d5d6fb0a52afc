// Package seo builds the search metadata of the site: head tags, schema.org
// JSON-LD graphs, the XML sitemap and robots.txt.
package seo

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/pavesite/internal/blog"
	"git.home.luguber.info/inful/pavesite/internal/registry"
)

// DescriptionLimit is the longest meta description emitted, in runes.
const DescriptionLimit = 160

// Site paths shared by the server, the export and the generators below.
const (
	HomePath      = "/"
	LocationsPath = "/locations"
	BlogPath      = "/blog"
	SitemapPath   = "/sitemap.xml"
	RobotsPath    = "/robots.txt"
)

// CityPath is the landing page path of a city.
func CityPath(slug string) string { return LocationsPath + "/" + slug }

// RegionPath is the landing page path of a region.
func RegionPath(slug string) string { return "/regions/" + slug }

// ArticlePath is the path of a blog article.
func ArticlePath(slug string) string { return BlogPath + "/" + slug }

// Site is the business identity used in titles and structured data.
type Site struct {
	Name          string
	BaseURL       string
	Phone         string
	Email         string
	Image         string
	TwitterHandle string
}

// URL resolves path against the site's base URL. Absolute URLs pass through.
func (s Site) URL(path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	base := strings.TrimRight(s.BaseURL, "/")
	if path == "" || path == "/" {
		return base + "/"
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

type OpenGraph struct {
	Title       string
	Description string
	Image       string
	Type        string
	URL         string
	SiteName    string
}

type Twitter struct {
	Card  string
	Site  string
	Image string
}

// Meta is the head metadata of one page.
type Meta struct {
	Title       string
	Description string
	Canonical   string
	OG          OpenGraph
	Twitter     Twitter
}

func newMeta(site Site, path, title, description, ogType, image string) Meta {
	description = blog.Truncate(strings.Join(strings.Fields(description), " "), DescriptionLimit)
	if image == "" {
		image = site.Image
	}
	if image != "" {
		image = site.URL(image)
	}
	card := "summary"
	if image != "" {
		card = "summary_large_image"
	}
	canonical := site.URL(path)
	return Meta{
		Title:       title,
		Description: description,
		Canonical:   canonical,
		OG: OpenGraph{
			Title:       title,
			Description: description,
			Image:       image,
			Type:        ogType,
			URL:         canonical,
			SiteName:    site.Name,
		},
		Twitter: Twitter{Card: card, Site: site.TwitterHandle, Image: image},
	}
}

func HomeMeta(site Site) Meta {
	return newMeta(site, HomePath,
		fmt.Sprintf("Church Parking Lot Sealcoating in Ontario | %s", site.Name),
		"Sealcoating, crack filling and line painting for churches, parishes and places of worship across Ontario. Work scheduled around your services.",
		"website", "")
}

func LocationsMeta(site Site, cities int) Meta {
	return newMeta(site, LocationsPath,
		fmt.Sprintf("Service Areas | %s", site.Name),
		fmt.Sprintf("%s serves congregations in %d Ontario communities. Find your city for local scheduling and climate advice.", site.Name, cities),
		"website", "")
}

// CityMeta titles a city page "Sealcoating in {City} | {Business}".
func CityMeta(site Site, city registry.City, region registry.Region) Meta {
	desc := fmt.Sprintf("Church parking lot sealcoating in %s, %s. Protection against %s from %s.",
		city.Name, region.Name, city.PrimaryClimate(), site.Name)
	return newMeta(site, CityPath(city.Slug),
		fmt.Sprintf("Sealcoating in %s | %s", city.Name, site.Name),
		desc, "website", "")
}

func RegionMeta(site Site, region registry.Region) Meta {
	desc := region.Description
	if desc == "" {
		desc = fmt.Sprintf("Parking lot sealcoating for churches across %s.", region.Name)
	}
	return newMeta(site, RegionPath(region.Slug),
		fmt.Sprintf("Sealcoating in %s | %s", region.Name, site.Name),
		desc, "website", "")
}

func BlogIndexMeta(site Site) Meta {
	return newMeta(site, BlogPath,
		fmt.Sprintf("Parking Lot Care for Congregations | %s Blog", site.Name),
		"Seasonal maintenance advice for church facility teams: sealcoating, crack repair, line painting and budgeting.",
		"website", "")
}

func ArticleMeta(site Site, a *blog.Article) Meta {
	return newMeta(site, ArticlePath(a.Slug),
		fmt.Sprintf("%s | %s", a.Title, site.Name),
		a.Description, "article", a.Image)
}
