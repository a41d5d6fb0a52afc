package registry

import "slices"

// Location is a point in decimal degrees.
type Location struct {
	Lat float64 `yaml:"lat" json:"lat"`
	Lng float64 `yaml:"lng" json:"lng"`
}

// City is a community with its own landing page.
type City struct {
	Slug        string   `yaml:"slug" json:"slug"`
	Name        string   `yaml:"name" json:"name"`
	Region      string   `yaml:"region" json:"region"` // slug of the parent Region
	Climate     []string `yaml:"climate" json:"climate"`
	Description string   `yaml:"description" json:"description"`
	Location    Location `yaml:"location" json:"location"`
}

// PrimaryClimate returns the first climate tag. Every loaded city has one.
func (c City) PrimaryClimate() string {
	return c.Climate[0]
}

func (c City) clone() City {
	c.Climate = slices.Clone(c.Climate)
	return c
}

// Region groups cities. Cities is an ordered list of display names kept for
// convenience; membership is decided by City.Region.
type Region struct {
	Slug        string   `yaml:"slug" json:"slug"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Climate     []string `yaml:"climate" json:"climate"`
	Cities      []string `yaml:"cities" json:"cities"`
}

func (r Region) clone() Region {
	r.Climate = slices.Clone(r.Climate)
	r.Cities = slices.Clone(r.Cities)
	return r
}

// dataset is the on-disk shape of the registry file.
type dataset struct {
	Regions []Region `yaml:"regions"`
	Cities  []City   `yaml:"cities"`
}
