// Package registry holds the static city and region dataset behind the
// location pages.
//
// The dataset is loaded once, validated eagerly, and is read-only afterwards;
// lookups are safe from any number of goroutines without locking.
package registry

import (
	"bytes"
	_ "embed"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/golang/geo/s2"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/pavesite/internal/foundation/errors"
	"git.home.luguber.info/inful/pavesite/internal/slug"
)

//go:embed data/ontario.yaml
var defaultDataset []byte

// earthRadiusKM is the mean Earth radius used for great-circle distances.
const earthRadiusKM = 6371.0088

// Registry is an immutable lookup of cities and regions keyed by slug.
type Registry struct {
	cities  map[string]City
	regions map[string]Region
	// sorted slugs for stable iteration
	citySlugs   []string
	regionSlugs []string
}

// Default loads the embedded Ontario dataset.
func Default() (*Registry, error) {
	return Load(bytes.NewReader(defaultDataset))
}

// LoadFile loads a registry from a YAML file on disk.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to open registry file").
			WithContext("path", path).
			Build()
	}
	defer func() { _ = f.Close() }()

	reg, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load registry %s: %w", path, err)
	}
	return reg, nil
}

// Load decodes and validates a registry dataset.
func Load(r io.Reader) (*Registry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var ds dataset
	if err := dec.Decode(&ds); err != nil {
		return nil, errors.WrapError(err, errors.CategoryContent, "failed to decode registry dataset").
			UserAction().
			Build()
	}
	return New(ds.Regions, ds.Cities)
}

// New builds a registry from regions and cities, failing on the first load
// with every integrity problem found.
func New(regions []Region, cities []City) (*Registry, error) {
	reg := &Registry{
		cities:  make(map[string]City, len(cities)),
		regions: make(map[string]Region, len(regions)),
	}

	var problems []error
	for _, r := range regions {
		if err := checkEntity("region", r.Slug, r.Name, r.Climate); err != nil {
			problems = append(problems, err)
			continue
		}
		if _, dup := reg.regions[r.Slug]; dup {
			problems = append(problems, fmt.Errorf("region %q: duplicate slug", r.Slug))
			continue
		}
		reg.regions[r.Slug] = r.clone()
	}

	members := make(map[string][]string)
	for _, c := range cities {
		if err := checkEntity("city", c.Slug, c.Name, c.Climate); err != nil {
			problems = append(problems, err)
			continue
		}
		if _, dup := reg.cities[c.Slug]; dup {
			problems = append(problems, fmt.Errorf("city %q: duplicate slug", c.Slug))
			continue
		}
		if _, ok := reg.regions[c.Region]; !ok {
			problems = append(problems, fmt.Errorf("city %q: region %q does not exist", c.Slug, c.Region))
			continue
		}
		if c.Location.Lat < -90 || c.Location.Lat > 90 || c.Location.Lng < -180 || c.Location.Lng > 180 {
			problems = append(problems, fmt.Errorf("city %q: location out of range", c.Slug))
			continue
		}
		reg.cities[c.Slug] = c.clone()
		members[c.Region] = append(members[c.Region], c.Name)
	}

	for slug, r := range reg.regions {
		want := slices.Clone(members[slug])
		got := slices.Clone(r.Cities)
		slices.Sort(want)
		slices.Sort(got)
		if !slices.Equal(want, got) {
			problems = append(problems, fmt.Errorf("region %q: cities list %v disagrees with member cities %v", slug, r.Cities, members[slug]))
		}
	}

	if len(problems) > 0 {
		return nil, errors.WrapError(stderrors.Join(problems...), errors.CategoryContent, "registry integrity check failed").
			UserAction().
			WithContext("problems", len(problems)).
			Build()
	}

	for slug := range reg.cities {
		reg.citySlugs = append(reg.citySlugs, slug)
	}
	for slug := range reg.regions {
		reg.regionSlugs = append(reg.regionSlugs, slug)
	}
	sort.Strings(reg.citySlugs)
	sort.Strings(reg.regionSlugs)
	return reg, nil
}

func checkEntity(kind, id, name string, climate []string) error {
	switch {
	case id == "":
		return fmt.Errorf("%s %q: slug is required", kind, name)
	case !slug.Valid(id):
		return fmt.Errorf("%s %q: slug is not URL-safe (want %q)", kind, id, slug.Make(id))
	case name == "":
		return fmt.Errorf("%s %q: name is required", kind, id)
	case len(climate) == 0:
		return fmt.Errorf("%s %q: climate list is empty", kind, id)
	}
	for i, tag := range climate {
		if tag == "" {
			return fmt.Errorf("%s %q: climate[%d] is blank", kind, id, i)
		}
	}
	return nil
}

// City returns the city with the given slug.
func (r *Registry) City(slug string) (City, error) {
	c, ok := r.cities[slug]
	if !ok {
		return City{}, errors.NotFound("city not found").WithContext("slug", slug).Build()
	}
	return c.clone(), nil
}

// Region returns the region with the given slug.
func (r *Registry) Region(slug string) (Region, error) {
	reg, ok := r.regions[slug]
	if !ok {
		return Region{}, errors.NotFound("region not found").WithContext("slug", slug).Build()
	}
	return reg.clone(), nil
}

// Cities returns every city ordered by slug.
func (r *Registry) Cities() []City {
	out := make([]City, 0, len(r.citySlugs))
	for _, slug := range r.citySlugs {
		out = append(out, r.cities[slug].clone())
	}
	return out
}

// Regions returns every region ordered by slug.
func (r *Registry) Regions() []Region {
	out := make([]Region, 0, len(r.regionSlugs))
	for _, slug := range r.regionSlugs {
		out = append(out, r.regions[slug].clone())
	}
	return out
}

// CitiesIn returns the member cities of a region ordered by name.
func (r *Registry) CitiesIn(regionSlug string) ([]City, error) {
	if _, ok := r.regions[regionSlug]; !ok {
		return nil, errors.NotFound("region not found").WithContext("slug", regionSlug).Build()
	}
	var out []City
	for _, slug := range r.citySlugs {
		if c := r.cities[slug]; c.Region == regionSlug {
			out = append(out, c.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Neighbour is a city together with its distance from a reference city.
type Neighbour struct {
	City       City
	DistanceKM float64
}

// Nearby returns up to n other cities closest to slug, nearest first.
func (r *Registry) Nearby(slug string, n int) ([]Neighbour, error) {
	origin, ok := r.cities[slug]
	if !ok {
		return nil, errors.NotFound("city not found").WithContext("slug", slug).Build()
	}
	from := s2.LatLngFromDegrees(origin.Location.Lat, origin.Location.Lng)

	out := make([]Neighbour, 0, len(r.cities)-1)
	for _, other := range r.citySlugs {
		if other == slug {
			continue
		}
		c := r.cities[other]
		to := s2.LatLngFromDegrees(c.Location.Lat, c.Location.Lng)
		out = append(out, Neighbour{City: c.clone(), DistanceKM: from.Distance(to).Radians() * earthRadiusKM})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKM < out[j].DistanceKM })
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out, nil
}

// Len returns the number of cities.
func (r *Registry) Len() int { return len(r.cities) }
