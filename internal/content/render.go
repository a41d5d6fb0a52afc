package content

import (
	stderrors "errors"
	"fmt"
	"html/template"
	"strings"

	"git.home.luguber.info/inful/pavesite/internal/foundation/errors"
	"git.home.luguber.info/inful/pavesite/internal/registry"
	"git.home.luguber.info/inful/pavesite/internal/variant"
)

// NearbyCount is how many neighbouring cities a communities block mentions.
const NearbyCount = 4

// Business identifies the contractor in rendered copy.
type Business struct {
	Name  string
	Phone string
	Email string
}

// Data is what a variant template sees.
type Data struct {
	City   registry.City
	Region registry.Region
	Site   Business
	Nearby []registry.City
}

// Block is a rendered section.
type Block struct {
	Section variant.Section
	Index   variant.Index
	Heading template.HTML
	HTML    template.HTML
}

// DataFor resolves the template data for a city.
func DataFor(reg *registry.Registry, citySlug string, biz Business) (Data, error) {
	city, err := reg.City(citySlug)
	if err != nil {
		return Data{}, err
	}
	region, err := reg.Region(city.Region)
	if err != nil {
		return Data{}, err
	}
	near, err := reg.Nearby(citySlug, NearbyCount)
	if err != nil {
		return Data{}, err
	}
	d := Data{City: city, Region: region, Site: biz}
	for _, n := range near {
		d.Nearby = append(d.Nearby, n.City)
	}
	return d, nil
}

// Render executes the variant at idx for section with data.
func (t *Table) Render(section variant.Section, idx variant.Index, data Data) (Block, error) {
	v, err := t.Variant(section, idx)
	if err != nil {
		return Block{}, err
	}

	var heading, body strings.Builder
	if err := v.heading.Execute(&heading, data); err != nil {
		return Block{}, renderErr(err, section, idx, data)
	}
	if err := v.body.Execute(&body, data); err != nil {
		return Block{}, renderErr(err, section, idx, data)
	}
	return Block{
		Section: section,
		Index:   idx,
		Heading: template.HTML(heading.String()), //nolint:gosec // produced by html/template
		HTML:    template.HTML(body.String()),    //nolint:gosec // produced by html/template
	}, nil
}

func renderErr(err error, section variant.Section, idx variant.Index, data Data) error {
	return errors.WrapError(err, errors.CategoryRender, "variant failed to render").
		WithContext("section", string(section)).
		WithContext("variant", int(idx)).
		WithContext("city", data.City.Slug).
		Build()
}

// Validate renders every variant against every city in reg so template
// mistakes surface at startup rather than on a visitor's request.
func (t *Table) Validate(reg *registry.Registry, biz Business) error {
	var problems []error
	for _, city := range reg.Cities() {
		data, err := DataFor(reg, city.Slug, biz)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		for _, section := range t.Sections() {
			for n := 1; n <= variant.Count; n++ {
				if _, err := t.Render(section, variant.Index(n), data); err != nil {
					problems = append(problems, fmt.Errorf("%s/%s#%d: %w", city.Slug, section, n, err))
				}
			}
		}
	}
	if len(problems) > 0 {
		return errors.WrapError(stderrors.Join(problems...), errors.CategoryContent, "variant dry run failed").
			UserAction().
			WithContext("failures", len(problems)).
			Build()
	}
	return nil
}
