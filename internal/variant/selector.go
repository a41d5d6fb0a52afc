package variant

import "fmt"

// Section is a named zone of a city landing page.
type Section string

const (
	SectionIntro       Section = "intro"
	SectionServices    Section = "services"
	SectionPackage     Section = "package"
	SectionHowItWorks  Section = "howitworks"
	SectionCommunities Section = "communities"
)

var sections = []Section{
	SectionIntro,
	SectionServices,
	SectionPackage,
	SectionHowItWorks,
	SectionCommunities,
}

// Sections returns the canonical sections in page order.
func Sections() []Section {
	out := make([]Section, len(sections))
	copy(out, sections)
	return out
}

// Known reports whether s is one of the canonical sections.
func (s Section) Known() bool {
	for _, k := range sections {
		if k == s {
			return true
		}
	}
	return false
}

// Index identifies one of the Count variants of a section, 1-based.
type Index int

// Valid reports whether the index lies in [1, Count].
func (i Index) Valid() bool {
	return i >= 1 && i <= Count
}

// Slot returns the 0-based position of the index in a variant table.
func (i Index) Slot() int {
	return int(MustIndex(int(i))) - 1
}

// MustIndex converts n to an Index and panics when it is out of range.
// An out-of-range index means the selection arithmetic was broken.
func MustIndex(n int) Index {
	idx := Index(n)
	if !idx.Valid() {
		panic(fmt.Sprintf("variant: index %d outside [1,%d]", n, Count))
	}
	return idx
}

// Select returns the variant index for an entity and section. The entity
// slug comes first and the two are joined without a delimiter; previously
// rendered pages depend on that exact key.
func Select(entityID string, section Section) Index {
	return MustIndex(Hash(entityID + string(section)))
}
