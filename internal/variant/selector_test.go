package variant

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect_ConcatenatesEntityThenSection(t *testing.T) {
	assert.Equal(t, Index(Hash("guelphintro")), Select("guelph", SectionIntro))
	assert.Equal(t, Index(6), Select("guelph", SectionIntro))
	assert.Equal(t, Index(8), Select("guelph", SectionServices))
	assert.Equal(t, Index(6), Select("guelph", SectionPackage))
	assert.Equal(t, Index(3), Select("guelph", SectionHowItWorks))
	assert.Equal(t, Index(1), Select("guelph", SectionCommunities))
}

func TestSelect_StableAcrossInvocations(t *testing.T) {
	want := Select("guelph", SectionIntro)
	for i := 0; i < 100; i++ {
		require.Equal(t, want, Select("guelph", SectionIntro))
	}
}

func TestSelect_SpreadsAcrossBuckets(t *testing.T) {
	buckets := make(map[Index]int)
	for i := 0; i < 100; i++ {
		buckets[Select(fmt.Sprintf("city-%03d", i), SectionServices)]++
	}

	// Not a uniformity proof; guards against a constant or degenerate selector.
	assert.GreaterOrEqual(t, len(buckets), 6, "too few distinct variants: %v", buckets)
	for idx, n := range buckets {
		assert.True(t, idx.Valid())
		assert.Less(t, n, 40, "bucket %d is overloaded", idx)
	}
}

func TestSelect_SensitiveToBothInputs(t *testing.T) {
	bySection := make(map[Index]bool)
	for _, s := range Sections() {
		bySection[Select("guelph", s)] = true
	}
	assert.Greater(t, len(bySection), 1)

	byCity := make(map[Index]bool)
	for _, c := range []string{"guelph", "kitchener", "waterloo", "london", "hamilton", "ottawa"} {
		byCity[Select(c, SectionIntro)] = true
	}
	assert.Greater(t, len(byCity), 1)
}

func TestIndex(t *testing.T) {
	assert.False(t, Index(0).Valid())
	assert.True(t, Index(1).Valid())
	assert.True(t, Index(10).Valid())
	assert.False(t, Index(11).Valid())
	assert.Equal(t, 0, Index(1).Slot())
	assert.Equal(t, 9, Index(10).Slot())

	assert.Panics(t, func() { MustIndex(0) })
	assert.Panics(t, func() { MustIndex(11) })
	assert.NotPanics(t, func() { MustIndex(5) })
}

func TestSections(t *testing.T) {
	got := Sections()
	require.Len(t, got, 5)
	assert.Equal(t, SectionIntro, got[0])
	got[0] = "mutated"
	assert.Equal(t, SectionIntro, Sections()[0], "Sections must return a copy")

	assert.True(t, SectionHowItWorks.Known())
	assert.False(t, Section("footer").Known())
}
