// Package variant picks which of the pre-authored content variants renders
// for a given city and page section.
//
// The choice is a pure function of the city slug and the section name, so a
// city page always shows the same prose across requests, processes and
// machines. The arithmetic wraps like a signed 32-bit integer at every step;
// changing that would reshuffle the variants of every published page.
package variant

// Count is the number of variants authored per section.
const Count = 10

// Raw returns the signed 32-bit accumulator for key.
//
// For each code point: acc = acc*31 + r, expressed as (acc<<5)-acc+r and
// wrapped to int32.
func Raw(key string) int32 {
	var acc int32
	for _, r := range key {
		acc = (acc << 5) - acc + int32(r)
	}
	return acc
}

// Hash maps key onto a variant index in [1, Count]. Hash("") is 1.
func Hash(key string) int {
	return fold(Raw(key))
}

// fold takes the absolute value in 64 bits so math.MinInt32 does not stay negative.
func fold(acc int32) int {
	v := int64(acc)
	if v < 0 {
		v = -v
	}
	return int(v%Count) + 1
}
