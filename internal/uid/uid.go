// Package uid generates compact, time-ordered note identifiers.
//
// An identifier is the base-36 Unix millisecond clock followed by the base-36
// digits of a random fraction. Collisions are possible but astronomically
// unlikely at note-taking volumes; identifiers are not secrets.
package uid

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// fractionDigits caps the random suffix, matching the precision a float64
// fraction carries in base 36.
const fractionDigits = 11

// Generator produces identifiers from a clock and a random source.
type Generator struct {
	Now  func() time.Time
	Rand func() float64
}

var defaultGenerator = Generator{Now: time.Now, Rand: rand.Float64}

// New returns a fresh identifier using the wall clock and math/rand.
func New() string {
	return defaultGenerator.New()
}

// New returns a fresh identifier.
func (g Generator) New() string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(g.Now().UnixMilli(), 36))
	b.WriteString(fraction36(g.Rand()))
	return b.String()
}

// fraction36 renders the digits after the radix point of f in base 36.
func fraction36(f float64) string {
	var b strings.Builder
	for i := 0; i < fractionDigits && f > 0; i++ {
		f *= 36
		d := int(f)
		b.WriteString(strconv.FormatInt(int64(d), 36))
		f -= float64(d)
	}
	if b.Len() == 0 {
		return "0"
	}
	return b.String()
}
