package feed

import (
	"math"
	"strconv"
)

var units = []struct {
	size   float64
	suffix string
}{
	{1e3, "k"},
	{1e6, "m"},
	{1e9, "b"},
}

// FormatCount abbreviates counts of a thousand or more to one decimal
// place with a k, m or b suffix.
func FormatCount(n int) string {
	v := math.Abs(float64(n))
	if v < 1000 {
		return strconv.Itoa(n)
	}
	i := 0
	for i < len(units)-1 && v >= units[i+1].size {
		i++
	}
	scaled := math.Round(v/units[i].size*10) / 10
	if scaled >= 1000 && i < len(units)-1 {
		i++
		scaled = math.Round(v/units[i].size*10) / 10
	}
	s := strconv.FormatFloat(scaled, 'f', 1, 64) + units[i].suffix
	if n < 0 {
		return "-" + s
	}
	return s
}
