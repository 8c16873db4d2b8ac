package orientation

import (
	"math"
)

// Resolve maps an optional heading to the icon rotation used to parameterize a
// placemark's icon style. Rotation is continuous (not bucketed) and expressed in
// degrees clockwise from north, matching the KML IconStyle heading convention.
//
// When no heading is present the rotation defaults to 0 so the icon points
// north. That default is indistinguishable from an image genuinely facing north
// in the output document; callers needing the distinction must check for the
// presence of heading metadata themselves (metadata.Record.HasHeading).
func Resolve(heading float64, present bool) float64 {

	if !present {
		return 0
	}

	return Normalize(heading)
}

// Normalize wraps a heading value in to the [0, 360) range.
func Normalize(heading float64) float64 {

	h := math.Mod(heading, 360.0)

	if h < 0 {
		h += 360.0
	}

	return h
}
