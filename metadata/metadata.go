package metadata

import (
	"errors"
	"time"
)

var (
	// ErrNoMetadata is returned when an image does not contain a decodable EXIF tag set.
	ErrNoMetadata = errors.New("No EXIF metadata")
	// ErrIncompleteCoordinates is returned when an image contains EXIF data but latitude or longitude is missing or unparsable.
	ErrIncompleteCoordinates = errors.New("Incomplete GPS coordinates")
)

// Record is a normalized geolocation record for a single image. A Record is only
// constructed when both latitude and longitude were extracted successfully; every
// other field is optional and falls back to a zero value.
type Record struct {
	// Latitude in signed decimal degrees (negative is the southern hemisphere).
	Latitude float64
	// Longitude in signed decimal degrees (negative is the western hemisphere).
	Longitude float64
	// Altitude in meters. Defaults to 0 when the tag is absent or corrupt.
	Altitude float64
	// Heading in degrees clockwise from north, in [0, 360). Only meaningful when HasHeading is true.
	Heading float64
	// HasHeading signals whether a direction tag was present. A missing heading is
	// not the same thing as an image facing north; callers that care must check here.
	HasHeading bool
	// Taken is the capture time derived from the DateTimeOriginal (or DateTime) tag.
	Taken time.Time
	// HasTaken signals whether a capture time could be parsed.
	HasTaken bool
	// Orientation is the raw EXIF orientation tag value, 0 when absent.
	Orientation int
	// Filename is the source filename for the image.
	Filename string
	// MimeType is the declared media type for the image.
	MimeType string
	// Body is the raw image data. It is treated as read-only.
	Body []byte
}
