package metadata

import (
	"bytes"
	"sync"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	"github.com/rwcarlsen/goexif/tiff"
)

var register_parsers = sync.OnceFunc(func() {
	exif.RegisterParsers(mknote.All...)
})

// Extract reads the EXIF tag set embedded in body and returns a normalized
// geolocation Record. It returns ErrNoMetadata when no tag set can be decoded
// and ErrIncompleteCoordinates when latitude or longitude is missing or
// unparsable. Corruption in any other individual tag causes that field to be
// treated as absent rather than failing the record.
func Extract(body []byte, filename string, mimetype string) (*Record, error) {

	register_parsers()

	x, err := exif.Decode(bytes.NewReader(body))

	if err != nil {
		return nil, ErrNoMetadata
	}

	lat, lon, err := x.LatLong()

	if err != nil {
		return nil, ErrIncompleteCoordinates
	}

	if lat < -90.0 || lat > 90.0 || lon < -180.0 || lon > 180.0 {
		return nil, ErrIncompleteCoordinates
	}

	rec := &Record{
		Latitude:  lat,
		Longitude: lon,
		Filename:  filename,
		MimeType:  mimetype,
		Body:      body,
	}

	if alt, ok := altitude(x); ok {
		rec.Altitude = alt
	}

	if h, ok := heading(x); ok {
		rec.Heading = h
		rec.HasHeading = true
	}

	if t, err := x.DateTime(); err == nil {
		rec.Taken = t
		rec.HasTaken = true
	}

	if o_tag, err := x.Get(exif.Orientation); err == nil {

		if o, err := o_tag.Int(0); err == nil {
			rec.Orientation = o
		}
	}

	return rec, nil
}

// altitude reads the GPSAltitude tag (meters) applying the below-sea-level
// reference, if present.
func altitude(x *exif.Exif) (float64, bool) {

	tag, err := x.Get(exif.GPSAltitude)

	if err != nil {
		return 0, false
	}

	v, ok := ratValue(tag)

	if !ok {
		return 0, false
	}

	ref_tag, err := x.Get(exif.GPSAltitudeRef)

	if err == nil {

		if ref, err := ref_tag.Int(0); err == nil && ref == 1 {
			v = -v
		}
	}

	return v, true
}

// heading reads the GPSImgDirection tag. The value is already expressed in
// degrees clockwise from north so no conversion is applied here.
func heading(x *exif.Exif) (float64, bool) {

	tag, err := x.Get(exif.GPSImgDirection)

	if err != nil {
		return 0, false
	}

	return ratValue(tag)
}

// ratValue returns the first value of a tag as a float64, tolerating the
// rational, integer and floating point encodings seen in the wild.
func ratValue(tag *tiff.Tag) (float64, bool) {

	if num, den, err := tag.Rat2(0); err == nil {

		if den == 0 {
			return 0, false
		}

		return float64(num) / float64(den), true
	}

	if i, err := tag.Int(0); err == nil {
		return float64(i), true
	}

	if f, err := tag.Float(0); err == nil {
		return f, true
	}

	return 0, false
}
