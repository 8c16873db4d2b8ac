package feature

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/sjson"

	"github.com/sfomuseum/go-geotag-kmz/common"
	"github.com/sfomuseum/go-geotag-kmz/metadata"
)

// type Coordinates stores a single longitude, latitude coordinate pair.
type Coordinates []float64

// type Geometry stores a GeoJSON geometry dictionary.
type Geometry struct {
	Type        string      `json:"type"`
	Coordinates Coordinates `json:"coordinates"`
}

// type Properties stores a GeoJSON properties dictionary.
type Properties map[string]interface{}

// type Feature provides a GeoJSON struct.
type Feature struct {
	Type       string     `json:"type"`
	Properties Properties `json:"properties"`
	Geometry   Geometry   `json:"geometry"`
}

// NewPhotoFeatureOptions is a struct containing application-specific options
// used in the creation of new photo-related GeoJSON Features.
type NewPhotoFeatureOptions struct {
	// The SHA-1 fingerprint of the source image, if computed.
	Fingerprint string
	// Perceptual hashes of the source image, if computed.
	ImageHashes []*common.ImageHashRsp
	// Custom properties to assign to the new Feature.
	CustomProperties map[string]interface{}
}

// NewPhotoFeature creates a GeoJSON Point Feature for a single geotagged image
// record.
func NewPhotoFeature(rec *metadata.Record, opts *NewPhotoFeatureOptions) ([]byte, error) {

	coords := Coordinates{
		rec.Longitude,
		rec.Latitude,
	}

	geom := Geometry{
		Type:        "Point",
		Coordinates: coords,
	}

	props := make(Properties)

	props["geotag:filename"] = rec.Filename
	props["geotag:altitude"] = rec.Altitude

	if rec.HasHeading {
		props["geotag:heading"] = rec.Heading
	}

	props["media:medium"] = "image"
	props["media:mimetype"] = rec.MimeType

	if rec.HasTaken {
		props["media:created"] = rec.Taken.Unix()
	}

	if opts != nil {

		if opts.Fingerprint != "" {
			props["media:fingerprint"] = opts.Fingerprint
		}

		for _, h := range opts.ImageHashes {
			k := fmt.Sprintf("media:imagehash_%s", h.Approach)
			props[k] = h.Hash
		}

		for k, v := range opts.CustomProperties {
			props[k] = v
		}
	}

	f := &Feature{
		Type:       "Feature",
		Geometry:   geom,
		Properties: props,
	}

	enc_f, err := json.Marshal(f)

	if err != nil {
		return nil, err
	}

	return enc_f, nil
}

// NewFeatureCollection bundles zero or more encoded Features in to a GeoJSON
// FeatureCollection document.
func NewFeatureCollection(features ...[]byte) ([]byte, error) {

	body := []byte(`{"type":"FeatureCollection","features":[]}`)

	var err error

	for i, f := range features {

		body, err = sjson.SetRawBytes(body, "features.-1", f)

		if err != nil {
			return nil, fmt.Errorf("Failed to append feature %d, %w", i, err)
		}
	}

	return body, nil
}
