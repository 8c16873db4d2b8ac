package feature

import (
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/sfomuseum/go-geotag-kmz/common"
	"github.com/sfomuseum/go-geotag-kmz/metadata"
)

func TestNewPhotoFeature(t *testing.T) {

	taken := time.Date(2021, 7, 4, 12, 30, 0, 0, time.UTC)

	rec := &metadata.Record{
		Latitude:   37.819722,
		Longitude:  -122.478611,
		Altitude:   67.0,
		Heading:    123.5,
		HasHeading: true,
		Taken:      taken,
		HasTaken:   true,
		Filename:   "photos/bridge.jpg",
		MimeType:   "image/jpeg",
	}

	opts := &NewPhotoFeatureOptions{
		Fingerprint: "abc123",
		ImageHashes: []*common.ImageHashRsp{
			&common.ImageHashRsp{Approach: "average", Hash: "a:ffff"},
		},
		CustomProperties: map[string]interface{}{
			"trip:name": "golden gate",
		},
	}

	body, err := NewPhotoFeature(rec, opts)

	if err != nil {
		t.Fatalf("Failed to create feature, %v", err)
	}

	if gjson.GetBytes(body, "type").String() != "Feature" {
		t.Error("Expected a Feature type")
	}

	if gjson.GetBytes(body, "geometry.type").String() != "Point" {
		t.Error("Expected a Point geometry")
	}

	coords := gjson.GetBytes(body, "geometry.coordinates").Array()

	if len(coords) != 2 {
		t.Fatalf("Found %d coordinates, expected 2", len(coords))
	}

	if coords[0].Float() != rec.Longitude || coords[1].Float() != rec.Latitude {
		t.Errorf("Coordinates are [%f, %f], expected [%f, %f]", coords[0].Float(), coords[1].Float(), rec.Longitude, rec.Latitude)
	}

	tests := map[string]string{
		"properties.geotag:filename":         "photos/bridge.jpg",
		"properties.geotag:heading":          "123.5",
		"properties.media:mimetype":          "image/jpeg",
		"properties.media:fingerprint":       "abc123",
		"properties.media:imagehash_average": "a:ffff",
		"properties.trip:name":               "golden gate",
	}

	for path, expected := range tests {

		rsp := gjson.GetBytes(body, path)

		if !rsp.Exists() {
			t.Errorf("Missing %s", path)
			continue
		}

		if rsp.String() != expected {
			t.Errorf("%s is %s, expected %s", path, rsp.String(), expected)
		}
	}

	if gjson.GetBytes(body, "properties.media:created").Int() != taken.Unix() {
		t.Error("Unexpected media:created value")
	}
}

func TestNewPhotoFeatureOmitsAbsentValues(t *testing.T) {

	rec := &metadata.Record{
		Latitude:  1.0,
		Longitude: 2.0,
		Filename:  "one.jpg",
		MimeType:  "image/jpeg",
	}

	body, err := NewPhotoFeature(rec, nil)

	if err != nil {
		t.Fatalf("Failed to create feature, %v", err)
	}

	for _, path := range []string{
		"properties.geotag:heading",
		"properties.media:created",
		"properties.media:fingerprint",
	} {

		if gjson.GetBytes(body, path).Exists() {
			t.Errorf("Expected %s to be omitted", path)
		}
	}
}

func TestNewFeatureCollection(t *testing.T) {

	f1 := []byte(`{"type":"Feature","properties":{"geotag:filename":"one.jpg"},"geometry":{"type":"Point","coordinates":[1,2]}}`)
	f2 := []byte(`{"type":"Feature","properties":{"geotag:filename":"two.jpg"},"geometry":{"type":"Point","coordinates":[3,4]}}`)

	body, err := NewFeatureCollection(f1, f2)

	if err != nil {
		t.Fatalf("Failed to create feature collection, %v", err)
	}

	if gjson.GetBytes(body, "type").String() != "FeatureCollection" {
		t.Error("Expected a FeatureCollection type")
	}

	features := gjson.GetBytes(body, "features").Array()

	if len(features) != 2 {
		t.Fatalf("Found %d features, expected 2", len(features))
	}

	if features[1].Get("properties.geotag:filename").String() != "two.jpg" {
		t.Error("Features are out of order")
	}
}

func TestNewFeatureCollectionEmpty(t *testing.T) {

	body, err := NewFeatureCollection()

	if err != nil {
		t.Fatalf("Failed to create feature collection, %v", err)
	}

	if !gjson.GetBytes(body, "features").IsArray() {
		t.Error("Expected an empty features array")
	}
}
