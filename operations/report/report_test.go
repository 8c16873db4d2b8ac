package report

import (
	"testing"

	"github.com/tidwall/gjson"

	"github.com/sfomuseum/go-geotag-kmz/common"
	"github.com/sfomuseum/go-geotag-kmz/operations/convert"
)

func testResults() []*convert.Result {

	return []*convert.Result{
		&convert.Result{
			Index:       0,
			Filename:    "one.jpg",
			Status:      convert.StatusIncluded,
			Fingerprint: "abc123",
			ImageHashes: []*common.ImageHashRsp{
				&common.ImageHashRsp{Approach: "average", Hash: "a:ffff"},
			},
		},
		&convert.Result{
			Index:    1,
			Filename: "two.png",
			Status:   convert.StatusSkipped,
			Reason:   convert.ReasonNoMetadata,
		},
		&convert.Result{
			Index:    2,
			Filename: "three.jpg",
			Status:   convert.StatusIncluded,
		},
	}
}

func TestMarshalReport(t *testing.T) {

	body, err := MarshalReport("photos.kmz", testResults())

	if err != nil {
		t.Fatalf("Failed to marshal report, %v", err)
	}

	tests := map[string]string{
		"archive":                     "photos.kmz",
		"counts.total":                "3",
		"counts.included":             "2",
		"counts.skipped":              "1",
		"results.0.filename":          "one.jpg",
		"results.0.status":            "included",
		"results.0.fingerprint":       "abc123",
		"results.0.imagehash_average": "a:ffff",
		"results.1.filename":          "two.png",
		"results.1.status":            "skipped",
		"results.1.reason":            "no metadata",
		"results.2.status":            "included",
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

	if gjson.GetBytes(body, "results.0.reason").Exists() {
		t.Error("Included results should not record a reason")
	}
}

func TestIncludedPaths(t *testing.T) {

	body, err := MarshalReport("photos.kmz", testResults())

	if err != nil {
		t.Fatalf("Failed to marshal report, %v", err)
	}

	included := IncludedPaths(body)

	if len(included) != 2 || included[0] != "one.jpg" || included[1] != "three.jpg" {
		t.Errorf("Included paths are %v", included)
	}

	skipped := SkippedPaths(body)

	if len(skipped) != 1 || skipped[0] != "two.png" {
		t.Errorf("Skipped paths are %v", skipped)
	}
}
