package report

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/sfomuseum/go-geotag-kmz/operations/convert"
)

// MarshalReport generates a JSON document describing a conversion run: the
// archive name, aggregate counts and the per-image outcome for every input, in
// input order.
func MarshalReport(name string, results []*convert.Result) ([]byte, error) {

	body := []byte(`{}`)

	var err error

	included := 0

	for _, rsp := range results {

		if rsp.Status == convert.StatusIncluded {
			included += 1
		}
	}

	updates := [][2]interface{}{
		{"archive", name},
		{"counts.total", len(results)},
		{"counts.included", included},
		{"counts.skipped", len(results) - included},
	}

	for _, u := range updates {

		body, err = sjson.SetBytes(body, u[0].(string), u[1])

		if err != nil {
			return nil, fmt.Errorf("Failed to assign %s property, %w", u[0], err)
		}
	}

	for i, rsp := range results {

		root := fmt.Sprintf("results.%d", i)

		body, err = sjson.SetBytes(body, fmt.Sprintf("%s.filename", root), rsp.Filename)

		if err != nil {
			return nil, fmt.Errorf("Failed to assign filename for %s, %w", rsp.Filename, err)
		}

		body, err = sjson.SetBytes(body, fmt.Sprintf("%s.status", root), string(rsp.Status))

		if err != nil {
			return nil, fmt.Errorf("Failed to assign status for %s, %w", rsp.Filename, err)
		}

		if rsp.Reason != "" {

			body, err = sjson.SetBytes(body, fmt.Sprintf("%s.reason", root), string(rsp.Reason))

			if err != nil {
				return nil, fmt.Errorf("Failed to assign reason for %s, %w", rsp.Filename, err)
			}
		}

		if rsp.Fingerprint != "" {

			body, err = sjson.SetBytes(body, fmt.Sprintf("%s.fingerprint", root), rsp.Fingerprint)

			if err != nil {
				return nil, fmt.Errorf("Failed to assign fingerprint for %s, %w", rsp.Filename, err)
			}
		}

		for _, h := range rsp.ImageHashes {

			body, err = sjson.SetBytes(body, fmt.Sprintf("%s.imagehash_%s", root, h.Approach), h.Hash)

			if err != nil {
				return nil, fmt.Errorf("Failed to assign image hash for %s, %w", rsp.Filename, err)
			}
		}
	}

	return body, nil
}

// IncludedPaths returns the filenames recorded in a run report whose status is
// "included", in report order.
func IncludedPaths(body []byte) []string {
	return pathsWithStatus(body, string(convert.StatusIncluded))
}

// SkippedPaths returns the filenames recorded in a run report whose status is
// "skipped", in report order.
func SkippedPaths(body []byte) []string {
	return pathsWithStatus(body, string(convert.StatusSkipped))
}

func pathsWithStatus(body []byte, status string) []string {

	paths := make([]string, 0)

	for _, r := range gjson.GetBytes(body, "results").Array() {

		if r.Get("status").String() != status {
			continue
		}

		paths = append(paths, r.Get("filename").String())
	}

	return paths
}
