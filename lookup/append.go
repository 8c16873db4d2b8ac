package lookup

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/sfomuseum/go-geotag-kmz/common"
)

// AppendLookupFunc derives catalog entries from a single source document (an
// image, a run report) and stores them in lu.
type AppendLookupFunc func(context.Context, *sync.Map, string, io.ReadCloser) error

// FingerprintAppendLookupFunc catalogs the SHA-1 fingerprint of an image's raw
// bytes, keyed by fingerprint with the source path as the value. An already
// catalogued fingerprint is not an error; sources may legitimately contain
// copies.
func FingerprintAppendLookupFunc(ctx context.Context, lu *sync.Map, path string, fh io.ReadCloser) error {

	body, err := io.ReadAll(fh)

	if err != nil {
		return err
	}

	fp := common.Fingerprint(body)

	_, exists := lu.LoadOrStore(fp, path)

	if exists {
		slog.Debug("Existing fingerprint key", "fingerprint", fp, "path", path)
	}

	return nil
}

// ReportAppendLookupFunc catalogs every fingerprint recorded in a conversion
// run report (see operations/report).
func ReportAppendLookupFunc(ctx context.Context, lu *sync.Map, path string, fh io.ReadCloser) error {

	body, err := io.ReadAll(fh)

	if err != nil {
		return err
	}

	results_rsp := gjson.GetBytes(body, "results")

	if !results_rsp.Exists() {
		slog.Debug("Missing results, skipping", "path", path)
		return nil
	}

	for _, r := range results_rsp.Array() {

		fp_rsp := r.Get("fingerprint")

		if !fp_rsp.Exists() || fp_rsp.String() == "" {
			continue
		}

		lu.LoadOrStore(fp_rsp.String(), path)
	}

	return nil
}
