package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"sync"

	"github.com/sfomuseum/go-geotag-kmz/common"
	"github.com/sfomuseum/go-geotag-kmz/kmz"
	"github.com/sfomuseum/go-geotag-kmz/metadata"
	"github.com/sfomuseum/go-geotag-kmz/orientation"
)

// ErrNoValidImages is returned when every image in a batch was skipped and
// there is nothing to put in an archive.
var ErrNoValidImages = errors.New("No valid images")

// Status is the outcome for a single image in a batch.
type Status string

const (
	StatusIncluded Status = "included"
	StatusSkipped  Status = "skipped"
)

// Reason describes why an image was skipped.
type Reason string

const (
	ReasonUnsupportedFormat     Reason = "unsupported format"
	ReasonNoMetadata            Reason = "no metadata"
	ReasonIncompleteCoordinates Reason = "incomplete coordinates"
	ReasonThumbnail             Reason = "thumbnail failure"
	ReasonDuplicate             Reason = "duplicate"
	ReasonCancelled             Reason = "cancelled"
)

// Input is one image in a conversion batch.
type Input struct {
	// Filename is the source filename for the image.
	Filename string
	// Body is the raw image data.
	Body []byte
	// MimeType is the declared media type. When empty it is derived from the
	// filename extension.
	MimeType string
}

// Result is the per-image outcome of a conversion run. Every input image gets
// exactly one Result; nothing is dropped silently.
type Result struct {
	// Index is the position of the image in the input batch.
	Index int
	// Filename is the source filename for the image.
	Filename string
	// Status indicates whether the image was included in the archive.
	Status Status
	// Reason describes why the image was skipped, for skipped images.
	Reason Reason
	// Record is the extracted geolocation record, for included images.
	Record *metadata.Record
	// Rotation is the resolved icon rotation, for included images.
	Rotation float64
	// Fingerprint is the SHA-1 fingerprint of the source bytes, when computed.
	Fingerprint string
	// ImageHashes are perceptual hashes of the source image, when computed.
	ImageHashes []*common.ImageHashRsp

	thumbnail []byte
}

// ConvertOptions is a struct containing application-specific options used
// when converting a batch of images.
type ConvertOptions struct {
	// Name is the display name for the output document.
	Name string
	// Assets holds the shared fan icon (required) and optional logo.
	Assets *kmz.Assets
	// MaxDimension bounds thumbnail width and height, in pixels. 0 means the
	// default (common.DefaultMaxDimension).
	MaxDimension uint
	// HashImages indicates whether to compute fingerprints and perceptual
	// hashes for each image.
	HashImages bool
	// Catalog is an optional lookup map of previously seen image fingerprints.
	// When present, images whose fingerprint is already catalogued are skipped
	// as duplicates.
	Catalog *sync.Map
}

// Convert runs the conversion pipeline over a batch of images and returns the
// archive bytes plus one Result per input image, in input order. Images are
// processed concurrently; a failure for one image never aborts the batch. When
// zero placemarks are produced Convert fails with ErrNoValidImages and no
// archive is returned.
func Convert(ctx context.Context, opts *ConvertOptions, batch ...*Input) ([]byte, []*Result, error) {

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fingerprints := make([]string, len(batch))
	duplicates := make([]bool, len(batch))

	// Catalog checks happen sequentially, in input order, so that when a
	// batch contains copies it is always the first copy that is included.

	if opts.HashImages || opts.Catalog != nil {

		for idx, in := range batch {

			if !supportedFormat(resolveMimeType(in)) {
				continue
			}

			fingerprints[idx] = common.Fingerprint(in.Body)

			if opts.Catalog != nil {

				_, exists := opts.Catalog.LoadOrStore(fingerprints[idx], in.Filename)

				if exists {
					duplicates[idx] = true
				}
			}
		}
	}

	done_ch := make(chan bool)
	rsp_ch := make(chan *Result)

	for idx, in := range batch {

		go func(idx int, in *Input) {

			defer func() {
				done_ch <- true
			}()

			rsp_ch <- processImage(ctx, opts, idx, in, fingerprints[idx], duplicates[idx])

		}(idx, in)
	}

	remaining := len(batch)
	results := make([]*Result, len(batch))

	for remaining > 0 {

		select {
		case <-done_ch:
			remaining -= 1
		case rsp := <-rsp_ch:
			results[rsp.Index] = rsp
		}
	}

	included := 0

	for _, rsp := range results {

		if rsp.Status == StatusIncluded {
			included += 1
		}
	}

	if included == 0 {
		return nil, results, ErrNoValidImages
	}

	doc, err := kmz.NewDocument(opts.Name, opts.Assets)

	if err != nil {
		return nil, results, fmt.Errorf("Failed to create document, %w", err)
	}

	for _, rsp := range results {

		if rsp.Status != StatusIncluded {
			continue
		}

		_, err := doc.AddPlacemark(rsp.Record, rsp.Rotation, rsp.thumbnail)

		if err != nil {
			return nil, results, fmt.Errorf("Failed to add placemark for %s, %w", rsp.Filename, err)
		}
	}

	var buf bytes.Buffer

	err = doc.WriteArchive(&buf)

	if err != nil {
		return nil, results, fmt.Errorf("Failed to assemble archive, %w", err)
	}

	return buf.Bytes(), results, nil
}

// resolveMimeType returns the declared media type for an input, deriving it
// from the filename extension when absent.
func resolveMimeType(in *Input) string {

	if in.MimeType != "" {
		return in.MimeType
	}

	return mime.TypeByExtension(filepath.Ext(in.Filename))
}

func supportedFormat(mimetype string) bool {

	switch mimetype {
	case "image/jpeg", "image/png":
		return true
	default:
		return false
	}
}

// processImage runs extraction, orientation resolution and thumbnailing for a
// single image. It always returns a Result; per-image failures are recorded as
// skips.
func processImage(ctx context.Context, opts *ConvertOptions, idx int, in *Input, fingerprint string, is_duplicate bool) *Result {

	rsp := &Result{
		Index:    idx,
		Filename: in.Filename,
		Status:   StatusSkipped,
	}

	select {
	case <-ctx.Done():
		rsp.Reason = ReasonCancelled
		return rsp
	default:
		// pass
	}

	logger := slog.Default()
	logger = logger.With("filename", in.Filename)

	mimetype := resolveMimeType(in)

	if !supportedFormat(mimetype) {
		logger.Warn("Unsupported format", "mimetype", mimetype)
		rsp.Reason = ReasonUnsupportedFormat
		return rsp
	}

	rsp.Fingerprint = fingerprint

	if is_duplicate {
		logger.Debug("Duplicate image", "fingerprint", fingerprint)
		rsp.Reason = ReasonDuplicate
		return rsp
	}

	rec, err := metadata.Extract(in.Body, in.Filename, mimetype)

	if err != nil {

		switch {
		case errors.Is(err, metadata.ErrIncompleteCoordinates):
			rsp.Reason = ReasonIncompleteCoordinates
		default:
			rsp.Reason = ReasonNoMetadata
		}

		logger.Debug("Failed to extract metadata", "error", err)
		return rsp
	}

	thumb, err := common.Thumbnail(in.Body, rec.Orientation, opts.MaxDimension)

	if err != nil {
		logger.Warn("Failed to generate thumbnail", "error", err)
		rsp.Reason = ReasonThumbnail
		return rsp
	}

	if opts.HashImages {

		hashes, err := common.ImageHashes(ctx, in.Body)

		if err != nil {
			logger.Warn("Failed to hash image", "error", err)
		} else {
			rsp.ImageHashes = hashes
		}
	}

	rsp.Status = StatusIncluded
	rsp.Record = rec
	rsp.Rotation = orientation.Resolve(rec.Heading, rec.HasHeading)
	rsp.thumbnail = thumb

	return rsp
}
