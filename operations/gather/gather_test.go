package gather

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"

	"github.com/sfomuseum/go-geotag-kmz/internal/exiftest"
)

func seedBucket(t *testing.T, ctx context.Context, entries map[string][]byte) *blob.Bucket {

	bucket, err := blob.OpenBucket(ctx, "mem://")

	if err != nil {
		t.Fatalf("Failed to open bucket, %v", err)
	}

	for path, body := range entries {

		err := bucket.WriteAll(ctx, path, body, nil)

		if err != nil {
			t.Fatalf("Failed to write %s, %v", path, err)
		}
	}

	return bucket
}

func TestGatherImages(t *testing.T) {

	ctx := context.Background()

	jpg := exiftest.JPEG(64, 48, nil)
	png := exiftest.PNG(64, 48)

	bucket := seedBucket(t, ctx, map[string][]byte{
		"trip/one.jpg":  jpg,
		"trip/two.jpeg": jpg,
		"three.png":     png,
		"notes.txt":     []byte("not an image"),
		"report.json":   []byte("{}"),
	})

	defer bucket.Close()

	mu := new(sync.Mutex)
	gathered := make(map[string]*GatherImagesResponse)

	cb := func(rsp *GatherImagesResponse) error {

		mu.Lock()
		defer mu.Unlock()

		gathered[rsp.Path] = rsp
		return nil
	}

	err := GatherImages(ctx, bucket, cb)

	if err != nil {
		t.Fatalf("Failed to gather images, %v", err)
	}

	if len(gathered) != 3 {
		t.Fatalf("Gathered %d images, expected 3", len(gathered))
	}

	rsp, ok := gathered["trip/one.jpg"]

	if !ok {
		t.Fatal("Missing trip/one.jpg")
	}

	if rsp.MimeType != "image/jpeg" {
		t.Errorf("Mime type is %s, expected image/jpeg", rsp.MimeType)
	}

	if !bytes.Equal(rsp.Body, jpg) {
		t.Error("Body does not match the stored bytes")
	}

	rsp, ok = gathered["three.png"]

	if !ok {
		t.Fatal("Missing three.png")
	}

	if rsp.MimeType != "image/png" {
		t.Errorf("Mime type is %s, expected image/png", rsp.MimeType)
	}

	if rsp.Fingerprint != "" {
		t.Error("Expected no fingerprint by default")
	}
}

func TestGatherImagesWithFingerprints(t *testing.T) {

	ctx := context.Background()

	bucket := seedBucket(t, ctx, map[string][]byte{
		"one.jpg": exiftest.JPEG(64, 48, nil),
	})

	defer bucket.Close()

	mu := new(sync.Mutex)
	fingerprints := make([]string, 0)

	opts := &GatherImagesOptions{
		FingerprintImages: true,
		Callback: func(rsp *GatherImagesResponse) error {

			mu.Lock()
			defer mu.Unlock()

			fingerprints = append(fingerprints, rsp.Fingerprint)
			return nil
		},
	}

	err := GatherImagesWithOptions(ctx, bucket, opts)

	if err != nil {
		t.Fatalf("Failed to gather images, %v", err)
	}

	if len(fingerprints) != 1 || fingerprints[0] == "" {
		t.Errorf("Expected one non-empty fingerprint, got %v", fingerprints)
	}
}
