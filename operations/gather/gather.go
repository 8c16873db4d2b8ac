package gather

import (
	"context"
	"io"
	"log"
	"mime"
	"path/filepath"
	"sync"

	"gocloud.dev/blob"

	"github.com/sfomuseum/go-geotag-kmz/common"
)

// GatherImagesResponse is a single image collected from a bucket, ready to be
// handed to the conversion pipeline.
type GatherImagesResponse struct {
	Path        string
	MimeType    string
	Body        []byte
	Fingerprint string
}

type GatherImageCallbackFunc func(*GatherImagesResponse) error

type GatherImagesOptions struct {
	Callback GatherImageCallbackFunc
	// FingerprintImages indicates whether to compute a SHA-1 fingerprint for
	// each image as it is gathered.
	FingerprintImages bool
}

// GatherImages collects every JPEG and PNG image stored in a blob.Bucket
// instance and dispatches each one to a user-defined callback.
func GatherImages(ctx context.Context, bucket *blob.Bucket, cb GatherImageCallbackFunc) error {

	opts := &GatherImagesOptions{
		Callback:          cb,
		FingerprintImages: false,
	}

	return GatherImagesWithOptions(ctx, bucket, opts)
}

func GatherImagesWithOptions(ctx context.Context, bucket *blob.Bucket, opts *GatherImagesOptions) error {

	gather_ch := make(chan *GatherImagesResponse)

	done_ch := make(chan bool)
	err_ch := make(chan error)

	go func() {

		err := CrawlImages(ctx, bucket, opts, gather_ch)

		if err != nil {
			err_ch <- err
		}

		done_ch <- true
	}()

	gathering := true
	wg := new(sync.WaitGroup)

	for {
		select {

		case <-done_ch:
			gathering = false
		case err := <-err_ch:
			return err
		case gather_rsp := <-gather_ch:

			wg.Add(1)

			go func(rsp *GatherImagesResponse) {

				defer wg.Done()

				err := opts.Callback(rsp)

				if err != nil {
					log.Printf("Failed to process %s, %s\n", rsp.Path, err)
				}

			}(gather_rsp)

		}

		if !gathering {
			break
		}
	}

	wg.Wait()
	return nil
}

// CrawlImages iterates through all the items stored in a blob.Bucket instance,
// generates a GatherImagesResponse for things that are JPEG or PNG images and
// dispatches that response to a user-defined channel.
func CrawlImages(ctx context.Context, bucket *blob.Bucket, opts *GatherImagesOptions, rsp_ch chan *GatherImagesResponse) error {

	var list func(context.Context, *blob.Bucket, string) error

	list = func(ctx context.Context, b *blob.Bucket, prefix string) error {

		iter := b.List(&blob.ListOptions{
			Delimiter: "/",
			Prefix:    prefix,
		})

		for {

			select {
			case <-ctx.Done():
				return nil
			default:
				// pass
			}

			obj, err := iter.Next(ctx)

			if err == io.EOF {
				break
			}

			if err != nil {
				return err
			}

			if obj.IsDir {

				err := list(ctx, b, obj.Key)

				if err != nil {
					return err
				}

				continue
			}

			rsp, err := GatherImageResponseWithPath(ctx, bucket, obj.Key, opts)

			if err != nil {
				return err
			}

			if rsp == nil {
				continue
			}

			rsp_ch <- rsp
		}

		return nil
	}

	return list(ctx, bucket, "")
}

// GatherImageResponseWithPath reads a single bucket entry, returning nil when
// the entry is not a JPEG or PNG image.
func GatherImageResponseWithPath(ctx context.Context, bucket *blob.Bucket, path string, opts *GatherImagesOptions) (*GatherImagesResponse, error) {

	ext := filepath.Ext(path)

	t := mime.TypeByExtension(ext)

	switch t {
	case "image/jpeg", "image/png":
		// pass
	default:
		return nil, nil
	}

	fh, err := bucket.NewReader(ctx, path, nil)

	if err != nil {
		return nil, err
	}

	defer fh.Close()

	body, err := io.ReadAll(fh)

	if err != nil {
		return nil, err
	}

	rsp := &GatherImagesResponse{
		Path:     path,
		MimeType: t,
		Body:     body,
	}

	if opts.FingerprintImages {
		rsp.Fingerprint = common.Fingerprint(body)
	}

	return rsp, nil
}
