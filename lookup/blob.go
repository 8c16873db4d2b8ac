package lookup

import (
	"bytes"
	"context"
	"io"
	"mime"
	"path/filepath"
	"sync"

	"gocloud.dev/blob"
)

// BlobLookerUpper seeds a lookup map from the contents of a blob.Bucket
// instance. Image entries are handed to each AppendLookupFunc; everything
// else is passed over except JSON documents, which are assumed to be run
// reports.
type BlobLookerUpper struct {
	LookerUpper
	bucket *blob.Bucket
}

func NewBlobLookerUpper(ctx context.Context, uri string) (LookerUpper, error) {

	bucket, err := blob.OpenBucket(ctx, uri)

	if err != nil {
		return nil, err
	}

	return NewBlobLookerUpperWithBucket(ctx, bucket)
}

func NewBlobLookerUpperWithBucket(ctx context.Context, bucket *blob.Bucket) (LookerUpper, error) {

	l := &BlobLookerUpper{
		bucket: bucket,
	}

	return l, nil
}

func (l *BlobLookerUpper) Open(ctx context.Context, uri string) error {

	bucket, err := blob.OpenBucket(ctx, uri)

	if err != nil {
		return err
	}

	l.bucket = bucket
	return nil
}

func (l *BlobLookerUpper) Append(ctx context.Context, lu *sync.Map, append_funcs ...AppendLookupFunc) error {

	bucket_iter := l.bucket.List(nil)

	for {

		obj, err := bucket_iter.Next(ctx)

		if err == io.EOF {
			break
		}

		if err != nil {
			return err
		}

		ext := filepath.Ext(obj.Key)

		switch mime.TypeByExtension(ext) {
		case "image/jpeg", "image/png", "application/json":
			// pass
		default:
			continue
		}

		fh, err := l.bucket.NewReader(ctx, obj.Key, nil)

		if err != nil {
			return err
		}

		body, err := io.ReadAll(fh)

		fh.Close()

		if err != nil {
			return err
		}

		for _, f := range append_funcs {

			br := bytes.NewReader(body)

			err := f(ctx, lu, obj.Key, io.NopCloser(br))

			if err != nil {
				return err
			}
		}
	}

	return nil
}
