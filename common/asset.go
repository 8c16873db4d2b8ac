package common

import (
	"context"
	"fmt"
	"io"

	"github.com/whosonfirst/go-reader/v2"
)

// ReadAsset reads a fixed asset (icon or logo image) from a
// whosonfirst/go-reader.Reader instance. Assets are consumed unmodified by the
// archive assembler.
func ReadAsset(ctx context.Context, r reader.Reader, path string) ([]byte, error) {

	fh, err := r.Read(ctx, path)

	if err != nil {
		return nil, fmt.Errorf("Failed to open asset %s for reading, %w", path, err)
	}

	defer fh.Close()

	body, err := io.ReadAll(fh)

	if err != nil {
		return nil, fmt.Errorf("Failed to read asset %s, %w", path, err)
	}

	return body, nil
}
