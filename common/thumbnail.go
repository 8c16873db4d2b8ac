package common

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"

	"github.com/aaronland/go-image-tools/imaging"
	"github.com/aaronland/go-image-tools/util"
	"github.com/nfnt/resize"
)

// DefaultMaxDimension is the bounding box (pixels) applied to popup thumbnails.
const DefaultMaxDimension uint = 400

// Thumbnail decodes body, squares up the pixels according to the EXIF
// orientation tag value and downscales the result so that neither dimension
// exceeds max_dim, preserving aspect ratio. Images already inside the bounding
// box are never upscaled. The thumbnail is re-encoded in the source format.
func Thumbnail(body []byte, exif_orientation int, max_dim uint) ([]byte, error) {

	if max_dim == 0 {
		max_dim = DefaultMaxDimension
	}

	im, format, err := util.DecodeImageFromReader(bytes.NewReader(body))

	if err != nil {
		return nil, fmt.Errorf("Failed to decode image, %w", err)
	}

	im = correctOrientation(im, exif_orientation)

	im = resize.Thumbnail(max_dim, max_dim, im, resize.Lanczos3)

	var buf bytes.Buffer

	err = util.EncodeImage(im, format, &buf)

	if err != nil {
		return nil, fmt.Errorf("Failed to encode thumbnail, %w", err)
	}

	return buf.Bytes(), nil
}

// correctOrientation rotates an image so that it displays upright. Angles are
// counter-clockwise. Mirrored orientation values (2, 4, 5, 7) are rare in
// camera output and are passed through untouched.
func correctOrientation(im image.Image, exif_orientation int) image.Image {

	switch exif_orientation {
	case 3:
		return imaging.Rotate(im, 180.0, color.White)
	case 6:
		return imaging.Rotate(im, 270.0, color.White)
	case 8:
		return imaging.Rotate(im, 90.0, color.White)
	default:
		return im
	}
}
