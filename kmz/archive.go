package kmz

import (
	"archive/zip"
	"fmt"
	"io"
)

// DocName is the fixed entry name for the markup document inside an archive.
const DocName = "doc.kml"

// WriteArchive serializes the document and packages it, every registered
// thumbnail and the shared icon assets as named entries in one zip-compatible
// container written to wr. Entry order is fixed: the markup document first,
// thumbnails in placemark order, then the icon and (when present) the logo.
func (d *Document) WriteArchive(wr io.Writer) error {

	body, err := d.MarshalKML()

	if err != nil {
		return err
	}

	zw := zip.NewWriter(wr)

	write := func(name string, body []byte) error {

		zf, err := zw.Create(name)

		if err != nil {
			return fmt.Errorf("Failed to create archive entry %s, %w", name, err)
		}

		_, err = zf.Write(body)

		if err != nil {
			return fmt.Errorf("Failed to write archive entry %s, %w", name, err)
		}

		return nil
	}

	err = write(DocName, body)

	if err != nil {
		return err
	}

	for _, name := range d.entries {

		err = write(name, d.thumbnails[name])

		if err != nil {
			return err
		}
	}

	err = write(d.assets.IconName, d.assets.Icon)

	if err != nil {
		return err
	}

	if d.assets.LogoName != "" && len(d.assets.Logo) > 0 {

		err = write(d.assets.LogoName, d.assets.Logo)

		if err != nil {
			return err
		}
	}

	err = zw.Close()

	if err != nil {
		return fmt.Errorf("Failed to close archive, %w", err)
	}

	return nil
}
