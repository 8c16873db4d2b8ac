package kmz

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"path/filepath"
	"strconv"
	"strings"

	kml "github.com/twpayne/go-kml"

	"github.com/sfomuseum/go-geotag-kmz/metadata"
)

// Assets holds the fixed image resources embedded in every archive. The fan
// icon is required (placemark styles reference it); the logo is optional and,
// when present, is displayed at the top of each placemark popup.
type Assets struct {
	// The archive entry name for the orientation (fan) icon.
	IconName string
	// The raw bytes for the orientation icon.
	Icon []byte
	// The archive entry name for the logo image, if any.
	LogoName string
	// The raw bytes for the logo image, if any.
	Logo []byte
}

// Placemark is a single located, styled point entity in the output document.
// Placemarks are created once per valid image and are immutable thereafter.
type Placemark struct {
	Name      string
	Latitude  float64
	Longitude float64
	Altitude  float64
	// Rotation is the resolved icon rotation in degrees clockwise from north.
	Rotation float64
	// StyleID references the shared, rotation-specific icon style.
	StyleID string
	// Description is the popup HTML embedding a reference to ThumbnailName.
	Description string
	// ThumbnailName is the archive entry name for this placemark's thumbnail.
	ThumbnailName string
}

type iconStyle struct {
	id       string
	rotation float64
}

// Document aggregates placemarks, their popup thumbnails and the shared icon
// assets, and serializes everything in to a single KMZ archive. Identical
// rotations (compared to 3 decimal places) share one style definition. Given
// the same sequence of AddPlacemark calls the marshalled markup is
// byte-identical.
type Document struct {
	name        string
	assets      *Assets
	placemarks  []*Placemark
	styles      []*iconStyle
	style_index map[string]*iconStyle
	entries     []string
	thumbnails  map[string][]byte
}

// NewDocument creates an empty Document named name. The icon asset is
// required; every style the document emits points at it.
func NewDocument(name string, assets *Assets) (*Document, error) {

	if assets == nil || assets.IconName == "" || len(assets.Icon) == 0 {
		return nil, errors.New("Missing icon asset")
	}

	d := &Document{
		name:        name,
		assets:      assets,
		placemarks:  make([]*Placemark, 0),
		styles:      make([]*iconStyle, 0),
		style_index: make(map[string]*iconStyle),
		entries:     make([]string, 0),
		thumbnails:  make(map[string][]byte),
	}

	return d, nil
}

// AddPlacemark builds one placemark for rec, registering thumb under a
// deterministic entry name and allocating (or reusing) the icon style for
// rotation. Placemarks appear in the marshalled document in the order they
// were added.
func (d *Document) AddPlacemark(rec *metadata.Record, rotation float64, thumb []byte) (*Placemark, error) {

	entry_name := d.thumbnailName(rec)

	style := d.styleForRotation(rotation)

	desc, err := describe(rec, rotation, entry_name, d.assets.LogoName)

	if err != nil {
		return nil, fmt.Errorf("Failed to derive description for %s, %w", rec.Filename, err)
	}

	p := &Placemark{
		Name:          placemarkName(rec.Filename),
		Latitude:      rec.Latitude,
		Longitude:     rec.Longitude,
		Altitude:      rec.Altitude,
		Rotation:      style.rotation,
		StyleID:       style.id,
		Description:   desc,
		ThumbnailName: entry_name,
	}

	d.placemarks = append(d.placemarks, p)
	d.entries = append(d.entries, entry_name)
	d.thumbnails[entry_name] = thumb

	return p, nil
}

// Placemarks returns the placemarks added so far, in insertion order.
func (d *Document) Placemarks() []*Placemark {
	return d.placemarks
}

// Entries returns the names of every entry the archive will contain, in
// archive order. Every thumbnail and icon reference in the markup resolves to
// one of these.
func (d *Document) Entries() []string {

	entries := make([]string, 0, len(d.entries)+3)
	entries = append(entries, DocName)
	entries = append(entries, d.entries...)
	entries = append(entries, d.assets.IconName)

	if d.assets.LogoName != "" && len(d.assets.Logo) > 0 {
		entries = append(entries, d.assets.LogoName)
	}

	return entries
}

// MarshalKML serializes the markup document: one shared style per distinct
// rotation (in first-use order) followed by every placemark (in insertion
// order).
func (d *Document) MarshalKML() ([]byte, error) {

	elements := make([]kml.Element, 0)

	elements = append(elements, kml.Name(d.name))

	for _, s := range d.styles {

		elements = append(elements, kml.SharedStyle(
			s.id,
			kml.IconStyle(
				kml.Scale(1.0),
				kml.Heading(s.rotation),
				kml.Icon(
					kml.Href(d.assets.IconName),
				),
			),
		))
	}

	for _, p := range d.placemarks {

		elements = append(elements, kml.Placemark(
			kml.Name(p.Name),
			kml.Description(p.Description),
			kml.StyleURL("#"+p.StyleID),
			kml.Point(
				kml.AltitudeMode(kml.AltitudeModeAbsolute),
				kml.Coordinates(kml.Coordinate{
					Lon: p.Longitude,
					Lat: p.Latitude,
					Alt: p.Altitude,
				}),
			),
		))
	}

	k := kml.KML(kml.Document(elements...))

	var buf bytes.Buffer

	err := k.WriteIndent(&buf, "", "  ")

	if err != nil {
		return nil, fmt.Errorf("Failed to marshal KML document, %w", err)
	}

	return buf.Bytes(), nil
}

// styleForRotation allocates a style for rotation or reuses an existing one.
// Rotations are compared to 3 decimal places.
func (d *Document) styleForRotation(rotation float64) *iconStyle {

	key := strconv.FormatFloat(rotation, 'f', 3, 64)

	s, ok := d.style_index[key]

	if ok {
		return s
	}

	id := fmt.Sprintf("fan-%s", strings.ReplaceAll(key, ".", "-"))

	rounded, _ := strconv.ParseFloat(key, 64)

	s = &iconStyle{
		id:       id,
		rotation: rounded,
	}

	d.styles = append(d.styles, s)
	d.style_index[key] = s

	return s
}

// thumbnailName derives a deterministic archive entry name from the source
// filename. Colliding names are disambiguated with an index suffix, in
// first-seen order.
func (d *Document) thumbnailName(rec *metadata.Record) string {

	base := filepath.Base(rec.Filename)

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	if stem == "" || stem == "." {
		stem = "image"
	}

	if ext == "" {

		switch rec.MimeType {
		case "image/png":
			ext = ".png"
		default:
			ext = ".jpg"
		}
	}

	name := stem + ext

	i := 2

	for d.reservedName(name) {
		name = fmt.Sprintf("%s_%d%s", stem, i, ext)
		i += 1
	}

	return name
}

// reservedName reports whether name is already claimed by another archive
// entry: a registered thumbnail, the markup document or a shared asset.
func (d *Document) reservedName(name string) bool {

	switch name {
	case DocName, d.assets.IconName, d.assets.LogoName:
		return true
	}

	_, exists := d.thumbnails[name]
	return exists
}

// placemarkName strips the extension from a source filename, falling back to a
// placeholder when nothing is left.
func placemarkName(filename string) string {

	base := filepath.Base(filename)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	if name == "" || name == "." {
		return "untitled"
	}

	return name
}

var popup_t = template.Must(template.New("popup").Parse(popup_template))

// popupVars carries pre-formatted values in to the popup template. All fields
// pass through html/template so filenames (and anything else user-supplied)
// are escaped.
type popupVars struct {
	Filename  string
	Taken     string
	Altitude  string
	Heading   string
	Latitude  string
	Longitude string
	Thumbnail string
	Logo      string
}

const popup_template = `<html>
<head>
<style>
table { width: 100%; text-align: center; border-collapse: collapse; }
th, td { border: 1px solid black; padding: 5px; }
th { background-color: grey; color: white; }
</style>
</head>
<body>
{{ if .Logo }}<h1><img src="{{ .Logo }}" alt="Logo" style="height: 50px;" /></h1>
{{ end }}<table>
<thead>
<tr><th>FILENAME</th><th>DATE CREATED</th><th>ALTITUDE</th><th>ORIENTATION</th><th>LATITUDE</th><th>LONGITUDE</th></tr>
</thead>
<tbody>
<tr><td>{{ .Filename }}</td><td>{{ .Taken }}</td><td>{{ .Altitude }} Meters</td><td>{{ .Heading }}&#176;</td><td>{{ .Latitude }}</td><td>{{ .Longitude }}</td></tr>
</tbody>
</table>
<div><img src="{{ .Thumbnail }}" alt="{{ .Filename }}" /></div>
</body>
</html>`

// describe generates the popup markup for a placemark. Latitude and longitude
// are formatted to 6 decimal places, altitude and rotation to 1.
func describe(rec *metadata.Record, rotation float64, thumbnail string, logo string) (string, error) {

	taken := "-"

	if rec.HasTaken {
		taken = rec.Taken.Format("2006-01-02 15:04:05")
	}

	vars := popupVars{
		Filename:  filepath.Base(rec.Filename),
		Taken:     taken,
		Altitude:  strconv.FormatFloat(rec.Altitude, 'f', 1, 64),
		Heading:   strconv.FormatFloat(rotation, 'f', 1, 64),
		Latitude:  strconv.FormatFloat(rec.Latitude, 'f', 6, 64),
		Longitude: strconv.FormatFloat(rec.Longitude, 'f', 6, 64),
		Thumbnail: thumbnail,
		Logo:      logo,
	}

	var buf bytes.Buffer

	err := popup_t.Execute(&buf, vars)

	if err != nil {
		return "", err
	}

	return buf.String(), nil
}
