// Package exiftest builds synthetic geotagged images for tests. The goexif
// package is read-only so the EXIF APP1 segment (a little-endian TIFF blob
// with a GPS sub-IFD) is packed by hand and spliced in to a JPEG encoded at
// runtime.
package exiftest

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"sort"
)

// GPS describes the EXIF payload to embed in a test image. Latitude and
// longitude are written as (degrees, minutes, seconds) rationals with the
// appropriate hemisphere reference tags.
type GPS struct {
	Lat           float64
	Lon           float64
	OmitLatitude  bool
	OmitLongitude bool
	Altitude      float64
	HasAltitude   bool
	BelowSeaLevel bool
	// CorruptAltitude writes a GPSAltitude rational with a zero denominator.
	CorruptAltitude bool
	Direction     float64
	HasDirection  bool
	// DateTime in EXIF "2006:01:02 15:04:05" form, or empty.
	DateTime string
	// Orientation tag value, 0 to omit.
	Orientation int
}

// JPEG returns a decodable JPEG of the given dimensions carrying the gps
// payload. A nil gps produces a JPEG with no EXIF segment at all.
func JPEG(w int, h int, gps *GPS) []byte {

	body := EncodeJPEG(NewImage(w, h))

	if gps == nil {
		return body
	}

	return spliceAPP1(body, tiffBytes(gps))
}

// CorruptJPEG returns bytes with a valid EXIF segment but no decodable pixel
// data.
func CorruptJPEG(gps *GPS) []byte {

	body := []byte{0xff, 0xd8, 0xff, 0xd9}
	return spliceAPP1(body, tiffBytes(gps))
}

// PNG returns a decodable PNG of the given dimensions. PNG fixtures never
// carry EXIF data.
func PNG(w int, h int) []byte {

	var buf bytes.Buffer
	png.Encode(&buf, NewImage(w, h))
	return buf.Bytes()
}

// NewImage returns a simple gradient image.
func NewImage(w int, h int) image.Image {

	im := image.NewRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {

		for x := 0; x < w; x++ {
			im.Set(x, y, color.RGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: 0x80,
				A: 0xff,
			})
		}
	}

	return im
}

// EncodeJPEG encodes im as a JPEG.
func EncodeJPEG(im image.Image) []byte {

	var buf bytes.Buffer
	jpeg.Encode(&buf, im, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

// Encoded returns the decimal degree value that a coordinate survives as after
// being quantized to (degrees, minutes, milliseconds) rationals. Differences
// from the input are below 1e-6 degrees.
func Encoded(v float64) float64 {

	_, enc := dmsRationals(v)

	if v < 0 {
		return -enc
	}

	return enc
}

const (
	typeByte     uint16 = 1
	typeASCII    uint16 = 2
	typeShort    uint16 = 3
	typeLong     uint16 = 4
	typeRational uint16 = 5
)

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

// spliceAPP1 inserts an APP1 (Exif) segment directly after the JPEG SOI
// marker.
func spliceAPP1(jpg []byte, tiff []byte) []byte {

	payload := append([]byte("Exif\x00\x00"), tiff...)

	var buf bytes.Buffer

	buf.Write(jpg[0:2])
	buf.Write([]byte{0xff, 0xe1})

	binary.Write(&buf, binary.BigEndian, uint16(len(payload)+2))

	buf.Write(payload)
	buf.Write(jpg[2:])

	return buf.Bytes()
}

// tiffBytes packs a little-endian TIFF blob: IFD0 (datetime, orientation, GPS
// pointer) followed by the GPS sub-IFD.
func tiffBytes(gps *GPS) []byte {

	gps_entries := gpsEntries(gps)

	ifd0_entries := make([]entry, 0)

	if gps.DateTime != "" {
		ifd0_entries = append(ifd0_entries, entry{0x0132, typeASCII, uint32(len(gps.DateTime) + 1), asciiData(gps.DateTime)})
	}

	if gps.Orientation > 0 {
		ifd0_entries = append(ifd0_entries, entry{0x0112, typeShort, 1, shortData(uint16(gps.Orientation))})
	}

	// The pointer value depends on the size of IFD0 itself so reserve the
	// entry before computing offsets.

	ifd0_entries = append(ifd0_entries, entry{0x8825, typeLong, 1, longData(0)})

	gps_offset := uint32(8 + ifdSize(ifd0_entries))

	ifd0_entries[len(ifd0_entries)-1].data = longData(gps_offset)

	var buf bytes.Buffer

	buf.WriteString("II")
	binary.Write(&buf, binary.LittleEndian, uint16(42))
	binary.Write(&buf, binary.LittleEndian, uint32(8))

	buf.Write(buildIFD(8, ifd0_entries))
	buf.Write(buildIFD(gps_offset, gps_entries))

	return buf.Bytes()
}

func gpsEntries(gps *GPS) []entry {

	entries := make([]entry, 0)

	if !gps.OmitLatitude {

		ref := "N"

		if gps.Lat < 0 {
			ref = "S"
		}

		dms, _ := dmsRationals(gps.Lat)

		entries = append(entries, entry{0x0001, typeASCII, 2, asciiData(ref)})
		entries = append(entries, entry{0x0002, typeRational, 3, dms})
	}

	if !gps.OmitLongitude {

		ref := "E"

		if gps.Lon < 0 {
			ref = "W"
		}

		dms, _ := dmsRationals(gps.Lon)

		entries = append(entries, entry{0x0003, typeASCII, 2, asciiData(ref)})
		entries = append(entries, entry{0x0004, typeRational, 3, dms})
	}

	if gps.CorruptAltitude {

		entries = append(entries, entry{0x0005, typeByte, 1, []byte{0}})
		entries = append(entries, entry{0x0006, typeRational, 1, rational(3550, 0)})

	} else if gps.HasAltitude {

		ref := byte(0)

		if gps.BelowSeaLevel {
			ref = 1
		}

		num := uint32(math.Round(math.Abs(gps.Altitude) * 100))

		entries = append(entries, entry{0x0005, typeByte, 1, []byte{ref}})
		entries = append(entries, entry{0x0006, typeRational, 1, rational(num, 100)})
	}

	if gps.HasDirection {

		num := uint32(math.Round(gps.Direction * 100))

		entries = append(entries, entry{0x0010, typeASCII, 2, asciiData("T")})
		entries = append(entries, entry{0x0011, typeRational, 1, rational(num, 100)})
	}

	return entries
}

// dmsRationals encodes the absolute value of v as degree, minute and
// millisecond-precision second rationals, returning the packed bytes and the
// decimal value they decode back to.
func dmsRationals(v float64) ([]byte, float64) {

	av := math.Abs(v)

	d := math.Floor(av)
	rem := (av - d) * 60.0
	m := math.Floor(rem)
	s := (rem - m) * 60.0

	sn := uint32(math.Round(s * 1000.0))

	var buf bytes.Buffer

	buf.Write(rational(uint32(d), 1))
	buf.Write(rational(uint32(m), 1))
	buf.Write(rational(sn, 1000))

	enc := d + m/60.0 + (float64(sn)/1000.0)/3600.0

	return buf.Bytes(), enc
}

// buildIFD lays out one IFD located at offset: entry count, fixed-size entries
// (sorted by tag), a zero next-IFD offset, then the spillover data area for
// values wider than 4 bytes.
func buildIFD(offset uint32, entries []entry) []byte {

	sort.Slice(entries, func(i int, j int) bool {
		return entries[i].tag < entries[j].tag
	})

	data_offset := offset + uint32(2+len(entries)*12+4)

	var ifd bytes.Buffer
	var data bytes.Buffer

	binary.Write(&ifd, binary.LittleEndian, uint16(len(entries)))

	for _, e := range entries {

		binary.Write(&ifd, binary.LittleEndian, e.tag)
		binary.Write(&ifd, binary.LittleEndian, e.typ)
		binary.Write(&ifd, binary.LittleEndian, e.count)

		if len(e.data) <= 4 {

			padded := make([]byte, 4)
			copy(padded, e.data)
			ifd.Write(padded)

		} else {

			binary.Write(&ifd, binary.LittleEndian, data_offset)
			data.Write(e.data)
			data_offset += uint32(len(e.data))
		}
	}

	binary.Write(&ifd, binary.LittleEndian, uint32(0))

	ifd.Write(data.Bytes())

	return ifd.Bytes()
}

// ifdSize returns the total size of an IFD block including its spillover data
// area.
func ifdSize(entries []entry) int {

	sz := 2 + len(entries)*12 + 4

	for _, e := range entries {

		if len(e.data) > 4 {
			sz += len(e.data)
		}
	}

	return sz
}

func asciiData(s string) []byte {
	return append([]byte(s), 0)
}

func shortData(v uint16) []byte {

	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, v)
	return data
}

func longData(v uint32) []byte {

	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, v)
	return data
}

func rational(num uint32, den uint32) []byte {

	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:4], num)
	binary.LittleEndian.PutUint32(data[4:8], den)
	return data
}
