// Package imagemeta extracts positional and dimensional metadata embedded in
// image files. Extraction is best-effort: corrupt data, unsupported formats,
// or absent tags degrade to "no value" and never fail ingestion.
package imagemeta

import (
	"bytes"
	"io"

	"github.com/cozy/goexif2/exif"
	"github.com/cozy/goexif2/mknote"
	"github.com/disintegration/imaging"
)

func init() {
	exif.RegisterParsers(mknote.All...)
}

// Fix is a per-axis optional GPS position decoded from EXIF. An axis is only
// set when both its magnitude and its hemisphere reference were present.
type Fix struct {
	Lat *float64
	Lon *float64
}

// ExtractFix parses the EXIF block of an image and decodes the GPS tags into
// decimal degrees. Any parse failure yields a zero Fix.
func ExtractFix(r io.Reader) Fix {
	x, err := exif.Decode(r)
	if err != nil && exif.IsCriticalError(err) {
		return Fix{}
	}
	return Fix{
		Lat: axis(x, exif.GPSLatitude, exif.GPSLatitudeRef, "S"),
		Lon: axis(x, exif.GPSLongitude, exif.GPSLongitudeRef, "W"),
	}
}

// axis decodes one coordinate axis. The magnitude is three rationals
// (degrees, minutes, seconds); the ref tag selects the sign. Either tag
// missing or malformed means no value for this axis.
func axis(x *exif.Exif, magName, refName exif.FieldName, negRef string) *float64 {
	mag, err := x.Get(magName)
	if err != nil {
		return nil
	}
	ref, err := x.Get(refName)
	if err != nil {
		return nil
	}
	refVal, err := ref.StringVal()
	if err != nil {
		return nil
	}

	var dms [3]float64
	for i := range dms {
		num, den, err := mag.Rat2(i)
		if err != nil || den == 0 {
			return nil
		}
		dms[i] = float64(num) / float64(den)
	}

	dec := Decimal(dms[0], dms[1], dms[2], refVal == negRef)
	return &dec
}

// Decimal converts a degrees/minutes/seconds triple to decimal degrees,
// negated for southern/western hemispheres.
func Decimal(deg, min, sec float64, negate bool) float64 {
	dec := deg + min/60 + sec/3600
	if negate {
		return -dec
	}
	return dec
}

// Dimensions decodes the pixel size of an image, honoring the EXIF
// orientation tag so rotated captures report display width/height.
func Dimensions(data []byte) (width, height int32, ok bool) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return 0, 0, false
	}
	b := img.Bounds()
	return int32(b.Dx()), int32(b.Dy()), true
}
