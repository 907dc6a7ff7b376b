package ingest

import (
	"encoding/json"
	"time"

	"geophoto/internal/imagemeta"
)

// exifTimeLayout is the colon-separated timestamp format found in EXIF text
// fields, interpreted as local time.
const exifTimeLayout = "2006:01:02 15:04:05"

// ResolvePosition merges position sources under strict precedence: an
// explicit caller-supplied pair wins over a pair decoded from the image;
// otherwise the position stays unset. A source providing only one axis
// contributes nothing, so a partial coordinate is never persisted.
func ResolvePosition(formLat, formLon *float64, fix imagemeta.Fix) (lat, lon *float64) {
	if formLat != nil && formLon != nil {
		return formLat, formLon
	}
	if fix.Lat != nil && fix.Lon != nil {
		return fix.Lat, fix.Lon
	}
	return nil, nil
}

// ParseShotTime accepts an RFC 3339 date-time or the EXIF textual pattern
// "YYYY:MM:DD HH:MM:SS". Anything else yields no capture time.
func ParseShotTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return &ts
	}
	if ts, err := time.ParseInLocation(exifTimeLayout, s, time.Local); err == nil {
		return &ts
	}
	return nil
}

// ResolveAnnotation stores caller text as structured JSON when it parses,
// and as a JSON string verbatim otherwise, so nothing is lost either way.
func ResolveAnnotation(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	quoted, _ := json.Marshal(s)
	return quoted
}
