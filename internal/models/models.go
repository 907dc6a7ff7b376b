// internal/models/photo.go
package models

import (
	"encoding/json"
	"time"
)

// Photo is the canonical persisted record for one unique content digest.
type Photo struct {
	ID        int64      `db:"id" json:"id"`
	SHA256    string     `db:"sha256" json:"sha256"`
	DeviceID  *string    `db:"device_id" json:"device_id"`
	ShotTime  *time.Time `db:"shot_time" json:"shot_time"`
	Lat       *float64   `db:"lat" json:"lat"`
	Lon       *float64   `db:"lon" json:"lon"`
	Width     *int32     `db:"width" json:"width,omitempty"`
	Height    *int32     `db:"height" json:"height,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	ImageURL  string     `json:"image_url,omitempty"`
}

// UpsertParams carries reconciled metadata into the photo upsert. Nil fields
// never overwrite stored values.
type UpsertParams struct {
	SHA256     string
	DeviceID   *string
	ShotTime   *time.Time
	Lat        *float64
	Lon        *float64
	Width      *int32
	Height     *int32
	Annotation json.RawMessage
}

// UpsertResult reports the canonical post-upsert row state.
type UpsertResult struct {
	ID      int64
	Lat     *float64
	Lon     *float64
	Existed bool
}

// BBox is a rectangular WGS84 region: minLon,minLat,maxLon,maxLat.
type BBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

type ListParams struct {
	BBox  *BBox
	Limit int
}
