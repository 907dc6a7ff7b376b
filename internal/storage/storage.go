// internal/storage/storage.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"geophoto/internal/models"
)

// ErrNotFound is returned when no photo row matches the requested digest.
var ErrNotFound = errors.New("photo not found")

const (
	defaultListLimit = 1000
	maxListLimit     = 5000
)

type Storage struct {
	pool *pgxpool.Pool
	db   *sql.DB // For migrations
}

func NewStorage(dsn string, log *zap.Logger) (*Storage, error) {
	const op = "storage.NewStorage"

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := runMigrations(db, log); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %v", op, err)
	}

	return &Storage{pool: pool, db: db}, nil
}

func (s *Storage) Close() {
	s.db.Close()
	s.pool.Close()
}

// upsertSQL is the whole insert-or-merge in one statement so concurrent
// uploads of the same digest cannot interleave into a torn record. Non-null
// incoming fields win; null incoming fields keep the stored value. The
// geography point is recomputed from the post-merge lat/lon: set when both
// are present, cleared otherwise. xmax <> 0 distinguishes an updated row
// from a freshly inserted one.
const upsertSQL = `
	INSERT INTO photos (sha256, device_id, shot_time, lat, lon, geom, width, height, annotation)
	VALUES (
		$1, $2, $3, $4, $5,
		CASE WHEN $4::double precision IS NOT NULL AND $5::double precision IS NOT NULL
		     THEN ST_SetSRID(ST_MakePoint($5::double precision, $4::double precision), 4326)::geography
		     ELSE NULL END,
		$6, $7, $8
	)
	ON CONFLICT (sha256) DO UPDATE
	SET device_id  = COALESCE(EXCLUDED.device_id, photos.device_id),
	    shot_time  = COALESCE(EXCLUDED.shot_time, photos.shot_time),
	    lat        = COALESCE(EXCLUDED.lat, photos.lat),
	    lon        = COALESCE(EXCLUDED.lon, photos.lon),
	    width      = COALESCE(EXCLUDED.width, photos.width),
	    height     = COALESCE(EXCLUDED.height, photos.height),
	    annotation = COALESCE(EXCLUDED.annotation, photos.annotation),
	    geom = CASE WHEN COALESCE(EXCLUDED.lat, photos.lat) IS NOT NULL
	                 AND COALESCE(EXCLUDED.lon, photos.lon) IS NOT NULL
	                THEN ST_SetSRID(ST_MakePoint(
	                         COALESCE(EXCLUDED.lon, photos.lon),
	                         COALESCE(EXCLUDED.lat, photos.lat)), 4326)::geography
	                ELSE NULL END,
	    updated_at = now()
	RETURNING id, lat, lon, (xmax <> 0) AS existed`

// Upsert inserts a photo row for an unseen digest or merges metadata into
// the existing row. It returns the canonical post-upsert coordinates and
// whether the row pre-existed.
func (s *Storage) Upsert(ctx context.Context, p models.UpsertParams) (models.UpsertResult, error) {
	const op = "storage.Upsert"

	var ann any
	if p.Annotation != nil {
		ann = p.Annotation
	}

	var res models.UpsertResult
	err := s.pool.QueryRow(ctx, upsertSQL,
		p.SHA256, p.DeviceID, p.ShotTime, p.Lat, p.Lon, p.Width, p.Height, ann,
	).Scan(&res.ID, &res.Lat, &res.Lon, &res.Existed)
	if err != nil {
		return models.UpsertResult{}, fmt.Errorf("%s: %v", op, err)
	}
	return res, nil
}

// List returns positioned photos newest first, optionally restricted to a
// bounding box. The limit is clamped regardless of what the caller asked for.
func (s *Storage) List(ctx context.Context, p models.ListParams) ([]models.Photo, error) {
	const op = "storage.List"

	limit := clampLimit(p.Limit)

	var rows pgx.Rows
	var err error
	if p.BBox != nil {
		rows, err = s.pool.Query(ctx, `
			SELECT id, sha256, device_id, shot_time, lat, lon, width, height, created_at
			FROM photos
			WHERE geom IS NOT NULL
			  AND ST_Intersects(geom, ST_MakeEnvelope($1, $2, $3, $4, 4326)::geography)
			ORDER BY created_at DESC
			LIMIT $5`,
			p.BBox.MinLon, p.BBox.MinLat, p.BBox.MaxLon, p.BBox.MaxLat, limit)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT id, sha256, device_id, shot_time, lat, lon, width, height, created_at
			FROM photos
			WHERE geom IS NOT NULL
			ORDER BY created_at DESC
			LIMIT $1`,
			limit)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}
	defer rows.Close()

	photos := make([]models.Photo, 0, 64)
	for rows.Next() {
		var ph models.Photo
		if err := rows.Scan(&ph.ID, &ph.SHA256, &ph.DeviceID, &ph.ShotTime,
			&ph.Lat, &ph.Lon, &ph.Width, &ph.Height, &ph.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %v", op, err)
		}
		photos = append(photos, ph)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}
	return photos, nil
}

// Delete removes the row for a digest and returns its id. ErrNotFound means
// no such digest was ever recorded, distinct from a successful deletion.
func (s *Storage) Delete(ctx context.Context, sha string) (int64, error) {
	const op = "storage.Delete"

	var id int64
	err := s.pool.QueryRow(ctx,
		`DELETE FROM photos WHERE sha256 = $1 RETURNING id`, sha).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %v", op, err)
	}
	return id, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
