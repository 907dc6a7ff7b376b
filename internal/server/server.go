package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"geophoto/internal/blobstore"
	"geophoto/internal/events"
	"geophoto/internal/imagemeta"
	"geophoto/internal/ingest"
	"geophoto/internal/models"
	"geophoto/internal/storage"
)

// PhotoStore is the metadata persistence contract the handlers depend on.
type PhotoStore interface {
	Upsert(ctx context.Context, p models.UpsertParams) (models.UpsertResult, error)
	List(ctx context.Context, p models.ListParams) ([]models.Photo, error)
	Delete(ctx context.Context, sha string) (int64, error)
}

type Server struct {
	cfg    *models.Config
	router *gin.Engine
	store  PhotoStore
	blobs  *blobstore.Store
	pub    *events.Publisher
	log    *zap.Logger
}

func NewServer(cfg *models.Config, store PhotoStore, blobs *blobstore.Store, pub *events.Publisher, log *zap.Logger) *Server {
	r := gin.Default()
	r.MaxMultipartMemory = cfg.MaxUploadBytes

	s := &Server{cfg: cfg, router: r, store: store, blobs: blobs, pub: pub, log: log}

	r.GET("/api/v1/health", s.handleHealth)
	r.POST("/api/v1/photos", s.handleUpload)
	r.GET("/api/v1/photos", s.handleList)
	r.GET("/api/v1/photos/:sha", s.handleGetPhoto)
	r.DELETE("/api/v1/photos/:sha", s.handleDelete)

	return s
}

func (s *Server) Start() error {
	return s.router.Run(s.cfg.ServerAddr)
}

func (s *Server) Stop() {
	// No shutdown needed for gin
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC().Format(time.RFC3339)})
}

func (s *Server) handleUpload(c *gin.Context) {
	const op = "server.handleUpload"

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file"})
		return
	}
	if file.Size > s.cfg.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	defer src.Close()

	content, err := ingest.ReadContent(src)
	if errors.Is(err, ingest.ErrEmptyUpload) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty file"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	// The computed digest is authoritative; a claim mismatch is only a
	// client-side consistency warning.
	claim := strings.ToLower(strings.TrimSpace(c.PostForm("content_sha256")))
	if !content.MatchesClaim(claim) {
		s.log.Warn("content_sha256 mismatch",
			zap.String("client", claim),
			zap.String("server", content.SHA256))
	}

	fix := imagemeta.ExtractFix(content.Reader())
	formLat, formLon := parseFormCoords(c.PostForm("lat"), c.PostForm("lon"))
	lat, lon := ingest.ResolvePosition(formLat, formLon, fix)

	var width, height *int32
	if w, h, ok := imagemeta.Dimensions(content.Bytes); ok {
		width, height = &w, &h
	}

	var deviceID *string
	if v := c.PostForm("device_id"); v != "" {
		deviceID = &v
	}

	blobExisted, err := s.blobs.Put(content.SHA256, content.Bytes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	if blobExisted {
		s.log.Debug("blob already stored", zap.String("sha256", content.SHA256))
	}

	res, err := s.store.Upsert(c.Request.Context(), models.UpsertParams{
		SHA256:     content.SHA256,
		DeviceID:   deviceID,
		ShotTime:   ingest.ParseShotTime(c.PostForm("shot_time")),
		Lat:        lat,
		Lon:        lon,
		Width:      width,
		Height:     height,
		Annotation: ingest.ResolveAnnotation(c.PostForm("annotation")),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	s.pub.PhotoIngested(c.Request.Context(), content.SHA256, res.ID, res.Existed)

	c.JSON(http.StatusOK, gin.H{
		"id":       res.ID,
		"sha256":   content.SHA256,
		"existed":  res.Existed,
		"lat":      res.Lat,
		"lon":      res.Lon,
		"has_geom": res.Lat != nil && res.Lon != nil,
	})
}

func (s *Server) handleList(c *gin.Context) {
	const op = "server.handleList"

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "1000"))
	if err != nil {
		limit = 0 // storage falls back to its default
	}

	var bbox *models.BBox
	if raw := c.Query("bbox"); raw != "" {
		bbox, err = parseBBox(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad bbox"})
			return
		}
	}

	photos, err := s.store.List(c.Request.Context(), models.ListParams{BBox: bbox, Limit: limit})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	for i := range photos {
		photos[i].ImageURL = fmt.Sprintf("/api/v1/photos/%s.jpg", photos[i].SHA256)
	}
	c.JSON(http.StatusOK, photos)
}

func (s *Server) handleGetPhoto(c *gin.Context) {
	sha := normalizeDigest(c.Param("sha"))
	if sha == "" {
		c.Status(http.StatusNotFound)
		return
	}
	if !s.blobs.Exists(sha) {
		c.Status(http.StatusNotFound)
		return
	}
	c.File(s.blobs.Path(sha))
}

func (s *Server) handleDelete(c *gin.Context) {
	const op = "server.handleDelete"

	sha := normalizeDigest(c.Param("sha"))
	if sha == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad sha"})
		return
	}

	id, err := s.store.Delete(c.Request.Context(), sha)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	// The row deletion is authoritative and committed; blob removal is
	// best-effort, and a leftover file becomes an observable orphan.
	if err := s.blobs.Delete(sha); err != nil {
		s.log.Warn("blob removal failed after row deletion",
			zap.String("sha256", sha), zap.Error(err))
		s.pub.BlobOrphaned(c.Request.Context(), sha, s.blobs.Path(sha), err.Error())
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "deleted_id": id, "sha256": sha})
}

// normalizeDigest lowercases a digest path parameter, accepts an optional
// .jpg suffix, and returns "" when it is not 64 hex characters.
func normalizeDigest(raw string) string {
	sha := strings.ToLower(strings.TrimSuffix(raw, ".jpg"))
	if !blobstore.ValidDigest.MatchString(sha) {
		return ""
	}
	return sha
}

// parseFormCoords accepts an explicit coordinate pair from the request.
// Unless both values parse, neither applies.
func parseFormCoords(latStr, lonStr string) (lat, lon *float64) {
	if latStr == "" || lonStr == "" {
		return nil, nil
	}
	latV, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, nil
	}
	lonV, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil, nil
	}
	return &latV, &lonV
}

func parseBBox(raw string) (*models.BBox, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("expected 4 values, got %d", len(parts))
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return &models.BBox{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}, nil
}
