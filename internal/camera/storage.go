package camera

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/sixdouglas/suncalc"
	"github.com/woodsense/s3i-gateway/pkg/config"
	"github.com/woodsense/s3i-gateway/pkg/postgres"
)

// Storage persists camera images in Postgres. Each row carries the sender,
// the camera-side path, the capture time, the raw jpeg bytes and a daylight
// flag derived from the sun's altitude at the camera site.
type Storage struct {
	db     postgres.Client
	cfg    *config.Config
	logger *slog.Logger
}

// NewStorage creates a new camera image storage
func NewStorage(db postgres.Client, cfg *config.Config, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

// EnsureSchema creates the images table if it does not exist yet.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS camera_images (
			id          BIGSERIAL PRIMARY KEY,
			sender      TEXT        NOT NULL,
			message_id  TEXT        NOT NULL,
			path        TEXT        NOT NULL,
			taken_at    TIMESTAMPTZ NOT NULL,
			is_daylight BOOLEAN     NOT NULL,
			image       BYTEA       NOT NULL,
			stored_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create camera_images table: %w", err)
	}
	return nil
}

// Store writes one image to the database.
func (s *Storage) Store(ctx context.Context, sender, messageID string, img ImageValue) error {
	daylight := s.isDaylight(img.TakenAt)

	const insert = `
		INSERT INTO camera_images (sender, message_id, path, taken_at, is_daylight, image)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.db.Exec(ctx, insert, sender, messageID, img.Path, img.TakenAt, daylight, img.Image); err != nil {
		return fmt.Errorf("failed to store image from %s: %w", sender, err)
	}

	s.logger.Info("Stored camera image",
		"sender", sender,
		"path", img.Path,
		"taken_at", img.TakenAt,
		"is_daylight", daylight,
		"size", len(img.Image))

	return nil
}

// Count returns the number of stored images.
func (s *Storage) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRow(ctx, "SELECT count(*) FROM camera_images").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count images: %w", err)
	}
	return count, nil
}

// isDaylight reports whether the sun was above the horizon at the camera
// site when the image was captured.
func (s *Storage) isDaylight(t time.Time) bool {
	position := suncalc.GetPosition(t, s.cfg.Latitude, s.cfg.Longitude)
	altitudeDegrees := position.Altitude * (180.0 / math.Pi)
	return altitudeDegrees > 0
}
