package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/tiptop/backend/internal/config"
	"github.com/tiptop/backend/internal/logger"
	"github.com/tiptop/backend/internal/models"
	"github.com/tiptop/backend/internal/repository"
	"go.uber.org/zap"
)

const PublicAdLimit = 10

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type AdService struct {
	ads AdStore
	fs  afero.Fs
	cfg config.UploadConfig
	now func() time.Time
}

func NewAdService(ads AdStore, fs afero.Fs, cfg config.UploadConfig) *AdService {
	return &AdService{ads: ads, fs: fs, cfg: cfg, now: time.Now}
}

func (s *AdService) MaxUploadBytes() int64 {
	return s.cfg.MaxBytes
}

// ActiveAds returns the newest active ads for the public page.
func (s *AdService) ActiveAds(ctx context.Context) ([]*models.Ad, error) {
	ads, err := s.ads.ListActive(ctx, PublicAdLimit)
	if err != nil {
		return nil, err
	}
	return s.withURLs(ads), nil
}

func (s *AdService) AllAds(ctx context.Context) ([]*models.Ad, error) {
	ads, err := s.ads.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.withURLs(ads), nil
}

// CreateAd stores the uploaded image and inserts an active ad pointing at it.
func (s *AdService) CreateAd(ctx context.Context, title, link, filename string, src io.Reader) (*models.Ad, error) {
	if !s.allowedExtension(filename) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFile, filepath.Ext(filename))
	}

	name := s.now().Format("20060102_150405") + "_" + sanitizeFilename(filename)
	if err := s.writeImage(name, src); err != nil {
		return nil, err
	}

	ad := &models.Ad{
		Title:    strings.TrimSpace(title),
		Image:    name,
		Link:     strings.TrimSpace(link),
		IsActive: true,
	}
	if err := s.ads.Create(ctx, ad); err != nil {
		s.removeImage(name)
		return nil, err
	}

	logger.Log.Info("Ad created", zap.Int64("ad_id", ad.ID), zap.String("image", name))
	ad.ImageURL = s.ImageURL(name)
	return ad, nil
}

func (s *AdService) ToggleAd(ctx context.Context, id int64) (*models.Ad, error) {
	ad, err := s.ads.Toggle(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	ad.ImageURL = s.ImageURL(ad.Image)
	return ad, nil
}

// DeleteAd removes the ad row and then its image file.
func (s *AdService) DeleteAd(ctx context.Context, id int64) error {
	ad, err := s.ads.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	err = s.ads.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	s.removeImage(ad.Image)
	logger.Log.Info("Ad deleted", zap.Int64("ad_id", id))
	return nil
}

func (s *AdService) ImageURL(name string) string {
	return s.cfg.PublicPrefix + name
}

func (s *AdService) writeImage(name string, src io.Reader) error {
	if err := s.fs.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload dir: %w", err)
	}

	f, err := s.fs.Create(filepath.Join(s.cfg.Dir, name))
	if err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}

	limit := s.cfg.MaxBytes
	var reader io.Reader = src
	if limit > 0 {
		reader = io.LimitReader(src, limit+1)
	}

	n, err := io.Copy(f, reader)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		s.removeImage(name)
		return fmt.Errorf("failed to write image: %w", err)
	}

	if limit > 0 && n > limit {
		s.removeImage(name)
		return fmt.Errorf("%w: larger than %d bytes", ErrInvalidFile, limit)
	}
	return nil
}

func (s *AdService) removeImage(name string) {
	err := s.fs.Remove(filepath.Join(s.cfg.Dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Log.Warn("Failed to remove ad image", zap.String("image", name), zap.Error(err))
	}
}

func (s *AdService) allowedExtension(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return false
	}
	for _, allowed := range s.cfg.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (s *AdService) withURLs(ads []*models.Ad) []*models.Ad {
	for _, ad := range ads {
		ad.ImageURL = s.ImageURL(ad.Image)
	}
	return ads
}

// sanitizeFilename keeps only the base name and replaces anything outside
// [A-Za-z0-9._-] with an underscore.
func sanitizeFilename(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	clean := unsafeFilenameChars.ReplaceAllString(base, "_")
	clean = strings.TrimLeft(clean, "._")
	if clean == "" {
		return "upload"
	}
	return clean
}
