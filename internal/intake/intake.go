// Package intake downloads chart images from the messaging platform into
// local storage, validates them and schedules their deletion.
package intake

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/image/draw"

	"chartlens/internal/domain"
)

const (
	minFileSize  = 1024
	minDimension = 100
	maxDimension = 4096
	resizeFit    = 2048
	jpegQuality  = 85
)

// RemoteFile is the platform-side handle to an uploaded image.
type RemoteFile interface {
	// SizeBytes is the size declared by the platform, 0 when unknown.
	SizeBytes() int64
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Store persists incoming images under a single upload directory.
type Store struct {
	tracer    trace.Tracer
	uploadDir string
	maxSize   int64
	retention time.Duration
}

func NewStore(tracer trace.Tracer, uploadDir string, maxSize int64, retention time.Duration) (*Store, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", uploadDir, err)
	}
	log.Printf("image store initialized, upload dir: %s", uploadDir)
	return &Store{
		tracer:    tracer,
		uploadDir: uploadDir,
		maxSize:   maxSize,
		retention: retention,
	}, nil
}

// Ingest downloads the remote file, validates it and returns the stored
// image. Failures are reported as *domain.IntakeError. The stored file is
// deleted automatically after the retention delay whether or not the
// analysis that follows completes.
func (s *Store) Ingest(ctx context.Context, remote RemoteFile, ext string) (*domain.StoredImage, error) {
	_, span := s.tracer.Start(ctx, "intake.Ingest")
	defer span.End()

	ext = strings.ToLower(strings.TrimPrefix(ext, "."))

	if declared := remote.SizeBytes(); declared > s.maxSize {
		return nil, domain.NewIntakeError(domain.IntakeTooLarge,
			"image too large: %.1fMB (max: %.1fMB)",
			float64(declared)/1024/1024, float64(s.maxSize)/1024/1024)
	}

	id := uuid.NewString()
	path := filepath.Join(s.uploadDir, fmt.Sprintf("chart_%s.%s", id, ext))
	if err := s.download(ctx, remote, path); err != nil {
		return nil, err
	}
	s.scheduleCleanup(path)

	stored, err := s.validate(id, path, ext)
	if err != nil {
		removeQuiet(path)
		return nil, err
	}
	log.Printf("image validated: %dx%d, %d bytes", stored.Width, stored.Height, stored.SizeBytes)
	return stored, nil
}

func (s *Store) download(ctx context.Context, remote RemoteFile, path string) error {
	rc, err := remote.Open(ctx)
	if err != nil {
		return domain.NewIntakeError(domain.IntakeDownloadFailed, "download failed: %v", err)
	}
	defer rc.Close()

	f, err := os.Create(path)
	if err != nil {
		return domain.NewIntakeError(domain.IntakeDownloadFailed, "store image: %v", err)
	}
	n, err := io.Copy(f, rc)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		removeQuiet(path)
		return domain.NewIntakeError(domain.IntakeDownloadFailed, "store image: %v", err)
	}
	if n == 0 {
		removeQuiet(path)
		return domain.NewIntakeError(domain.IntakeDownloadFailed, "download produced an empty file")
	}
	return nil
}

func (s *Store) validate(id, path, ext string) (*domain.StoredImage, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, domain.NewIntakeError(domain.IntakeNotFound, "image file not found")
	}
	size := info.Size()
	if size > s.maxSize {
		return nil, domain.NewIntakeError(domain.IntakeTooLarge,
			"image too large: %.1fMB (max: %.1fMB)",
			float64(size)/1024/1024, float64(s.maxSize)/1024/1024)
	}
	if size < minFileSize {
		return nil, domain.NewIntakeError(domain.IntakeTooSmall, "image file too small")
	}
	if ext != "png" && ext != "jpg" && ext != "jpeg" {
		return nil, domain.NewIntakeError(domain.IntakeUnsupportedFormat, "unsupported format: .%s", ext)
	}

	img, err := decodeFile(path)
	if err != nil {
		return nil, domain.NewIntakeError(domain.IntakeCorruptImage, "invalid image file: %v", err)
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < minDimension || height < minDimension {
		return nil, domain.NewIntakeError(domain.IntakeDimensionsTooSmall,
			"image too small (minimum %dx%d pixels)", minDimension, minDimension)
	}

	if width > maxDimension || height > maxDimension {
		log.Printf("resizing large image: %dx%d", width, height)
		width, height, err = resizeInPlace(img, path, ext)
		if err != nil {
			return nil, domain.NewIntakeError(domain.IntakeCorruptImage, "resize image: %v", err)
		}
		if info, err = os.Stat(path); err == nil {
			size = info.Size()
		}
	}

	return &domain.StoredImage{
		ID:        id,
		Path:      path,
		SizeBytes: size,
		Width:     width,
		Height:    height,
		Ext:       ext,
	}, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

// resizeInPlace scales the image down to fit within resizeFit on both axes,
// preserving aspect ratio, and rewrites the file.
func resizeInPlace(img image.Image, path, ext string) (int, int, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	scale := float64(resizeFit) / float64(width)
	if h := float64(resizeFit) / float64(height); h < scale {
		scale = h
	}
	newW := int(float64(width) * scale)
	newH := int(float64(height) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	f, err := os.Create(path)
	if err != nil {
		return 0, 0, err
	}
	if ext == "png" {
		err = png.Encode(f, dst)
	} else {
		err = jpeg.Encode(f, dst, &jpeg.Options{Quality: jpegQuality})
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, 0, err
	}
	return newW, newH, nil
}

func (s *Store) scheduleCleanup(path string) {
	time.AfterFunc(s.retention, func() {
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				return
			}
			log.Printf("cleanup %s: %v", filepath.Base(path), err)
			return
		}
		log.Printf("cleaned up: %s", filepath.Base(path))
	})
}

// SweepUploads removes chart_* files older than the cutoff and returns how
// many were deleted. Used by the periodic maintenance job.
func SweepUploads(uploadDir string, olderThan time.Duration) (int, error) {
	matches, err := filepath.Glob(filepath.Join(uploadDir, "chart_*"))
	if err != nil {
		return 0, fmt.Errorf("scan upload dir: %w", err)
	}
	cutoff := time.Now().Add(-olderThan)
	count := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Printf("sweep %s: %v", filepath.Base(path), err)
			continue
		}
		count++
	}
	return count, nil
}

func removeQuiet(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("remove %s: %v", filepath.Base(path), err)
	}
}
