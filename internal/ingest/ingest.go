// Package ingest validates uploaded pest images and stores them as scoped
// artifacts under the uploads directory. Artifacts are referenced by an
// opaque ref which is what gets persisted with a detection result.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/haritpath/pestwatch/internal/conf"
	"github.com/haritpath/pestwatch/internal/errors"
	"github.com/haritpath/pestwatch/internal/logging"
)

// ErrInvalidImage indicates a missing, empty, oversized or non-image
// payload. It is rejected before any external call is made.
var ErrInvalidImage = errors.NewStd("invalid image payload")

// Artifact describes one stored upload.
type Artifact struct {
	Ref   string // opaque reference stored with the detection result
	Path  string // absolute path of the stored file
	MIME  string // sniffed content type
	Size  int64  // payload size in bytes
	Bytes []byte // raw payload for immediate forwarding to the classifier
}

// Ingestor writes validated uploads into its base directory.
type Ingestor struct {
	baseDir string
	maxSize int64
	log     *slog.Logger
}

// extensions for accepted image content types
var mimeExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
	"image/tiff": ".tiff",
}

// New creates an Ingestor rooted at the configured uploads directory,
// creating it if needed.
func New(settings *conf.Settings) (*Ingestor, error) {
	baseDir := conf.GetBasePath(settings.Ingest.Path)

	fi, err := os.Stat(baseDir)
	if err != nil {
		return nil, fmt.Errorf("checking uploads directory %q: %w", baseDir, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("uploads path is not a directory: %q", baseDir)
	}

	return &Ingestor{
		baseDir: baseDir,
		maxSize: settings.Ingest.MaxUploadSize,
		log:     logging.ForService("ingest"),
	}, nil
}

// BaseDir returns the absolute uploads directory.
func (ing *Ingestor) BaseDir() string {
	return ing.baseDir
}

// Store validates the payload and writes it to the uploads directory.
// The returned artifact carries the raw bytes so the caller can forward
// them to the classifier without re-reading the file.
func (ing *Ingestor) Store(ctx context.Context, filename, declaredMIME string, r io.Reader) (*Artifact, error) {
	if r == nil {
		return nil, ErrInvalidImage
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Read one byte past the limit so oversized payloads are detected
	// without buffering the whole stream.
	data, err := io.ReadAll(io.LimitReader(r, ing.maxSize+1))
	if err != nil {
		return nil, errors.New(fmt.Errorf("reading upload: %w", err)).
			Category(errors.CategoryImageIngest).
			Component("ingest").
			Build()
	}
	if len(data) == 0 {
		return nil, ErrInvalidImage
	}
	if int64(len(data)) > ing.maxSize {
		return nil, fmt.Errorf("%w: payload exceeds %d bytes", ErrInvalidImage, ing.maxSize)
	}

	mime := sniffMIME(data, declaredMIME)
	ext, ok := mimeExtensions[mime]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported content type %q", ErrInvalidImage, mime)
	}

	name := uuid.New().String() + ext
	path := filepath.Join(ing.baseDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, errors.New(fmt.Errorf("writing upload %q: %w", path, err)).
			Category(errors.CategoryFileIO).
			Component("ingest").
			Build()
	}

	if ing.log != nil {
		ing.log.Debug("Stored upload",
			"ref", name,
			"mime", mime,
			"size", len(data),
			"original_name", filename)
	}

	return &Artifact{
		Ref:   name,
		Path:  path,
		MIME:  mime,
		Size:  int64(len(data)),
		Bytes: data,
	}, nil
}

// Remove deletes a stored artifact by ref. Used when a request fails
// before a detection result references the image.
func (ing *Ingestor) Remove(ref string) error {
	// Refs are bare generated filenames; reject anything path-like.
	if ref == "" || ref != filepath.Base(ref) {
		return fmt.Errorf("invalid artifact ref: %q", ref)
	}
	if err := os.Remove(filepath.Join(ing.baseDir, ref)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing artifact %q: %w", ref, err)
	}
	return nil
}

// sniffMIME prefers content sniffing over the client supplied type, which
// is unreliable for camera captures.
func sniffMIME(data []byte, declared string) string {
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	declared = strings.TrimSpace(strings.Split(declared, ";")[0])
	if strings.HasPrefix(declared, "image/") {
		return declared
	}
	return sniffed
}
