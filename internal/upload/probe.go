package upload

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/timmy/gallery/internal/domain"
	_ "golang.org/x/image/webp"
)

// Probe describes an image file on disk.
type Probe struct {
	MediaType string
	Width     int
	Height    int
}

// ProbeReader reads an image header. Formats the decoder does not know fall
// back to content sniffing so the accepted-type check can still reject them.
func ProbeReader(r io.ReadSeeker) (Probe, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err == nil {
		return Probe{MediaType: "image/" + format, Width: cfg.Width, Height: cfg.Height}, nil
	}

	if _, seekErr := r.Seek(0, io.SeekStart); seekErr != nil {
		return Probe{}, fmt.Errorf("failed to rewind file: %w", seekErr)
	}
	head := make([]byte, 512)
	n, readErr := io.ReadFull(r, head)
	if readErr != nil && readErr != io.ErrUnexpectedEOF && readErr != io.EOF {
		return Probe{}, fmt.Errorf("failed to read file header: %w", readErr)
	}
	return Probe{MediaType: http.DetectContentType(head[:n])}, nil
}

// OpenFile builds an upload file from a path on disk. The declared media type
// comes from the image header rather than the file extension.
func OpenFile(path string) (*domain.File, Probe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Probe{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, Probe{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, Probe{}, fmt.Errorf("%s is a directory", path)
	}

	probe, err := ProbeReader(f)
	if err != nil {
		return nil, Probe{}, err
	}

	file := domain.NewFile(filepath.Base(path), probe.MediaType, info.Size(), func() (io.ReadCloser, error) {
		return os.Open(path)
	})
	return file, probe, nil
}
