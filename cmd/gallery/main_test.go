package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/gallery/internal/config"
	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/logger"
)

// catalogServer is an in-memory catalog that pages by list index.
type catalogServer struct {
	mu       sync.Mutex
	images   []domain.Image
	pageSize int
	gets     []string
	failPost bool
}

func (s *catalogServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodGet:
		after := r.URL.Query().Get("after")
		s.gets = append(s.gets, after)
		start := 0
		if after != "" {
			start, _ = strconv.Atoi(after)
		}
		end := min(start+s.pageSize, len(s.images))
		var next *string
		if end < len(s.images) {
			c := strconv.Itoa(end)
			next = &c
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"after": next, "data": s.images[start:end]})
	case http.MethodPost:
		if s.failPost {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"catalog unavailable"}`))
			return
		}
		var meta domain.ImageMetadata
		_ = json.NewDecoder(r.Body).Decode(&meta)
		img := domain.Image{
			ID:          "img-" + strconv.Itoa(len(s.images)+1),
			Title:       meta.Title,
			Description: meta.Description,
			URL:         meta.URL,
			Ts:          int64(len(s.images) + 1),
		}
		s.images = append(s.images, img)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(img)
	}
}

func (s *catalogServer) setFailPost(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPost = fail
}

type stubUploader struct {
	calls int
}

func (u *stubUploader) UploadBinary(_ context.Context, file *domain.File) (string, error) {
	u.calls++
	return "https://cdn.example.com/" + file.Name, nil
}

func newTestApp(t *testing.T, images int) (*app, *catalogServer, *stubUploader, *bytes.Buffer) {
	t.Helper()

	srv := &catalogServer{pageSize: 2}
	for i := 1; i <= images; i++ {
		srv.images = append(srv.images, domain.Image{
			ID:    "img-" + strconv.Itoa(i),
			Title: "Image " + strconv.Itoa(i),
			URL:   "https://cdn.example.com/" + strconv.Itoa(i) + ".png",
			Ts:    int64(i),
		})
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	out := &bytes.Buffer{}
	up := &stubUploader{}
	a := &app{
		cfg: &config.Config{
			Client: config.ClientConfig{
				APIBaseURL:    ts.URL,
				Timeout:       5 * time.Second,
				CollectionKey: "images",
			},
		},
		log:      logger.Discard(),
		uploader: up,
		out:      out,
	}
	return a, srv, up, out
}

func run(t *testing.T, a *app, args ...string) error {
	t.Helper()
	cmd := newRootCommand(a)
	cmd.SetArgs(args)
	cmd.SetOut(a.out)
	cmd.SetErr(a.out)
	return cmd.ExecuteContext(context.Background())
}

func writePNG(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cat.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 3))))
	return path
}

func TestBrowse(t *testing.T) {
	t.Run("stops after requested pages", func(t *testing.T) {
		a, srv, _, out := newTestApp(t, 5)

		require.NoError(t, run(t, a, "browse", "--pages", "2"))

		assert.Equal(t, []string{"", "2"}, srv.gets)
		assert.Contains(t, out.String(), "Image 4")
		assert.NotContains(t, out.String(), "Image 5")
		assert.Contains(t, out.String(), "4 images, more available")
	})

	t.Run("stops at end of gallery", func(t *testing.T) {
		a, srv, _, out := newTestApp(t, 3)

		require.NoError(t, run(t, a, "browse", "--pages", "10"))

		assert.Len(t, srv.gets, 2)
		assert.Contains(t, out.String(), "3 images, end of gallery")
	})

	t.Run("rejects zero pages", func(t *testing.T) {
		a, _, _, _ := newTestApp(t, 1)
		assert.Error(t, run(t, a, "browse", "--pages", "0"))
	})
}

func TestUpload(t *testing.T) {
	t.Run("success invalidates and reloads first page", func(t *testing.T) {
		a, srv, up, out := newTestApp(t, 1)

		err := run(t, a, "upload", "--file", writePNG(t), "--title", "Cat", "--description", "A small cat")
		require.NoError(t, err)

		assert.Equal(t, 1, up.calls)
		assert.Contains(t, out.String(), "uploaded Cat as img-2")
		assert.Contains(t, out.String(), `gallery "images" invalidated`)
		assert.Contains(t, out.String(), "2 images, end of gallery")
		assert.Equal(t, []string{""}, srv.gets)
		require.Len(t, srv.images, 2)
		assert.Equal(t, "https://cdn.example.com/cat.png", srv.images[1].URL)
	})

	t.Run("invalid draft never uploads", func(t *testing.T) {
		a, srv, up, out := newTestApp(t, 1)

		err := run(t, a, "upload", "--title", "C")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrValidation)

		assert.Zero(t, up.calls)
		assert.Len(t, srv.images, 1)
		assert.Contains(t, out.String(), "image: file is required")
		assert.Contains(t, out.String(), "title: title must be at least 2 characters")
		assert.Contains(t, out.String(), "description: description is required")
	})
}

func TestUploadRetryReusesRemoteURL(t *testing.T) {
	a, srv, up, out := newTestApp(t, 1)
	path := writePNG(t)
	srv.setFailPost(true)

	err := run(t, a, "upload", "--file", path, "--title", "Cat", "--description", "A small cat")
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, 1, up.calls)
	assert.Contains(t, out.String(), "retry with --remote-url https://cdn.example.com/cat.png")
	assert.Len(t, srv.images, 1)

	srv.setFailPost(false)
	out.Reset()
	err = run(t, a, "upload", "--file", path, "--title", "Cat", "--description", "A small cat",
		"--remote-url", "https://cdn.example.com/cat.png")
	require.NoError(t, err)

	assert.Equal(t, 1, up.calls)
	require.Len(t, srv.images, 2)
	assert.Equal(t, "https://cdn.example.com/cat.png", srv.images[1].URL)
	assert.Contains(t, out.String(), "uploaded Cat as img-2")
}
