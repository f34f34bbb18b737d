package domain

import (
	"bytes"
	"errors"
	"io"
)

// File is a binary blob selected for upload.
// The body can be opened more than once so that a failed attempt can be retried.
type File struct {
	Name      string
	Size      int64
	MediaType string
	open      func() (io.ReadCloser, error)
}

// NewFile creates a File whose body is produced by open.
func NewFile(name, mediaType string, size int64, open func() (io.ReadCloser, error)) *File {
	return &File{Name: name, Size: size, MediaType: mediaType, open: open}
}

// NewFileFromBytes creates an in-memory File.
func NewFileFromBytes(name, mediaType string, data []byte) *File {
	return NewFile(name, mediaType, int64(len(data)), func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
}

// Open returns a fresh reader over the file body.
func (f *File) Open() (io.ReadCloser, error) {
	if f == nil || f.open == nil {
		return nil, errors.New("file has no body")
	}
	return f.open()
}

// Draft holds the user-entered state for one upload attempt.
// RemoteURL is set once the binary upload succeeds and survives a failed
// metadata registration so the binary is not uploaded twice.
type Draft struct {
	File        *File
	Title       string
	Description string
	RemoteURL   string
}

// SetFile replaces the selected file and forgets any previously uploaded URL.
func (d *Draft) SetFile(f *File) {
	d.File = f
	d.RemoteURL = ""
}

// Metadata builds the registration payload from the draft.
func (d *Draft) Metadata() ImageMetadata {
	return ImageMetadata{
		URL:         d.RemoteURL,
		Title:       d.Title,
		Description: d.Description,
	}
}

// Reset discards everything entered into the draft.
func (d *Draft) Reset() {
	*d = Draft{}
}
