// Package upload validates image drafts and submits them in two phases:
// the binary goes to object storage, then the metadata is registered with
// the catalog. Only a confirmed registration invalidates the gallery cache.
package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/logger"
)

// State is the phase of the current submission attempt.
type State string

const (
	StateIdle                State = "idle"
	StateValidating          State = "validating"
	StateUploadingBinary     State = "uploading_binary"
	StateRegisteringMetadata State = "registering_metadata"
	StateSucceeded           State = "succeeded"
	StateRejected            State = "rejected"
	StateFailed              State = "failed"
)

// ErrSubmitInProgress is returned when Submit is called while another
// attempt on the same pipeline has not finished.
var ErrSubmitInProgress = errors.New("a submission is already in progress")

// BinaryUploader stores the file and returns a dereferenceable URL.
type BinaryUploader interface {
	UploadBinary(ctx context.Context, file *domain.File) (string, error)
}

// MetadataRegistrar registers an uploaded image with the catalog.
type MetadataRegistrar interface {
	RegisterMetadata(ctx context.Context, meta domain.ImageMetadata) (*domain.Image, error)
}

// Invalidator drops a cached collection.
type Invalidator interface {
	Invalidate(key string)
}

// AttemptResult describes how the last attempt ended.
type AttemptResult struct {
	State State
	Image *domain.Image
	Err   error
}

// PipelineConfig holds pipeline settings.
type PipelineConfig struct {
	CollectionKey string
	Rules         Rules
}

// Pipeline runs submission attempts one at a time.
type Pipeline struct {
	cfg       PipelineConfig
	uploader  BinaryUploader
	registrar MetadataRegistrar
	cache     Invalidator
	logger    *logger.Logger

	mu          sync.Mutex
	running     bool
	state       State
	fieldErrors domain.FieldErrors
	result      AttemptResult
}

// NewPipeline creates a pipeline. A zero Rules value falls back to DefaultRules.
func NewPipeline(cfg PipelineConfig, uploader BinaryUploader, registrar MetadataRegistrar, cache Invalidator, log *logger.Logger) *Pipeline {
	if cfg.Rules.TitleMax == 0 && cfg.Rules.SizeLimit == 0 {
		cfg.Rules = DefaultRules()
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &Pipeline{
		cfg:       cfg,
		uploader:  uploader,
		registrar: registrar,
		cache:     cache,
		logger:    log.WithField(logger.FieldComponent, "upload"),
		state:     StateIdle,
		result:    AttemptResult{State: StateIdle},
	}
}

// Validate checks d without submitting it.
func (p *Pipeline) Validate(d *domain.Draft) domain.FieldErrors {
	return p.cfg.Rules.Validate(d)
}

// State returns the phase of the current or last attempt.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// FieldErrors returns the validation errors of the last attempt.
func (p *Pipeline) FieldErrors() domain.FieldErrors {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append(domain.FieldErrors(nil), p.fieldErrors...)
}

// Result returns the outcome of the last finished attempt.
func (p *Pipeline) Result() AttemptResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

// Submit validates d, uploads its file unless a previous attempt already did,
// and registers the metadata. The collection is invalidated exactly once,
// after registration succeeds. On failure d keeps its values and RemoteURL so
// the caller can retry; on success d is reset.
func (p *Pipeline) Submit(ctx context.Context, d *domain.Draft) (*domain.Image, error) {
	if err := p.begin(); err != nil {
		return nil, err
	}

	ctx = logger.EnsureLogger(ctx, p.logger)
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldComponent: "upload",
		logger.FieldAttemptID: uuid.NewString(),
	})
	start := time.Now()

	if errs := p.Validate(d); len(errs) > 0 {
		p.mu.Lock()
		p.fieldErrors = errs
		p.mu.Unlock()
		p.finish(StateRejected, nil, errs)
		logger.CtxInfo(ctx, "Draft rejected with %d field errors", len(errs))
		return nil, errs
	}

	if d.RemoteURL == "" {
		p.transition(StateUploadingBinary)
		url, err := p.uploadBinary(ctx, d.File)
		if err != nil {
			return nil, p.fail(ctx, start, domain.NewError(domain.KindTransport, "failed to upload image", err))
		}
		d.RemoteURL = url
	} else {
		logger.CtxInfo(ctx, "Reusing uploaded image %s", d.RemoteURL)
	}

	if d.RemoteURL == "" {
		return nil, p.fail(ctx, start, domain.NewError(domain.KindIncompleteUpload,
			"image upload did not produce a URL", nil))
	}

	p.transition(StateRegisteringMetadata)
	image, err := p.registerMetadata(ctx, d.Metadata())
	if err != nil {
		return nil, p.fail(ctx, start, domain.NewError(domain.KindTransport, "failed to register image", err))
	}

	p.cache.Invalidate(p.cfg.CollectionKey)
	d.Reset()
	p.finish(StateSucceeded, image, nil)

	logger.With(logger.Fields{"image_id": image.ID, logger.FieldCollectionKey: p.cfg.CollectionKey}).
		WithDuration(start).WithStatus(string(StateSucceeded)).
		Info(ctx, "Image submitted")
	return image, nil
}

// uploadBinary and registerMetadata turn a panic in the remote call into an
// error so the attempt always finishes.
func (p *Pipeline) uploadBinary(ctx context.Context, f *domain.File) (url string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("uploader panicked: %v", r)
		}
	}()
	return p.uploader.UploadBinary(ctx, f)
}

func (p *Pipeline) registerMetadata(ctx context.Context, meta domain.ImageMetadata) (image *domain.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("registrar panicked: %v", r)
		}
	}()
	return p.registrar.RegisterMetadata(ctx, meta)
}

func (p *Pipeline) begin() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrSubmitInProgress
	}
	p.running = true
	p.state = StateValidating
	p.fieldErrors = nil
	return nil
}

func (p *Pipeline) transition(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *Pipeline) finish(s State, image *domain.Image, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	p.state = s
	p.result = AttemptResult{State: s, Image: image, Err: err}
}

func (p *Pipeline) fail(ctx context.Context, start time.Time, err *domain.Error) error {
	p.mu.Lock()
	phase := p.state
	p.mu.Unlock()

	p.finish(StateFailed, nil, err)
	logger.With(logger.Fields{"phase": string(phase)}).
		WithDuration(start).WithStatus(string(StateFailed)).
		Error(ctx, "Image submission failed: %v", err)
	return err
}
