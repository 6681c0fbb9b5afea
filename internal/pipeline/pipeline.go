package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/cliphive/cliphive-backend/internal/acquire"
	"github.com/cliphive/cliphive-backend/internal/mediameta"
	"github.com/cliphive/cliphive-backend/internal/policy"
	"github.com/cliphive/cliphive-backend/internal/records"
	"github.com/cliphive/cliphive-backend/internal/transfer"
	"github.com/cliphive/cliphive-backend/pkg/db/models"
	"github.com/cliphive/cliphive-backend/pkg/enums"
	pkgerrors "github.com/cliphive/cliphive-backend/pkg/errors"
	"github.com/cliphive/cliphive-backend/pkg/logger"
	"github.com/cliphive/cliphive-backend/pkg/metrics"
)

// percentByStage fixes the progress checkpoints for one attempt.
var percentByStage = map[enums.UploadStage]int{
	enums.UploadStageIdle:                0,
	enums.UploadStagePicking:             5,
	enums.UploadStageRecording:           5,
	enums.UploadStageExtracting:          15,
	enums.UploadStageGeneratingThumbnail: 30,
	enums.UploadStageUploading:           45,
	enums.UploadStageCreatingRecord:      85,
	enums.UploadStageComplete:            100,
}

// Progress is the single source of truth for rendering one attempt. Only the
// pipeline mutates it.
type Progress struct {
	Stage   enums.UploadStage `json:"stage"`
	Percent int               `json:"percent"`
	Message string            `json:"message"`
	Error   string            `json:"error,omitempty"`
	Reason  string            `json:"reason,omitempty"`
}

// Submission carries the caller's intent for one upload attempt.
type Submission struct {
	OwnerID     uuid.UUID
	Title       string
	Description *string
	Visibility  enums.AssetVisibility
	ParentID    *uuid.UUID
	BearerToken string
}

// Result is the pipeline's public outcome. Success with a processing-status
// record is legal: promotion failures are absorbed.
type Result struct {
	Success bool
	Record  *models.Asset
}

// MetadataExtractor derives normalized metadata from a capture.
type MetadataExtractor interface {
	FromCapture(ctx context.Context, capture acquire.Capture) (mediameta.VideoMetadata, error)
}

// ThumbnailGenerator produces a local still-frame path for a video.
type ThumbnailGenerator interface {
	Generate(ctx context.Context, videoURI string) (string, error)
}

// Transferrer moves artifacts to durable storage.
type Transferrer interface {
	Upload(ctx context.Context, in transfer.Input) (transfer.Output, error)
}

// Committer writes the asset record.
type Committer interface {
	Commit(ctx context.Context, in records.Input) (*models.Asset, error)
}

// ProgressSink receives progress snapshots for out-of-process readers. The
// redis client satisfies it; a nil sink disables publishing.
type ProgressSink interface {
	PublishProgress(ctx context.Context, uploadID string, snapshot []byte, ttl time.Duration) error
}

// Deps wires one pipeline instance.
type Deps struct {
	Acquirer  acquire.Acquirer
	Extractor MetadataExtractor
	Thumbs    ThumbnailGenerator
	Transfer  Transferrer
	Committer Committer
	Policy    policy.Config
	Sink      ProgressSink
	Logger    *logger.Logger
	Metrics   *metrics.PipelineMetrics

	MaxRecordSeconds int
	SnapshotTTL      time.Duration
}

// Pipeline runs one upload at a time through acquisition, extraction, policy
// check, thumbnail generation, transfer, and record commit. Instances are
// independent; nothing is shared between them.
type Pipeline struct {
	id   uuid.UUID
	deps Deps

	mu       sync.Mutex
	progress Progress
	result   *Result
	gen      int
	subs     map[int]chan Progress
	nextSub  int
}

// New builds an idle pipeline.
func New(deps Deps) *Pipeline {
	if deps.SnapshotTTL <= 0 {
		deps.SnapshotTTL = time.Hour
	}
	return &Pipeline{
		id:       uuid.New(),
		deps:     deps,
		progress: Progress{Stage: enums.UploadStageIdle},
		subs:     map[int]chan Progress{},
	}
}

// ID identifies this pipeline instance.
func (p *Pipeline) ID() uuid.UUID {
	return p.id
}

// PickFromGallery runs one attempt sourced from an existing video.
func (p *Pipeline) PickFromGallery(ctx context.Context, sub Submission) (Result, error) {
	return p.run(ctx, enums.UploadStagePicking, enums.AcquireSourceGallery, p.deps.Acquirer, sub)
}

// RecordVideo runs one attempt sourced from a fresh recording.
func (p *Pipeline) RecordVideo(ctx context.Context, sub Submission) (Result, error) {
	return p.run(ctx, enums.UploadStageRecording, enums.AcquireSourceCamera, p.deps.Acquirer, sub)
}

// RunCapture runs one attempt against an already-staged capture, bypassing
// the configured acquirer. The multipart ingest path lands here.
func (p *Pipeline) RunCapture(ctx context.Context, capture acquire.Capture, sub Submission) (Result, error) {
	return p.run(ctx, enums.UploadStagePicking, enums.AcquireSourceGallery, acquire.FileAcquirer{Capture: capture}, sub)
}

// Progress returns the current snapshot.
func (p *Pipeline) Progress() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

// Result returns the outcome of the last finished attempt, if any.
func (p *Pipeline) Result() (Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.result == nil {
		return Result{}, false
	}
	return *p.result, true
}

// Subscribe returns a channel of progress updates and a cancel func. Slow
// consumers miss intermediate updates rather than blocking the pipeline.
func (p *Pipeline) Subscribe() (<-chan Progress, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSub
	p.nextSub++
	ch := make(chan Progress, 16)
	ch <- p.progress
	p.subs[id] = ch

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if sub, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Reset returns the pipeline to idle unconditionally. An attempt still in
// flight is orphaned: its remaining transitions are discarded and it finishes
// as canceled.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.result = nil
	p.progress = Progress{Stage: enums.UploadStageIdle}
	p.broadcastLocked()
}

func (p *Pipeline) run(ctx context.Context, start enums.UploadStage, source enums.AcquireSource, acq acquire.Acquirer, sub Submission) (Result, error) {
	gen, err := p.begin(start)
	if err != nil {
		return Result{}, err
	}
	p.publish(ctx, p.Progress())

	if sub.OwnerID == uuid.Nil {
		return p.fail(ctx, gen, pkgerrors.New(pkgerrors.CodeValidation, "owner identity missing"))
	}

	capture, err := p.acquireStage(ctx, gen, source, acq)
	if err != nil {
		return p.fail(ctx, gen, err)
	}
	if capture.Canceled {
		return p.canceled(ctx, gen)
	}

	meta, err := p.extractStage(ctx, gen, capture)
	if err != nil {
		p.cleanup(ctx, capture, "")
		return p.fail(ctx, gen, err)
	}

	thumbPath := p.thumbnailStage(ctx, gen, meta)

	out, err := p.uploadStage(ctx, gen, sub, capture, meta, thumbPath)
	if err != nil {
		p.cleanup(ctx, capture, thumbPath)
		return p.fail(ctx, gen, err)
	}

	record, err := p.commitStage(ctx, gen, sub, meta, out)
	p.cleanup(ctx, capture, thumbPath)
	if err != nil {
		return p.fail(ctx, gen, err)
	}

	result := Result{Success: true, Record: record}
	p.finish(ctx, gen, Progress{
		Stage:   enums.UploadStageComplete,
		Percent: percentByStage[enums.UploadStageComplete],
		Message: "upload complete",
	}, &result)
	p.deps.Metrics.IncOutcome("complete")
	return result, nil
}

// begin reserves the pipeline for a new attempt.
func (p *Pipeline) begin(start enums.UploadStage) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.progress.Stage.AcceptsNewAttempt() {
		return 0, pkgerrors.New(pkgerrors.CodeStateConflict, "an upload attempt is already in flight").
			WithDetails(map[string]any{"stage": p.progress.Stage.String()})
	}

	p.gen++
	p.result = nil
	p.progress = Progress{
		Stage:   start,
		Percent: percentByStage[start],
		Message: "acquiring video",
	}
	p.broadcastLocked()
	return p.gen, nil
}

func (p *Pipeline) acquireStage(ctx context.Context, gen int, source enums.AcquireSource, acq acquire.Acquirer) (acquire.Capture, error) {
	stage := enums.UploadStagePicking
	if source == enums.AcquireSourceCamera {
		stage = enums.UploadStageRecording
	}
	start := time.Now()
	capture, err := acq.Acquire(ctx, acquire.Request{
		Source:             source,
		MaxDurationSeconds: p.deps.MaxRecordSeconds,
	})
	p.deps.Metrics.ObserveStage(stage.String(), time.Since(start))
	return capture, err
}

func (p *Pipeline) extractStage(ctx context.Context, gen int, capture acquire.Capture) (mediameta.VideoMetadata, error) {
	p.transition(ctx, gen, enums.UploadStageExtracting, "reading video metadata")

	start := time.Now()
	meta, err := p.deps.Extractor.FromCapture(ctx, capture)
	p.deps.Metrics.ObserveStage(enums.UploadStageExtracting.String(), time.Since(start))
	if err != nil {
		return mediameta.VideoMetadata{}, err
	}

	if violation := policy.Check(meta, p.deps.Policy); violation != nil {
		return mediameta.VideoMetadata{}, pkgerrors.New(pkgerrors.CodeConstraint, violation.Message()).
			WithDetails(map[string]any{
				"kind":      violation.Kind.String(),
				"threshold": violation.Threshold,
				"actual":    violation.Actual,
			})
	}
	return meta, nil
}

// thumbnailStage is best effort: every failure is absorbed and the attempt
// proceeds without a thumbnail.
func (p *Pipeline) thumbnailStage(ctx context.Context, gen int, meta mediameta.VideoMetadata) string {
	p.transition(ctx, gen, enums.UploadStageGeneratingThumbnail, "generating thumbnail")

	start := time.Now()
	thumbPath, err := p.deps.Thumbs.Generate(ctx, meta.URI)
	p.deps.Metrics.ObserveStage(enums.UploadStageGeneratingThumbnail.String(), time.Since(start))
	if err != nil {
		if p.deps.Logger != nil {
			p.deps.Logger.Warn(p.deps.Logger.WithUploadID(ctx, p.id.String()), "thumbnail generation failed, continuing without it")
		}
		return ""
	}
	return thumbPath
}

func (p *Pipeline) uploadStage(ctx context.Context, gen int, sub Submission, capture acquire.Capture, meta mediameta.VideoMetadata, thumbPath string) (transfer.Output, error) {
	p.transition(ctx, gen, enums.UploadStageUploading, "uploading video")

	start := time.Now()
	out, err := p.deps.Transfer.Upload(ctx, transfer.Input{
		OwnerID:      sub.OwnerID,
		VideoURI:     capture.URI,
		VideoMime:    meta.MimeType,
		ThumbnailURI: thumbPath,
		BearerToken:  sub.BearerToken,
	})
	p.deps.Metrics.ObserveStage(enums.UploadStageUploading.String(), time.Since(start))
	return out, err
}

func (p *Pipeline) commitStage(ctx context.Context, gen int, sub Submission, meta mediameta.VideoMetadata, out transfer.Output) (*models.Asset, error) {
	p.transition(ctx, gen, enums.UploadStageCreatingRecord, "saving video record")

	start := time.Now()
	record, err := p.deps.Committer.Commit(ctx, records.Input{
		OwnerID:      sub.OwnerID,
		Title:        sub.Title,
		Description:  sub.Description,
		Visibility:   sub.Visibility,
		ParentID:     sub.ParentID,
		VideoURL:     out.VideoURL,
		ThumbnailURL: out.ThumbnailURL,
		Meta:         meta,
	})
	p.deps.Metrics.ObserveStage(enums.UploadStageCreatingRecord.String(), time.Since(start))
	return record, err
}

func (p *Pipeline) canceled(ctx context.Context, gen int) (Result, error) {
	result := Result{Success: false}
	p.finish(ctx, gen, Progress{Stage: enums.UploadStageIdle}, &result)
	p.deps.Metrics.IncOutcome("canceled")
	return result, nil
}

func (p *Pipeline) fail(ctx context.Context, gen int, err error) (Result, error) {
	code := pkgerrors.CodeOf(err)
	message := pkgerrors.MetadataFor(code).PublicMessage
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		message = typed.Message()
	}

	result := Result{Success: false}
	p.finish(ctx, gen, Progress{
		Stage:   enums.UploadStageError,
		Percent: p.Progress().Percent,
		Message: message,
		Error:   message,
		Reason:  string(code),
	}, &result)
	p.deps.Metrics.IncOutcome("error")

	if p.deps.Logger != nil {
		lctx := p.deps.Logger.WithUploadID(ctx, p.id.String())
		p.deps.Logger.Error(lctx, "upload attempt failed", err)
	}
	return result, err
}

// transition advances the attempt unless a reset orphaned it.
func (p *Pipeline) transition(ctx context.Context, gen int, stage enums.UploadStage, message string) {
	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return
	}
	p.progress = Progress{
		Stage:   stage,
		Percent: percentByStage[stage],
		Message: message,
	}
	snapshot := p.progress
	p.broadcastLocked()
	p.mu.Unlock()

	p.publish(ctx, snapshot)
}

func (p *Pipeline) finish(ctx context.Context, gen int, progress Progress, result *Result) {
	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return
	}
	p.progress = progress
	p.result = result
	p.broadcastLocked()
	p.mu.Unlock()

	p.publish(ctx, progress)
}

func (p *Pipeline) broadcastLocked() {
	for _, ch := range p.subs {
		select {
		case ch <- p.progress:
		default:
		}
	}
}

func (p *Pipeline) publish(ctx context.Context, snapshot Progress) {
	if p.deps.Sink == nil {
		return
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := p.deps.Sink.PublishProgress(ctx, p.id.String(), raw, p.deps.SnapshotTTL); err != nil {
		if p.deps.Logger != nil {
			p.deps.Logger.Warn(p.deps.Logger.WithUploadID(ctx, p.id.String()), "publishing progress snapshot failed")
		}
	}
}

// cleanup removes temp artifacts owned by this attempt: the generated
// thumbnail always, the captured video only when the pipeline staged it.
func (p *Pipeline) cleanup(ctx context.Context, capture acquire.Capture, thumbPath string) {
	var errs error
	if thumbPath != "" {
		if err := os.Remove(thumbPath); err != nil && !os.IsNotExist(err) {
			errs = multierr.Append(errs, err)
		}
	}
	if capture.Staged && capture.URI != "" {
		if err := os.Remove(capture.URI); err != nil && !os.IsNotExist(err) {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil && p.deps.Logger != nil {
		lctx := p.deps.Logger.WithField(ctx, "cleanup_error", errs.Error())
		p.deps.Logger.Warn(lctx, "temp artifact cleanup incomplete")
	}
}
