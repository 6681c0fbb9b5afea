package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cliphive/cliphive-backend/api/middleware"
	"github.com/cliphive/cliphive-backend/api/responses"
	"github.com/cliphive/cliphive-backend/api/validators"
	"github.com/cliphive/cliphive-backend/internal/acquire"
	"github.com/cliphive/cliphive-backend/internal/pipeline"
	"github.com/cliphive/cliphive-backend/pkg/config"
	"github.com/cliphive/cliphive-backend/pkg/enums"
	pkgerrors "github.com/cliphive/cliphive-backend/pkg/errors"
	"github.com/cliphive/cliphive-backend/pkg/logger"
)

const videoFormField = "video"

type uploadForm struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Visibility  string `json:"visibility" validate:"omitempty,oneof=public unlisted private"`
	Source      string `json:"source" validate:"omitempty,oneof=gallery camera"`
	ParentID    string `json:"parent_id" validate:"omitempty,uuid4"`
}

type uploadAccepted struct {
	UploadID string            `json:"upload_id"`
	Stage    enums.UploadStage `json:"stage"`
}

type uploadStatus struct {
	UploadID string            `json:"upload_id"`
	Progress pipeline.Progress `json:"progress"`
	Result   *pipeline.Result  `json:"result,omitempty"`
}

// UploadCreate ingests a multipart video submission, stages the payload, and
// starts an upload pipeline attempt in the background.
func UploadCreate(registry *pipeline.Registry, media config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, bearer, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		maxMem := int64(media.MaxMultipartMemMB) << 20
		if err := r.ParseMultipartForm(maxMem); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart request"))
			return
		}

		form := uploadForm{
			Title:       strings.TrimSpace(r.FormValue("title")),
			Description: strings.TrimSpace(r.FormValue("description")),
			Visibility:  strings.TrimSpace(r.FormValue("visibility")),
			Source:      strings.TrimSpace(r.FormValue("source")),
			ParentID:    strings.TrimSpace(r.FormValue("parent_id")),
		}
		if err := validators.ValidateStruct(form); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		file, header, err := r.FormFile(videoFormField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "video file is required"))
			return
		}
		defer func() { _ = file.Close() }()

		staged, err := acquire.Stage(media.TmpDir, header.Filename, file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "staging upload"))
			return
		}

		capture := acquire.Capture{
			URI:            staged,
			DurationMillis: formInt64(r, "duration_millis"),
			Width:          formInt64(r, "width"),
			Height:         formInt64(r, "height"),
			MimeType:       header.Header.Get("Content-Type"),
			Staged:         true,
		}

		p := registry.Create(owner, acquire.FileAcquirer{Capture: capture})

		sub := pipeline.Submission{
			OwnerID:     owner,
			Title:       form.Title,
			BearerToken: bearer,
		}
		if form.Description != "" {
			desc := form.Description
			sub.Description = &desc
		}
		if form.Visibility != "" {
			sub.Visibility = enums.AssetVisibility(form.Visibility)
		}
		if form.ParentID != "" {
			if parentID, err := uuid.Parse(form.ParentID); err == nil {
				sub.ParentID = &parentID
			}
		}

		runCtx := context.Background()
		if logg != nil {
			runCtx = logg.WithFields(runCtx, map[string]any{
				"upload_id": p.ID().String(),
				"owner_id":  owner.String(),
			})
		}

		source := enums.AcquireSourceGallery
		if form.Source == string(enums.AcquireSourceCamera) {
			source = enums.AcquireSourceCamera
		}
		go func() {
			if source == enums.AcquireSourceCamera {
				_, _ = p.RecordVideo(runCtx, sub)
				return
			}
			_, _ = p.RunCapture(runCtx, capture, sub)
		}()

		responses.WriteSuccessStatus(w, http.StatusAccepted, uploadAccepted{
			UploadID: p.ID().String(),
			Stage:    p.Progress().Stage,
		})
	}
}

// UploadProgress returns the current progress snapshot for an upload.
func UploadProgress(registry *pipeline.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := ownedPipeline(registry, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, uploadStatus{
			UploadID: p.ID().String(),
			Progress: p.Progress(),
		})
	}
}

// UploadResult returns the progress plus, once terminal, the attempt result.
func UploadResult(registry *pipeline.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := ownedPipeline(registry, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := uploadStatus{
			UploadID: p.ID().String(),
			Progress: p.Progress(),
		}
		if result, ok := p.Result(); ok {
			status.Result = &result
		}
		responses.WriteSuccess(w, status)
	}
}

// UploadReset returns the pipeline to idle.
func UploadReset(registry *pipeline.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := ownedPipeline(registry, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		p.Reset()
		responses.WriteSuccess(w, uploadStatus{
			UploadID: p.ID().String(),
			Progress: p.Progress(),
		})
	}
}

func ownedPipeline(registry *pipeline.Registry, r *http.Request) (*pipeline.Pipeline, error) {
	owner, _, err := requireIdentity(r)
	if err != nil {
		return nil, err
	}
	uploadID, err := uuid.Parse(chi.URLParam(r, "uploadId"))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid upload id")
	}
	return registry.Get(uploadID, owner)
}

func requireIdentity(r *http.Request) (uuid.UUID, string, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	owner, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return owner, middleware.BearerFromContext(r.Context()), nil
}

func formInt64(r *http.Request, field string) int64 {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}
