package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cliphive/cliphive-backend/api/middleware"
	"github.com/cliphive/cliphive-backend/internal/acquire"
	"github.com/cliphive/cliphive-backend/internal/mediameta"
	"github.com/cliphive/cliphive-backend/internal/pipeline"
	"github.com/cliphive/cliphive-backend/internal/policy"
	"github.com/cliphive/cliphive-backend/internal/records"
	"github.com/cliphive/cliphive-backend/internal/transfer"
	"github.com/cliphive/cliphive-backend/pkg/config"
	"github.com/cliphive/cliphive-backend/pkg/db/models"
	"github.com/cliphive/cliphive-backend/pkg/enums"
)

type fakeExtractor struct{}

func (fakeExtractor) FromCapture(ctx context.Context, capture acquire.Capture) (mediameta.VideoMetadata, error) {
	return mediameta.VideoMetadata{
		URI:             capture.URI,
		DurationSeconds: 30,
		Width:           720,
		Height:          1280,
		FileSizeBytes:   1024,
		MimeType:        "video/mp4",
	}, nil
}

type fakeThumbs struct{}

func (fakeThumbs) Generate(ctx context.Context, videoURI string) (string, error) {
	return "", fmt.Errorf("no thumbnailer in tests")
}

type fakeTransfer struct{}

func (fakeTransfer) Upload(ctx context.Context, in transfer.Input) (transfer.Output, error) {
	return transfer.Output{VideoURL: "https://cdn.example.com/videos/clip.mp4"}, nil
}

type fakeCommitter struct{}

func (fakeCommitter) Commit(ctx context.Context, in records.Input) (*models.Asset, error) {
	now := time.Now().UTC()
	return &models.Asset{
		ID:          uuid.New(),
		OwnerID:     in.OwnerID,
		Title:       in.Title,
		VideoURL:    in.VideoURL,
		Status:      enums.AssetStatusReady,
		Visibility:  in.Visibility,
		PublishedAt: &now,
	}, nil
}

func testRegistry() *pipeline.Registry {
	return pipeline.NewRegistry(func(acq acquire.Acquirer) *pipeline.Pipeline {
		return pipeline.New(pipeline.Deps{
			Acquirer:  acq,
			Extractor: fakeExtractor{},
			Thumbs:    fakeThumbs{},
			Transfer:  fakeTransfer{},
			Committer: fakeCommitter{},
			Policy: policy.Config{
				MinDurationSeconds: 3,
				MaxDurationSeconds: 60,
				MaxFileSizeBytes:   50_000_000,
			},
		})
	})
}

func uploadsRouter(t *testing.T, registry *pipeline.Registry) http.Handler {
	t.Helper()
	media := config.MediaConfig{TmpDir: t.TempDir(), MaxMultipartMemMB: 4}

	r := chi.NewRouter()
	r.Post("/uploads", UploadCreate(registry, media, nil))
	r.Get("/uploads/{uploadId}", UploadResult(registry, nil))
	r.Get("/uploads/{uploadId}/progress", UploadProgress(registry, nil))
	r.Post("/uploads/{uploadId}/reset", UploadReset(registry, nil))
	return r
}

func multipartUpload(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatal(err)
		}
	}
	part, err := writer.CreateFormFile(videoFormField, "clip.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte("fake-video-bytes")); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return body, writer.FormDataContentType()
}

func authedRequest(method, target string, body io.Reader, owner uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, body)
	ctx := middleware.WithUserID(req.Context(), owner.String())
	ctx = middleware.WithBearer(ctx, "test-token")
	return req.WithContext(ctx)
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding envelope: %v, body %s", err, resp.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
}

func TestUploadCreateAcceptsAndCompletes(t *testing.T) {
	registry := testRegistry()
	router := uploadsRouter(t, registry)
	owner := uuid.New()

	body, contentType := multipartUpload(t, map[string]string{
		"title":           "morning ride",
		"visibility":      "public",
		"duration_millis": "30000",
	})
	req := authedRequest(http.MethodPost, "/uploads", body, owner)
	req.Header.Set("Content-Type", contentType)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d: %s", resp.Code, resp.Body.String())
	}

	var accepted uploadAccepted
	decodeData(t, resp, &accepted)
	if accepted.UploadID == "" {
		t.Fatal("expected an upload id")
	}

	// the attempt runs in the background; poll until terminal
	deadline := time.Now().Add(2 * time.Second)
	var status uploadStatus
	for {
		pollReq := authedRequest(http.MethodGet, "/uploads/"+accepted.UploadID, nil, owner)
		pollResp := httptest.NewRecorder()
		router.ServeHTTP(pollResp, pollReq)
		if pollResp.Code != http.StatusOK {
			t.Fatalf("poll returned %d: %s", pollResp.Code, pollResp.Body.String())
		}
		decodeData(t, pollResp, &status)
		if status.Progress.Stage.Terminal() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("upload never reached a terminal stage: %+v", status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if status.Progress.Stage != enums.UploadStageComplete {
		t.Fatalf("expected complete, got %+v", status.Progress)
	}
	if status.Result == nil || !status.Result.Success {
		t.Fatalf("expected successful result, got %+v", status.Result)
	}
	if status.Result.Record.Status != enums.AssetStatusReady {
		t.Fatalf("expected ready record, got %s", status.Result.Record.Status)
	}
}

func TestUploadCreateRequiresVideoFile(t *testing.T) {
	registry := testRegistry()
	router := uploadsRouter(t, registry)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("title", "no file"); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	req := authedRequest(http.MethodPost, "/uploads", body, uuid.New())
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestUploadCreateRequiresTitle(t *testing.T) {
	registry := testRegistry()
	router := uploadsRouter(t, registry)

	body, contentType := multipartUpload(t, map[string]string{})
	req := authedRequest(http.MethodPost, "/uploads", body, uuid.New())
	req.Header.Set("Content-Type", contentType)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUploadProgressUnknownIDIsNotFound(t *testing.T) {
	registry := testRegistry()
	router := uploadsRouter(t, registry)

	req := authedRequest(http.MethodGet, "/uploads/"+uuid.NewString()+"/progress", nil, uuid.New())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestUploadProgressIsOwnerScoped(t *testing.T) {
	registry := testRegistry()
	router := uploadsRouter(t, registry)
	owner := uuid.New()

	body, contentType := multipartUpload(t, map[string]string{"title": "mine"})
	req := authedRequest(http.MethodPost, "/uploads", body, owner)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d", resp.Code)
	}

	var accepted uploadAccepted
	decodeData(t, resp, &accepted)

	foreign := authedRequest(http.MethodGet, "/uploads/"+accepted.UploadID+"/progress", nil, uuid.New())
	foreignResp := httptest.NewRecorder()
	router.ServeHTTP(foreignResp, foreign)
	if foreignResp.Code != http.StatusNotFound {
		t.Fatalf("foreign owner must see 404, got %d", foreignResp.Code)
	}
}

func TestUploadResetReturnsIdle(t *testing.T) {
	registry := testRegistry()
	router := uploadsRouter(t, registry)
	owner := uuid.New()

	body, contentType := multipartUpload(t, map[string]string{"title": "resettable"})
	req := authedRequest(http.MethodPost, "/uploads", body, owner)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var accepted uploadAccepted
	decodeData(t, resp, &accepted)

	resetReq := authedRequest(http.MethodPost, "/uploads/"+accepted.UploadID+"/reset", nil, owner)
	resetResp := httptest.NewRecorder()
	router.ServeHTTP(resetResp, resetReq)
	if resetResp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resetResp.Code)
	}

	var status uploadStatus
	decodeData(t, resetResp, &status)
	if status.Progress.Stage != enums.UploadStageIdle || status.Progress.Percent != 0 {
		t.Fatalf("expected idle after reset, got %+v", status.Progress)
	}
}

func TestUploadCreateRequiresIdentity(t *testing.T) {
	registry := testRegistry()
	router := uploadsRouter(t, registry)

	body, contentType := multipartUpload(t, map[string]string{"title": "anonymous"})
	req := httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", contentType)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
