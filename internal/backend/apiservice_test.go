package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/voltnexis/gallery/internal/backend/assetstore"
	"github.com/voltnexis/gallery/internal/backend/database"
	"github.com/voltnexis/gallery/internal/backend/viewstate"
	"github.com/voltnexis/gallery/internal/common"
	"github.com/voltnexis/gallery/internal/core"
)

type apiFixture struct {
	server *echo.Echo
	db     database.DatabaseService
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	db, err := database.NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.CreateDatabase(context.Background()); err != nil {
		t.Fatalf("failed to create database: %v", err)
	}

	config := &core.ServiceConfig{
		Port:    8080,
		Upload:  core.UploadConfig{MaxBytes: 1 << 20, TargetFormat: "webp", Quality: 0.8},
		Gallery: core.GalleryConfig{PageSize: 8},
	}
	coreService := core.NewCoreServiceWith(config, db, assetstore.NewMemoryStore("api", ""), viewstate.NewMemoryStore(time.Minute, time.Hour))
	t.Cleanup(func() { _ = coreService.Close() })

	e := echo.New()
	e.Validator = &common.GenericEchoValidator{}
	NewAPIService(config, coreService).SetRoutes(e)
	return &apiFixture{server: e, db: db}
}

func (f *apiFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) get(path string) *httptest.ResponseRecorder {
	return f.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 24, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 24; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, fileName, contentType string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, fileName))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("failed to create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("failed to write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/images", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	if err := json.Unmarshal(rec.Body.Bytes(), &value); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
	return value
}

func TestAPIService_Probe(t *testing.T) {
	f := newAPIFixture(t)
	if rec := f.get("/probe"); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAPIService_UploadAndRead(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(uploadRequest(t, "harbor.jpg", "image/jpeg", testJPEG(t), map[string]string{
		"title": "Harbor", "description": "Morning boats", "username": "erin", "bio": "Sailor",
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[database.Image](t, rec)
	if created.ID == "" || created.FileType != "image/webp" || created.OriginalFormat != "jpeg" {
		t.Errorf("unexpected created image %+v", created)
	}

	list := decode[listImagesResponse](t, f.get("/api/images"))
	if list.Size != 8 || len(list.Images) != 1 || list.Images[0].OwnerName != "erin" {
		t.Errorf("unexpected listing %+v", list)
	}

	rec = f.get("/api/images/" + created.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	detail := decode[core.DetailView](t, rec)
	if detail.DisplayViews != 1 || detail.Owner == nil || detail.Owner.Bio != "Sailor" {
		t.Errorf("unexpected detail %+v", detail)
	}

	rec = f.get("/api/images/" + created.ID + "/download")
	if rec.Code != http.StatusFound || rec.Header().Get(echo.HeaderLocation) != created.OriginalURL {
		t.Errorf("expected redirect to %s, got %d %s", created.OriginalURL, rec.Code, rec.Header().Get(echo.HeaderLocation))
	}

	profile := decode[core.ProfileView](t, f.get("/api/users/"+created.UserID))
	if profile.User.Username != "erin" || profile.ImageCount != 1 {
		t.Errorf("unexpected profile %+v", profile)
	}

	images := decode[[]database.Image](t, f.get("/api/users/"+created.UserID+"/images"))
	if len(images) != 1 || images[0].ID != created.ID {
		t.Errorf("unexpected user images %+v", images)
	}
}

func TestAPIService_RestoredDownload(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	rec := f.do(uploadRequest(t, "pier.jpg", "image/jpeg", testJPEG(t), map[string]string{"title": "Pier", "username": "finn"}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	created := decode[database.Image](t, rec)

	legacy, err := f.db.CreateImage(ctx, &database.Image{
		Title:          "Old Pier",
		ImageURL:       created.ImageURL,
		FileName:       created.FileName,
		UserID:         created.UserID,
		OriginalFormat: "png",
	})
	if err != nil {
		t.Fatalf("CreateImage failed: %v", err)
	}

	rec = f.get("/api/images/" + legacy.ID + "/download")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != "image/png" {
		t.Errorf("expected image/png, got %s", got)
	}
	if got := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(got, `"Old-Pier.png"`) {
		t.Errorf("unexpected content disposition %s", got)
	}
}

func TestAPIService_Errors(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name       string
		request    func() *http.Request
		wantStatus int
		wantError  string
	}{
		{
			name: "missing title",
			request: func() *http.Request {
				return uploadRequest(t, "a.jpg", "image/jpeg", testJPEG(t), map[string]string{"username": "gus"})
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid title: is required",
		},
		{
			name: "not an image",
			request: func() *http.Request {
				return uploadRequest(t, "a.pdf", "application/pdf", []byte("%PDF"), map[string]string{"title": "x", "username": "gus"})
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid file: must be an image",
		},
		{
			name: "undecodable image",
			request: func() *http.Request {
				return uploadRequest(t, "a.png", "image/png", []byte("not a png"), map[string]string{"title": "x", "username": "gus"})
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unknown image",
			request:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/images/unknown", nil) },
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown download",
			request:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/images/unknown/download", nil) },
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown user",
			request:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/users/unknown", nil) },
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown user images",
			request:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/users/unknown/images", nil) },
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "negative page",
			request:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/images?page=-1", nil) },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "non numeric page",
			request:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/images?page=abc", nil) },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "page too large",
			request:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/images?page=9223372036854775807", nil) },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "page size too large",
			request:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/images?size=500", nil) },
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.request())
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			body := decode[errorResponse](t, rec)
			if body.Error == "" {
				t.Error("expected an error message")
			}
			if tt.wantError != "" && body.Error != tt.wantError {
				t.Errorf("expected error %q, got %q", tt.wantError, body.Error)
			}
		})
	}
}

func TestAPIService_BackendFailure(t *testing.T) {
	f := newAPIFixture(t)
	if err := f.db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	rec := f.get("/api/images")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if body := decode[errorResponse](t, rec); body.Error != "Bad Gateway" {
		t.Errorf("expected generic message, got %q", body.Error)
	}
}
