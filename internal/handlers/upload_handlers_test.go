package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SAADX25/SafeChat/internal/auth"
	"github.com/SAADX25/SafeChat/internal/config"
	"github.com/SAADX25/SafeChat/internal/models"
	"github.com/SAADX25/SafeChat/internal/store"
)

func newTestAuth(t *testing.T) (*auth.Service, *store.JSONFileStore) {
	t.Helper()
	s, err := store.NewJSONFileStore(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewJSONFileStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:    []byte("test-secret"),
			ExpiresIn: time.Hour,
		},
	}
	return auth.NewService(s, cfg), s
}

func registerTestUser(t *testing.T, svc *auth.Service) *models.LoginResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), &models.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "supersecret",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return resp
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(content)); err != nil {
		t.Fatalf("copy content: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestUploadAndDownload(t *testing.T) {
	authSvc, db := newTestAuth(t)
	session := registerTestUser(t, authSvc)
	uploadDir := t.TempDir()
	handler := NewUploadHandlers(authSvc, db, uploadDir, 10<<20)

	content := []byte("voice clip bytes")
	body, contentType := multipartBody(t, "memo.ogg", content)

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rec := httptest.NewRecorder()
	handler.HandleUpload(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}

	var meta models.FileMeta
	if err := json.Unmarshal(rec.Body.Bytes(), &meta); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if meta.ID == "" || meta.Filename != "memo.ogg" || meta.SizeBytes != int64(len(content)) {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if meta.UploaderID != session.User.ID {
		t.Fatalf("uploader = %q, want %q", meta.UploaderID, session.User.ID)
	}

	stored, err := os.ReadFile(filepath.Join(uploadDir, meta.StoragePath))
	if err != nil {
		t.Fatalf("stored file: %v", err)
	}
	if !bytes.Equal(stored, content) {
		t.Fatal("stored bytes differ from upload")
	}

	dlReq := httptest.NewRequest(http.MethodGet, "/files/"+meta.ID+"?token="+session.Token, nil)
	dlRec := httptest.NewRecorder()
	handler.HandleDownload(dlRec, dlReq)

	if dlRec.Code != http.StatusOK {
		t.Fatalf("download status = %d", dlRec.Code)
	}
	if !bytes.Equal(dlRec.Body.Bytes(), content) {
		t.Fatal("downloaded bytes differ from upload")
	}
}

func TestUploadRequiresAuth(t *testing.T) {
	authSvc, db := newTestAuth(t)
	handler := NewUploadHandlers(authSvc, db, t.TempDir(), 10<<20)

	body, contentType := multipartBody(t, "file.txt", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.HandleUpload(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	authSvc, db := newTestAuth(t)
	session := registerTestUser(t, authSvc)
	handler := NewUploadHandlers(authSvc, db, t.TempDir(), 64)

	body, contentType := multipartBody(t, "big.bin", bytes.Repeat([]byte("a"), 4096))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rec := httptest.NewRecorder()
	handler.HandleUpload(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
}

func TestDownloadUnknownFile(t *testing.T) {
	authSvc, db := newTestAuth(t)
	session := registerTestUser(t, authSvc)
	handler := NewUploadHandlers(authSvc, db, t.TempDir(), 10<<20)

	req := httptest.NewRequest(http.MethodGet, "/files/nope?token="+session.Token, nil)
	rec := httptest.NewRecorder()
	handler.HandleDownload(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
