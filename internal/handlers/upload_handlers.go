package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/SAADX25/SafeChat/internal/auth"
	"github.com/SAADX25/SafeChat/internal/models"
	"github.com/SAADX25/SafeChat/internal/store"
	"github.com/SAADX25/SafeChat/pkg/logger"

	"github.com/google/uuid"
)

// UploadHandlers stores uploaded files and voice clips on disk and their
// metadata in the store. Messages reference uploads by file id.
type UploadHandlers struct {
	authService *auth.Service
	files       store.FileStore
	uploadDir   string
	maxFileSize int64
}

func NewUploadHandlers(authService *auth.Service, files store.FileStore, uploadDir string, maxFileSize int64) *UploadHandlers {
	return &UploadHandlers{
		authService: authService,
		files:       files,
		uploadDir:   uploadDir,
		maxFileSize: maxFileSize,
	}
}

func (h *UploadHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// Parse multipart form with size limit
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)
	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "no file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		logger.Error("Error creating upload dir: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	fileID := uuid.NewString()
	storedName := fileID + sanitizeExt(header.Filename)
	storagePath := filepath.Join(h.uploadDir, storedName)

	dst, err := os.Create(storagePath)
	if err != nil {
		logger.Error("Error creating upload file: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	defer dst.Close()

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(dst, hasher), file)
	if err != nil {
		os.Remove(storagePath)
		logger.Error("Error writing upload: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	meta := &models.FileMeta{
		ID:          fileID,
		Filename:    filepath.Base(header.Filename),
		SizeBytes:   size,
		ContentType: header.Header.Get("Content-Type"),
		SHA256:      hex.EncodeToString(hasher.Sum(nil)),
		UploaderID:  user.ID,
		StoragePath: storedName,
	}
	if err := h.files.SaveFile(r.Context(), meta); err != nil {
		os.Remove(storagePath)
		logger.Error("Error saving file metadata: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(meta)
}

func (h *UploadHandlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	if _, err := requestUser(r, h.authService); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	fileID, err := fileIDFromPath(r)
	if err != nil {
		http.Error(w, "invalid file ID", http.StatusBadRequest)
		return
	}

	meta, err := h.files.GetFileByID(r.Context(), fileID)
	if err != nil {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}

	if meta.ContentType != "" {
		w.Header().Set("Content-Type", meta.ContentType)
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+meta.Filename+`"`)
	http.ServeFile(w, r, filepath.Join(h.uploadDir, meta.StoragePath))
}

func fileIDFromPath(r *http.Request) (string, error) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 3 || parts[2] == "" {
		return "", errors.New("invalid path")
	}
	return parts[2], nil
}

// sanitizeExt keeps a short, safe extension for the stored filename; the
// original name only survives in the metadata.
func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\`) {
		return ""
	}
	return ext
}
