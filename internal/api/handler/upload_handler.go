package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/limaJavier/smartclassroom/internal/api/middleware"
	"github.com/limaJavier/smartclassroom/internal/config"
)

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// UploadHandler stores multipart files on disk and answers with their public URLs
type UploadHandler struct {
	cfg    config.UploadConfig
	logger *zap.Logger
	now    func() time.Time
}

func NewUploadHandler(cfg config.UploadConfig, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{cfg: cfg, logger: logger, now: time.Now}
}

type UploadedFile struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Url  string `json:"url"`
}

// Upload POST /upload
func (h *UploadHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Upload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
		return
	}
	if len(headers) > h.cfg.MaxFiles {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Too many files (max %d)", h.cfg.MaxFiles)})
		return
	}
	for _, header := range headers {
		if h.cfg.MaxFileSize > 0 && header.Size > h.cfg.MaxFileSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("File too large: %s", header.Filename)})
			return
		}
	}

	if err := os.MkdirAll(h.cfg.Dir, 0o755); err != nil {
		h.logger.Error("cannot create upload directory", zap.String("dir", h.cfg.Dir), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}

	baseUrl := requestScheme(c) + "://" + c.Request.Host + "/uploads/"
	files := make([]UploadedFile, 0, len(headers))
	for _, header := range headers {
		stored := StoredName(header.Filename, h.now())
		destination := filepath.Join(h.cfg.Dir, stored)
		if err := c.SaveUploadedFile(header, destination); err != nil {
			h.logger.Error("cannot store upload", zap.String("file", header.Filename), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
			return
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = detectType(destination)
		}

		files = append(files, UploadedFile{
			Name: header.Filename,
			Type: contentType,
			Url:  baseUrl + url.PathEscape(stored),
		})
	}

	h.logger.Info("files uploaded", zap.Int("count", len(files)))
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// StoredName is the on-disk name of an upload: a millisecond timestamp and the sanitized original name
func StoredName(original string, at time.Time) string {
	return strconv.FormatInt(at.UnixMilli(), 10) + "-" + unsafeFileChars.ReplaceAllString(filepath.Base(original), "_")
}

func detectType(path string) string {
	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream"
	}
	return detected.String()
}

func requestScheme(c *gin.Context) string {
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if c.Request.TLS != nil {
		return "https"
	}
	return "http"
}

var errNoUploadDir = errors.New("upload directory is not configured")

// EnsureUploadDir creates the upload directory at startup
func EnsureUploadDir(cfg config.UploadConfig) error {
	if cfg.Dir == "" {
		return errNoUploadDir
	}
	return os.MkdirAll(cfg.Dir, 0o755)
}
