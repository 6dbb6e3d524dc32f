package handlers

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resale-admin/internal/history"
	"resale-admin/internal/imports"
	"resale-admin/internal/reconcile"
)

// ImportHandler handles CSV uploads and the import history
type ImportHandler struct {
	imports      *imports.Service
	history      *history.Service
	maxUpload    int64
	historyLimit int
}

// NewImportHandler creates a new import handler
func NewImportHandler(svc *imports.Service, h *history.Service, maxUpload int64, historyLimit int) *ImportHandler {
	return &ImportHandler{
		imports:      svc,
		history:      h,
		maxUpload:    maxUpload,
		historyLimit: historyLimit,
	}
}

// openFiles reads the multipart "files" field. The returned closer must be
// called once the readers are consumed.
func (h *ImportHandler) openFiles(c *gin.Context) ([]imports.File, func(), error) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, fmt.Errorf("%w: upload exceeds %d bytes", imports.ErrInvalidUpload, tooLarge.Limit)
		}
		return nil, nil, fmt.Errorf("%w: %v", imports.ErrInvalidUpload, err)
	}

	headers := form.File["files"]
	opened := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	files := make([]imports.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("%w: failed to open %s: %v", imports.ErrInvalidUpload, fh.Filename, err)
		}
		opened = append(opened, f)
		files = append(files, imports.File{Name: fh.Filename, Reader: f})
	}
	return files, closeAll, nil
}

// Import reconciles the uploaded CSV files into the store
func (h *ImportHandler) Import(c *gin.Context) {
	files, closeAll, err := h.openFiles(c)
	if err != nil {
		respondError(c, err)
		return
	}
	defer closeAll()

	mode, err := reconcile.ParseMode(c.PostForm("mode"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	notify := false
	if s := c.PostForm("notify"); s != "" {
		notify, err = strconv.ParseBool(s)
		if err != nil {
			badRequest(c, "invalid notify flag")
			return
		}
	}

	log.Printf("Admin: import requested (%d files, mode: %s, notify: %v)", len(files), mode, notify)

	report, err := h.imports.Import(c.Request.Context(), imports.Request{
		Files:  files,
		Mode:   mode,
		Notify: notify,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Preview parses the upload and lists unregistered properties without writing
func (h *ImportHandler) Preview(c *gin.Context) {
	files, closeAll, err := h.openFiles(c)
	if err != nil {
		respondError(c, err)
		return
	}
	defer closeAll()

	preview, err := h.imports.Preview(c.Request.Context(), files)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// GetHistory returns recent import and reset runs
func (h *ImportHandler) GetHistory(c *gin.Context) {
	limit := h.historyLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 {
			badRequest(c, "invalid limit")
			return
		}
		limit = n
	}

	logs, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"count": len(logs),
	})
}
