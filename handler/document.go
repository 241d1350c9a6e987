package handler

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marketingkamdi24/Rowbooster-UI-sub001/middleware"
	"github.com/marketingkamdi24/Rowbooster-UI-sub001/model"
	"github.com/marketingkamdi24/Rowbooster-UI-sub001/pkg/logger"
	"github.com/marketingkamdi24/Rowbooster-UI-sub001/service"
)

// DocumentHandler manages the tenant's document library. Uploaded files
// live in object storage; the library store indexes them for matching.
type DocumentHandler struct {
	storage *service.StorageService
	library *service.LibraryStore
}

func NewDocumentHandler(storage *service.StorageService) *DocumentHandler {
	return &DocumentHandler{
		storage: storage,
		library: service.GetLibraryStore(),
	}
}

// Upload stores one PDF in the tenant's library.
func (h *DocumentHandler) Upload(c *gin.Context) {
	tenant := middleware.GetTenant(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".pdf" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files are allowed"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = "application/pdf"
	}

	fileID := uuid.New().String()
	objectName := h.storage.ObjectName(tenant, fileID, header.Filename)

	if err := h.storage.UploadFile(c.Request.Context(), objectName, file, header.Size, contentType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file: " + err.Error()})
		return
	}

	fileURL, err := h.storage.GetPresignedURL(c.Request.Context(), objectName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate URL: " + err.Error()})
		return
	}

	libFile := &model.LibraryFile{
		ID:         fileID,
		Tenant:     tenant,
		Filename:   header.Filename,
		ObjectName: objectName,
		FileURL:    fileURL,
		Size:       header.Size,
		UploadedAt: time.Now(),
	}
	if err := h.library.Save(libFile); err != nil {
		// Library full: remove the orphaned object
		_ = h.storage.DeleteFile(c.Request.Context(), objectName)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Document library is full"})
		return
	}

	logger.Info(c.Request.Context(), "document uploaded",
		"file_id", fileID, "filename", header.Filename, "size", header.Size)

	c.JSON(http.StatusOK, libFile)
}

// List returns all library files for the current tenant
func (h *DocumentHandler) List(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	files := h.library.ListByTenant(tenant)

	result := make([]gin.H, len(files))
	for i, f := range files {
		result[i] = gin.H{
			"id":          f.ID,
			"filename":    f.Filename,
			"size":        f.Size,
			"uploaded_at": f.UploadedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	c.JSON(http.StatusOK, gin.H{"documents": result})
}

// Delete removes a library file and its stored object
func (h *DocumentHandler) Delete(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	file := h.library.Get(id)
	if file == nil || file.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	if err := h.storage.DeleteFile(c.Request.Context(), file.ObjectName); err != nil {
		logger.Warn(c.Request.Context(), "failed to delete stored object",
			"object", file.ObjectName, "error", err)
	}
	h.library.Delete(id)

	c.JSON(http.StatusOK, gin.H{"message": "Document deleted"})
}
