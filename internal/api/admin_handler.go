package api

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"athlos/cert-portal/internal/domain"
	"athlos/cert-portal/internal/service"
	"athlos/cert-portal/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler holds the admin-surface dependencies: seeding, debug
// listing and presigned artifact uploads.
type AdminHandler struct {
	certService service.CertificateService
	fileStorage storage.ObjectStorage
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(certService service.CertificateService, fileStorage storage.ObjectStorage) *AdminHandler {
	return &AdminHandler{
		certService: certService,
		fileStorage: fileStorage,
	}
}

// --- DTOs ---

// SeedCertificatesRequest carries a batch of rows to insert.
type SeedCertificatesRequest struct {
	Batch        string            `json:"batch"`
	Certificates []service.SeedRow `json:"certificates" binding:"required"`
}

// UploadURLRequest asks for a presigned PUT URL for one artifact file.
type UploadURLRequest struct {
	CertificateID string `json:"certificateId" binding:"required"`
	ContentType   string `json:"contentType"`
}

// AttachArtifactRequest links an uploaded object to a certificate
// record, completing the presigned-upload flow.
type AttachArtifactRequest struct {
	ObjectKey string `json:"objectKey" binding:"required"`
	FileName  string `json:"fileName"`
	Size      int64  `json:"size"`
	Format    string `json:"format"`
}

// DebugCertificate is the debug-listing row shape.
type DebugCertificate struct {
	CertificateResponse
	HasDownloadURL bool `json:"hasDownloadUrl"`
}

// --- Handler Methods ---

// SeedCertificates handles POST /admin/certificates, inserting a
// validated batch of records.
func (h *AdminHandler) SeedCertificates(c *gin.Context) {
	var req SeedCertificatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Certificates array is required")
		return
	}

	batch := req.Batch
	if batch == "" {
		batch = "seed-" + time.Now().UTC().Format("20060102-150405")
	}

	inserted, err := h.certService.SeedCertificates(c.Request.Context(), batch, req.Certificates)
	if err != nil {
		if errors.Is(err, service.ErrValidationFailed) {
			abortWithError(c, http.StatusBadRequest, "Each certificate must have search_id, event_name, and organizer_name")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to add test certificates")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":        len(inserted),
		"batch":        batch,
		"message":      fmt.Sprintf("Added %d test certificates successfully", len(inserted)),
		"certificates": MapCertificatesToResponse(inserted),
	})
}

// PurgeSeedBatch handles DELETE /admin/certificates/:batch.
func (h *AdminHandler) PurgeSeedBatch(c *gin.Context) {
	deleted, err := h.certService.PurgeSeedBatch(c.Request.Context(), c.Param("batch"))
	if err != nil {
		if errors.Is(err, service.ErrValidationFailed) {
			abortWithError(c, http.StatusBadRequest, "Seed batch label is required")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to delete test certificates")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// ListCertificates handles GET /admin/certificates, the debug listing of
// every record in the store with artifact flags.
func (h *AdminHandler) ListCertificates(c *gin.Context) {
	certs, err := h.certService.ListAll(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to fetch certificates from database")
		return
	}

	rows := make([]DebugCertificate, len(certs))
	for i := range certs {
		rows[i] = DebugCertificate{
			CertificateResponse: MapCertificateToResponse(&certs[i]),
			HasDownloadURL:      certs[i].HasArtifact(),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"certificates": rows,
		"total":        len(rows),
		"message":      fmt.Sprintf("Found %d certificates in database", len(rows)),
	})
}

// CreateUploadURL handles POST /admin/uploads, returning a presigned PUT
// URL under which the caller uploads one certificate PDF.
func (h *AdminHandler) CreateUploadURL(c *gin.Context) {
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Certificate ID is required")
		return
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}

	objectKey := fmt.Sprintf("certificates/%s-%s.pdf", service.SanitizeFilePart(req.CertificateID), uuid.NewString())
	url, err := h.fileStorage.GeneratePresignedUploadURL(c.Request.Context(), objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to generate upload URL")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uploadUrl":   url,
		"objectKey":   objectKey,
		"contentType": contentType,
	})
}

// Download links minted at attach time need to outlive the upload URL.
const artifactURLExpiry = 7 * 24 * time.Hour

// AttachArtifact handles POST /admin/certificates/:id/artifact, linking a
// previously uploaded object to the record and minting its download URL.
func (h *AdminHandler) AttachArtifact(c *gin.Context) {
	var req AttachArtifactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Object key is required")
		return
	}

	url, err := h.fileStorage.GeneratePresignedDownloadURL(c.Request.Context(), req.ObjectKey, artifactURLExpiry)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to generate download URL")
		return
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = path.Base(req.ObjectKey)
	}
	format := req.Format
	if format == "" {
		format = strings.TrimPrefix(path.Ext(fileName), ".")
	}

	ref := &domain.ArtifactRef{
		URL:         url,
		StoragePath: req.ObjectKey,
		FileName:    fileName,
		Size:        req.Size,
		Format:      format,
	}
	if err := h.certService.AttachArtifact(c.Request.Context(), c.Param("id"), ref); err != nil {
		if errors.Is(err, service.ErrCertificateNotFound) {
			abortWithError(c, http.StatusNotFound, "Certificate not found")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to attach certificate file")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Certificate file attached",
		"downloadUrl": url,
		"objectKey":   req.ObjectKey,
	})
}
