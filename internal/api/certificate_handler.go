package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"athlos/cert-portal/internal/domain"
	"athlos/cert-portal/internal/service"

	"github.com/gin-gonic/gin"
)

// CertificateHandler holds the public-surface service dependencies.
type CertificateHandler struct {
	certService     service.CertificateService
	downloadService service.DownloadService
	archiveService  service.ArchiveService
}

// NewCertificateHandler creates a new CertificateHandler.
func NewCertificateHandler(
	certService service.CertificateService,
	downloadService service.DownloadService,
	archiveService service.ArchiveService,
) *CertificateHandler {
	return &CertificateHandler{
		certService:     certService,
		downloadService: downloadService,
		archiveService:  archiveService,
	}
}

// --- DTOs for API (Data Transfer Objects) ---

// SearchCertificatesRequest defines the expected JSON for the POST
// search path.
type SearchCertificatesRequest struct {
	UniversityCode string `json:"universityCode" binding:"required"`
}

// BulkDownloadRequest defines the expected JSON for a bulk ZIP download.
type BulkDownloadRequest struct {
	UniversityCode string `json:"universityCode" binding:"required"`
	Name           string `json:"name"`
}

// ArtifactResponse is the DTO for a stored artifact reference.
type ArtifactResponse struct {
	URL      string `json:"url"`
	FileName string `json:"fileName,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Format   string `json:"format,omitempty"`
}

// CertificateResponse is the DTO for returning certificate details.
type CertificateResponse struct {
	ID             string            `json:"id"`
	UniversityCode string            `json:"universityCode"`
	CertificateID  string            `json:"certificateId"`
	Name           string            `json:"name,omitempty"`
	EventName      string            `json:"eventName"`
	OrganizerName  string            `json:"organizerName,omitempty"`
	Department     string            `json:"department,omitempty"`
	Year           string            `json:"year,omitempty"`
	Artifact       *ArtifactResponse `json:"artifact,omitempty"`
	Extra          map[string]any    `json:"extra,omitempty"`
}

// MapCertificateToResponse converts a domain.Certificate to its DTO.
func MapCertificateToResponse(cert *domain.Certificate) CertificateResponse {
	if cert == nil {
		return CertificateResponse{}
	}
	resp := CertificateResponse{
		ID:             cert.ID.Hex(),
		UniversityCode: cert.SearchKey,
		CertificateID:  cert.CertificateID,
		Name:           cert.Name,
		EventName:      cert.EventName,
		OrganizerName:  cert.OrganizerName,
		Department:     cert.Department,
		Year:           cert.Year,
		Extra:          cert.Extra,
	}
	if cert.HasArtifact() {
		resp.Artifact = &ArtifactResponse{
			URL:      cert.Artifact.URL,
			FileName: cert.Artifact.FileName,
			Size:     cert.Artifact.Size,
			Format:   cert.Artifact.Format,
		}
	}
	return resp
}

// MapCertificatesToResponse converts a slice of domain.Certificate to DTOs.
func MapCertificatesToResponse(certs []domain.Certificate) []CertificateResponse {
	responses := make([]CertificateResponse, len(certs))
	for i, cert := range certs {
		responses[i] = MapCertificateToResponse(&cert)
	}
	return responses
}

// --- Handler Methods ---

// SearchCertificates handles GET /certificates with either a
// universityCode or an id query parameter.
func (h *CertificateHandler) SearchCertificates(c *gin.Context) {
	universityCode := c.Query("universityCode")
	certificateID := c.Query("id")

	if universityCode == "" && certificateID == "" {
		abortWithError(c, http.StatusBadRequest, "University code or certificate ID is required")
		return
	}

	var (
		certs []domain.Certificate
		err   error
	)
	if universityCode != "" {
		certs, err = h.certService.FindBySearchKey(c.Request.Context(), universityCode)
	} else {
		certs, err = h.certService.FindByCertificateID(c.Request.Context(), certificateID)
	}
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	if len(certs) == 0 {
		abortWithError(c, http.StatusNotFound, "No certificates found for this university code.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"certificates": MapCertificatesToResponse(certs)})
}

// SearchCertificatesByCode handles POST /certificates with a JSON body.
func (h *CertificateHandler) SearchCertificatesByCode(c *gin.Context) {
	var req SearchCertificatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "University code is required")
		return
	}

	certs, err := h.certService.FindBySearchKey(c.Request.Context(), req.UniversityCode)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	if len(certs) == 0 {
		abortWithError(c, http.StatusNotFound, "No certificates found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"certificates": MapCertificatesToResponse(certs)})
}

// DownloadCertificate handles GET /certificates/:id/download, serving
// the stored artifact or the synthesized fallback page.
func (h *CertificateHandler) DownloadCertificate(c *gin.Context) {
	cert, err := h.certService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrCertificateNotFound) {
			abortWithError(c, http.StatusNotFound, "Certificate not found")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	data, filename, err := h.downloadService.Resolve(c.Request.Context(), cert)
	if err != nil {
		abortWithError(c, http.StatusBadGateway, "Failed to download certificate")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentTypeFor(filename), data)
}

// DownloadAllCertificates handles POST /certificates/download-all,
// bundling every fetchable artifact for a university code into one ZIP.
func (h *CertificateHandler) DownloadAllCertificates(c *gin.Context) {
	var req BulkDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "University code is required")
		return
	}

	certs, err := h.certService.FindBySearchKey(c.Request.Context(), req.UniversityCode)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	if len(certs) == 0 {
		abortWithError(c, http.StatusNotFound, "No certificates found")
		return
	}

	label := req.Name
	if label == "" {
		label = req.UniversityCode
	}

	data, outcomes, err := h.archiveService.BuildArchive(c.Request.Context(), certs, label)
	fetched, skipped, failed := service.CountOutcomes(outcomes)
	if err != nil {
		if errors.Is(err, service.ErrArchiveEmpty) {
			abortWithError(c, http.StatusUnprocessableEntity, "No certificates could be downloaded")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	c.Header("X-Archive-Fetched", fmt.Sprint(fetched))
	c.Header("X-Archive-Skipped", fmt.Sprint(skipped))
	c.Header("X-Archive-Failed", fmt.Sprint(failed))
	zipName := service.SanitizeFilePart(label) + "_All_Certificates.zip"
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", zipName))
	c.Data(http.StatusOK, "application/zip", data)
}

func contentTypeFor(filename string) string {
	switch {
	case strings.HasSuffix(filename, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(filename, ".png"):
		return "image/png"
	case strings.HasSuffix(filename, ".html"):
		return "text/html; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
