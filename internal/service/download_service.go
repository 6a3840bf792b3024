package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"athlos/cert-portal/internal/domain"
)

// --- Error Definitions ---
var (
	ErrDownloadFailed = errors.New("failed to download certificate")
)

const defaultFetchTimeout = 30 * time.Second

// DownloadService resolves one certificate record to downloadable bytes:
// either the stored artifact, fetched from object storage, or a
// synthesized HTML certificate when no artifact exists.
type DownloadService interface {
	Resolve(ctx context.Context, cert *domain.Certificate) (data []byte, filename string, err error)
}

type downloadService struct {
	client *http.Client
}

// NewDownloadService creates the resolver. fetchTimeout bounds each
// artifact fetch; zero uses the default.
func NewDownloadService(fetchTimeout time.Duration) DownloadService {
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	return &downloadService{
		client: &http.Client{Timeout: fetchTimeout},
	}
}

// Resolve fetches the stored artifact when the record has one, falling
// back to a synthesized certificate page otherwise. Synthesis never
// fails; fetch failures surface as ErrDownloadFailed.
func (s *downloadService) Resolve(ctx context.Context, cert *domain.Certificate) ([]byte, string, error) {
	if !cert.HasArtifact() {
		data := synthesizeCertificate(cert)
		return data, fallbackFilename(cert, "html"), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cert.Artifact.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("%w: artifact fetch returned status %d", ErrDownloadFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	filename := cert.Artifact.FileName
	if filename == "" {
		ext := cert.Artifact.Format
		if ext == "" {
			ext = "png"
		}
		filename = fallbackFilename(cert, ext)
	}

	return data, filename, nil
}

// fallbackFilename builds a name_event style filename when the store
// carries none.
func fallbackFilename(cert *domain.Certificate, ext string) string {
	stem := cert.Name
	if stem == "" {
		stem = cert.CertificateID
	}
	return SanitizeFilePart(stem) + "_" + SanitizeFilePart(cert.EventName) + "." + ext
}

var nonFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// SanitizeFilePart replaces whitespace with underscores and strips every
// character outside [A-Za-z0-9_].
func SanitizeFilePart(s string) string {
	s = strings.Join(strings.Fields(s), "_")
	return nonFilenameChars.ReplaceAllString(s, "")
}

// certificateTemplate is the fallback document shown when no stored
// artifact exists. Deliberately lower-fidelity than a stored artifact;
// it exists so the user never sees a completely broken download.
var certificateTemplate = template.Must(template.New("certificate").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Certificate - {{.Name}}</title>
</head>
<body>
  <div class="certificate">
    <div class="title">Certificate of Participation</div>
    <div class="subtitle">This is to certify that</div>
    <div class="name">{{.Name}}</div>
    <div class="event">has successfully participated in</div>
    <div class="event">{{.EventName}}</div>
    <div class="details">
      <div><strong>Certificate ID:</strong> {{.CertificateID}}</div>
      <div><strong>University Code:</strong> {{.SearchKey}}</div>
      {{if .OrganizerName}}<div><strong>Organizer:</strong> {{.OrganizerName}}</div>{{end}}
      {{if .Department}}<div><strong>Department:</strong> {{.Department}}</div>{{end}}
    </div>
    <div class="footer">
      <p>Generated on {{.GeneratedOn}}</p>
      <p>ATHLOS 2025 - College of Engineering and Management Punnapra</p>
    </div>
  </div>
</body>
</html>
`))

type certificatePage struct {
	Name          string
	EventName     string
	CertificateID string
	SearchKey     string
	OrganizerName string
	Department    string
	GeneratedOn   string
}

// synthesizeCertificate renders the fallback page. Pure local
// templating; it cannot fail for any record.
func synthesizeCertificate(cert *domain.Certificate) []byte {
	name := cert.Name
	if name == "" {
		name = cert.SearchKey
	}
	page := certificatePage{
		Name:          name,
		EventName:     cert.EventName,
		CertificateID: cert.CertificateID,
		SearchKey:     cert.SearchKey,
		OrganizerName: cert.OrganizerName,
		Department:    cert.Department,
		GeneratedOn:   time.Now().Format("January 2, 2006"),
	}

	var buf bytes.Buffer
	// The template only references fields of certificatePage; Execute
	// cannot fail here.
	_ = certificateTemplate.Execute(&buf, page)
	return buf.Bytes()
}
