package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"athlos/cert-portal/internal/domain"

	"golang.org/x/sync/errgroup"
)

// --- Error Definitions ---
var (
	ErrArchiveEmpty = errors.New("no certificates could be downloaded")
)

const defaultArchiveConcurrency = 8

// Outcome states for a single record inside a bulk archive build.
const (
	OutcomeFetched = "fetched"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// ArchiveOutcome records what happened to one certificate during a bulk
// build: fetched (with the filename used inside the archive), skipped
// (no stored artifact) or failed (fetch error).
type ArchiveOutcome struct {
	CertificateID string `json:"certificateId"`
	EventName     string `json:"eventName"`
	Status        string `json:"status"`
	Filename      string `json:"filename,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// ArchiveService bundles the stored artifacts of a record set into one
// ZIP download.
type ArchiveService interface {
	BuildArchive(ctx context.Context, certs []domain.Certificate, labelName string) ([]byte, []ArchiveOutcome, error)
}

type archiveService struct {
	client      *http.Client
	concurrency int
}

// NewArchiveService creates the builder. fetchTimeout bounds each
// per-record fetch; concurrency caps the fan-out width.
func NewArchiveService(fetchTimeout time.Duration, concurrency int) ArchiveService {
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	if concurrency <= 0 {
		concurrency = defaultArchiveConcurrency
	}
	return &archiveService{
		client:      &http.Client{Timeout: fetchTimeout},
		concurrency: concurrency,
	}
}

type fetchResult struct {
	data    []byte
	outcome ArchiveOutcome
}

// BuildArchive concurrently fetches every record's stored artifact and
// assembles the successes into a ZIP under one top-level folder named
// after the sanitized label. Records without an artifact are marked
// skipped; a failed fetch marks only that record failed. The archive is
// returned once every attempt has settled. Zero fetched entries is
// ErrArchiveEmpty; one or more is overall success.
func (s *archiveService) BuildArchive(ctx context.Context, certs []domain.Certificate, labelName string) ([]byte, []ArchiveOutcome, error) {
	results := make([]fetchResult, len(certs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range certs {
		i := i
		g.Go(func() error {
			// Fetch errors land in the outcome, never in the group,
			// so one bad record cannot abort the batch.
			results[i] = s.fetchOne(gctx, &certs[i])
			return nil
		})
	}
	_ = g.Wait()

	outcomes := make([]ArchiveOutcome, len(results))
	fetched := 0
	for i, res := range results {
		outcomes[i] = res.outcome
		if res.outcome.Status == OutcomeFetched {
			fetched++
		}
	}

	if fetched == 0 {
		return nil, outcomes, ErrArchiveEmpty
	}

	dedupeFilenames(results, outcomes)

	data, err := assembleZip(results, outcomes, labelName)
	if err != nil {
		return nil, outcomes, err
	}
	return data, outcomes, nil
}

func (s *archiveService) fetchOne(ctx context.Context, cert *domain.Certificate) fetchResult {
	outcome := ArchiveOutcome{
		CertificateID: cert.CertificateID,
		EventName:     cert.EventName,
	}

	if !cert.HasArtifact() {
		outcome.Status = OutcomeSkipped
		outcome.Reason = "no stored artifact"
		return fetchResult{outcome: outcome}
	}

	data, err := s.fetch(ctx, cert.Artifact.URL)
	if err != nil {
		outcome.Status = OutcomeFailed
		outcome.Reason = err.Error()
		return fetchResult{outcome: outcome}
	}

	outcome.Status = OutcomeFetched
	outcome.Filename = archiveFilename(cert)
	return fetchResult{data: data, outcome: outcome}
}

func (s *archiveService) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("artifact fetch returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// archiveFilename builds the certificateId_eventSlug stem used inside
// the archive.
func archiveFilename(cert *domain.Certificate) string {
	ext := "pdf"
	if cert.Artifact != nil && cert.Artifact.Format != "" {
		ext = cert.Artifact.Format
	}
	return cert.CertificateID + "_" + SanitizeFilePart(cert.EventName) + "." + ext
}

// dedupeFilenames appends a numeric suffix to colliding filenames so two
// records with the same certificate id and event name cannot silently
// overwrite each other inside the archive.
func dedupeFilenames(results []fetchResult, outcomes []ArchiveOutcome) {
	seen := make(map[string]int)
	for i := range outcomes {
		if outcomes[i].Status != OutcomeFetched {
			continue
		}
		name := outcomes[i].Filename
		seen[name]++
		if n := seen[name]; n > 1 {
			stem, ext := splitExt(name)
			deduped := fmt.Sprintf("%s_%d%s", stem, n, ext)
			outcomes[i].Filename = deduped
			results[i].outcome.Filename = deduped
		}
	}
}

func splitExt(name string) (stem, ext string) {
	if dot := strings.LastIndex(name, "."); dot > 0 {
		return name[:dot], name[dot:]
	}
	return name, ""
}

// assembleZip writes all fetched entries under labelName (whitespace
// replaced) and adds a manifest listing every outcome.
func assembleZip(results []fetchResult, outcomes []ArchiveOutcome, labelName string) ([]byte, error) {
	folder := strings.Join(strings.Fields(labelName), "_")
	if folder == "" {
		folder = "certificates"
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for i := range results {
		if results[i].outcome.Status != OutcomeFetched {
			continue
		}
		w, err := zw.Create(folder + "/" + results[i].outcome.Filename)
		if err != nil {
			zw.Close()
			return nil, err
		}
		if _, err := w.Write(results[i].data); err != nil {
			zw.Close()
			return nil, err
		}
	}

	mw, err := zw.Create(folder + "/manifest.txt")
	if err != nil {
		zw.Close()
		return nil, err
	}
	if _, err := mw.Write([]byte(renderManifest(outcomes))); err != nil {
		zw.Close()
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CountOutcomes returns how many records fetched, skipped and failed.
func CountOutcomes(outcomes []ArchiveOutcome) (fetched, skipped, failed int) {
	for _, o := range outcomes {
		switch o.Status {
		case OutcomeFetched:
			fetched++
		case OutcomeSkipped:
			skipped++
		case OutcomeFailed:
			failed++
		}
	}
	return
}

func renderManifest(outcomes []ArchiveOutcome) string {
	sorted := make([]ArchiveOutcome, len(outcomes))
	copy(sorted, outcomes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CertificateID < sorted[j].CertificateID
	})

	var b strings.Builder
	fetched, skipped, failed := CountOutcomes(outcomes)
	fmt.Fprintf(&b, "Bulk download manifest: %d archived, %d skipped, %d failed\n\n", fetched, skipped, failed)
	for _, o := range sorted {
		switch o.Status {
		case OutcomeFetched:
			fmt.Fprintf(&b, "[archived] %s (%s) -> %s\n", o.CertificateID, o.EventName, o.Filename)
		default:
			fmt.Fprintf(&b, "[%s] %s (%s): %s\n", o.Status, o.CertificateID, o.EventName, o.Reason)
		}
	}
	return b.String()
}
