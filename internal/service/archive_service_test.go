package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"athlos/cert-portal/internal/domain"
)

// artifactServer serves fake artifact bytes; paths under /missing/
// return 500 to simulate a mid-flight fetch failure.
func artifactServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/missing/") {
			http.Error(w, "gone", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("pdf-bytes:" + r.URL.Path))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func certWithArtifact(certID, event, url string) domain.Certificate {
	return domain.Certificate{
		CertificateID: certID,
		EventName:     event,
		Artifact:      &domain.ArtifactRef{URL: url, Format: "pdf"},
	}
}

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	files := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening %s: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("reading %s: %v", f.Name, err)
		}
		files[f.Name] = string(content)
	}
	return files
}

func TestBuildArchive_PartialSuccess(t *testing.T) {
	srv := artifactServer(t)
	svc := NewArchiveService(5*time.Second, 4)

	certs := []domain.Certificate{
		certWithArtifact("ATHLOS25-068-Football", "Football", srv.URL+"/ok/football.pdf"),
		certWithArtifact("ATHLOS25-068-Cricket", "Cricket", srv.URL+"/missing/cricket.pdf"),
		{CertificateID: "ATHLOS25-068-Chess", EventName: "Chess"}, // no artifact
	}

	data, outcomes, err := svc.BuildArchive(context.Background(), certs, "Goutham Sankar")
	if err != nil {
		t.Fatalf("BuildArchive error: %v", err)
	}

	fetched, skipped, failed := CountOutcomes(outcomes)
	if fetched != 1 || skipped != 1 || failed != 1 {
		t.Fatalf("outcomes = %d/%d/%d fetched/skipped/failed, want 1/1/1", fetched, skipped, failed)
	}

	files := readZip(t, data)
	if _, ok := files["Goutham_Sankar/ATHLOS25-068-Football_Football.pdf"]; !ok {
		t.Errorf("fetched entry missing from archive, got files %v", keys(files))
	}
	for name := range files {
		if strings.Contains(name, "Cricket") {
			t.Errorf("failed entry %s must not be in the archive", name)
		}
	}
}

func TestBuildArchive_TotalFailure(t *testing.T) {
	srv := artifactServer(t)
	svc := NewArchiveService(5*time.Second, 4)

	certs := []domain.Certificate{
		certWithArtifact("C1", "Football", srv.URL+"/missing/a.pdf"),
		{CertificateID: "C2", EventName: "Chess"},
	}

	_, outcomes, err := svc.BuildArchive(context.Background(), certs, "Nobody")
	if !errors.Is(err, ErrArchiveEmpty) {
		t.Fatalf("err = %v, want ErrArchiveEmpty", err)
	}
	if len(outcomes) != 2 {
		t.Errorf("outcomes = %d, want 2 even on total failure", len(outcomes))
	}
}

func TestBuildArchive_FilenameCollision(t *testing.T) {
	srv := artifactServer(t)
	svc := NewArchiveService(5*time.Second, 4)

	certs := []domain.Certificate{
		certWithArtifact("SAME-ID", "Football 2025", srv.URL+"/ok/a.pdf"),
		certWithArtifact("SAME-ID", "Football 2025", srv.URL+"/ok/b.pdf"),
	}

	data, outcomes, err := svc.BuildArchive(context.Background(), certs, "Twin")
	if err != nil {
		t.Fatalf("BuildArchive error: %v", err)
	}

	files := readZip(t, data)
	if _, ok := files["Twin/SAME-ID_Football_2025.pdf"]; !ok {
		t.Errorf("first entry should keep the plain stem, files: %v", keys(files))
	}
	if _, ok := files["Twin/SAME-ID_Football_2025_2.pdf"]; !ok {
		t.Errorf("second entry should get a collision suffix, files: %v", keys(files))
	}

	names := map[string]bool{}
	for _, o := range outcomes {
		if names[o.Filename] {
			t.Errorf("duplicate filename %q in outcomes", o.Filename)
		}
		names[o.Filename] = true
	}
}

func TestBuildArchive_ManifestListsEveryOutcome(t *testing.T) {
	srv := artifactServer(t)
	svc := NewArchiveService(5*time.Second, 4)

	certs := []domain.Certificate{
		certWithArtifact("C1", "Football", srv.URL+"/ok/a.pdf"),
		certWithArtifact("C2", "Cricket", srv.URL+"/missing/b.pdf"),
		{CertificateID: "C3", EventName: "Chess"},
	}

	data, _, err := svc.BuildArchive(context.Background(), certs, "Someone Name")
	if err != nil {
		t.Fatalf("BuildArchive error: %v", err)
	}

	files := readZip(t, data)
	manifest, ok := files["Someone_Name/manifest.txt"]
	if !ok {
		t.Fatalf("manifest.txt missing, files: %v", keys(files))
	}
	for _, want := range []string{"1 archived, 1 skipped, 1 failed", "[archived] C1", "[failed] C2", "[skipped] C3"} {
		if !strings.Contains(manifest, want) {
			t.Errorf("manifest missing %q:\n%s", want, manifest)
		}
	}
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
