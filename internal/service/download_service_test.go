package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"athlos/cert-portal/internal/domain"
)

func TestResolve_StoredArtifact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("stored-pdf"))
	}))
	defer srv.Close()

	svc := NewDownloadService(5 * time.Second)
	cert := &domain.Certificate{
		Name:      "Goutham Sankar",
		EventName: "Football",
		Artifact:  &domain.ArtifactRef{URL: srv.URL, FileName: "football.pdf"},
	}

	data, filename, err := svc.Resolve(context.Background(), cert)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if string(data) != "stored-pdf" {
		t.Errorf("data = %q, want stored-pdf", data)
	}
	if filename != "football.pdf" {
		t.Errorf("filename = %q, want the stored filename", filename)
	}
}

func TestResolve_FilenameFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	svc := NewDownloadService(5 * time.Second)
	cert := &domain.Certificate{
		Name:      "Goutham Sankar",
		EventName: "ATHLOS Football 2025",
		Artifact:  &domain.ArtifactRef{URL: srv.URL, Format: "png"},
	}

	_, filename, err := svc.Resolve(context.Background(), cert)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if filename != "Goutham_Sankar_ATHLOS_Football_2025.png" {
		t.Errorf("filename = %q", filename)
	}
}

func TestResolve_FetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	svc := NewDownloadService(5 * time.Second)
	cert := &domain.Certificate{
		EventName: "Football",
		Artifact:  &domain.ArtifactRef{URL: srv.URL},
	}

	_, _, err := svc.Resolve(context.Background(), cert)
	if !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("err = %v, want ErrDownloadFailed", err)
	}
}

func TestResolve_SynthesizesWithoutArtifact(t *testing.T) {
	svc := NewDownloadService(5 * time.Second)
	cert := &domain.Certificate{
		Name:          "Alice Johnson",
		EventName:     "Cricket Championship",
		CertificateID: "ATHLOS25-070-Cricket",
		SearchKey:     "PRP24CS070",
		OrganizerName: "Sports Committee",
	}

	data, filename, err := svc.Resolve(context.Background(), cert)
	if err != nil {
		t.Fatalf("synthesis must never fail, got %v", err)
	}
	if !strings.HasSuffix(filename, ".html") {
		t.Errorf("fallback filename = %q, want .html", filename)
	}

	page := string(data)
	for _, want := range []string{"Alice Johnson", "Cricket Championship", "ATHLOS25-070-Cricket", "PRP24CS070", "Sports Committee"} {
		if !strings.Contains(page, want) {
			t.Errorf("synthesized page missing %q", want)
		}
	}
}

func TestResolve_EmptyRefTreatedAsNoArtifact(t *testing.T) {
	svc := NewDownloadService(5 * time.Second)
	cert := &domain.Certificate{
		Name:      "Bob",
		EventName: "Chess",
		Artifact:  &domain.ArtifactRef{FileName: "orphan.pdf"}, // no URL
	}

	data, filename, err := svc.Resolve(context.Background(), cert)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !strings.HasSuffix(filename, ".html") {
		t.Errorf("empty ref should synthesize, filename = %q", filename)
	}
	if !strings.Contains(string(data), "Certificate of Participation") {
		t.Error("expected the synthesized fallback page")
	}
}

func TestSanitizeFilePart(t *testing.T) {
	cases := []struct{ in, want string }{
		{"ATHLOS Football 2025", "ATHLOS_Football_2025"},
		{"Men's  100m Dash!", "Mens_100m_Dash"},
		{"already_clean", "already_clean"},
	}
	for _, c := range cases {
		if got := SanitizeFilePart(c.in); got != c.want {
			t.Errorf("SanitizeFilePart(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
