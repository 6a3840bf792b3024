package domain

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNormalizeCertificate_Defaults(t *testing.T) {
	raw := map[string]any{
		"search_id": "PRP24CS068",
	}

	cert := NormalizeCertificate(raw, "PRP24CS068")

	if cert.EventName != DefaultEventName {
		t.Errorf("EventName = %q, want %q", cert.EventName, DefaultEventName)
	}
	if cert.CertificateID != DefaultCertificateID {
		t.Errorf("CertificateID = %q, want %q", cert.CertificateID, DefaultCertificateID)
	}
	if cert.SearchKey != "PRP24CS068" {
		t.Errorf("SearchKey = %q, want PRP24CS068", cert.SearchKey)
	}
	if cert.HasArtifact() {
		t.Error("record with no download fields should have no artifact")
	}
}

func TestNormalizeCertificate_MissingSearchKeyFallsBackToQuery(t *testing.T) {
	cert := NormalizeCertificate(map[string]any{"event_name": "Football"}, "QUERIED")

	if cert.SearchKey != "QUERIED" {
		t.Errorf("SearchKey = %q, want the queried key", cert.SearchKey)
	}
	if cert.EventName != "Football" {
		t.Errorf("EventName = %q, want Football", cert.EventName)
	}
}

func TestNormalizeCertificate_FullRecord(t *testing.T) {
	id := primitive.NewObjectID()
	raw := map[string]any{
		"_id":                  id,
		"search_id":            "PRP24CS068",
		"certificate_id":       "ATHLOS25-068-Football",
		"name":                 "Goutham Sankar",
		"event_name":           "ATHLOS Football Tournament 2025",
		"organizer_name":       "Sports Committee",
		"department":           "Computer Science",
		"year":                 "2024",
		"download_storage_url": "https://store.example/certs/a.pdf",
		"download_file_name":   "a.pdf",
		"download_file_size":   int32(2048),
		"download_file_format": "pdf",
	}

	cert := NormalizeCertificate(raw, "PRP24CS068")

	if cert.ID != id {
		t.Errorf("ID = %v, want %v", cert.ID, id)
	}
	if !cert.HasArtifact() {
		t.Fatal("expected a stored artifact")
	}
	if cert.Artifact.URL != "https://store.example/certs/a.pdf" {
		t.Errorf("Artifact.URL = %q", cert.Artifact.URL)
	}
	if cert.Artifact.Size != 2048 {
		t.Errorf("Artifact.Size = %d, want 2048", cert.Artifact.Size)
	}
	if len(cert.Extra) != 0 {
		t.Errorf("fully canonical record should leave Extra empty, got %v", cert.Extra)
	}
}

func TestNormalizeCertificate_ExtraPassThrough(t *testing.T) {
	raw := map[string]any{
		"search_id":  "PRP24CS069",
		"event_name": "Cricket",
		"phone":      "999",
		"certificate_metadata": map[string]any{
			"template_id": "t1",
		},
	}

	cert := NormalizeCertificate(raw, "PRP24CS069")

	if cert.Extra["phone"] != "999" {
		t.Errorf("Extra[phone] = %v, want 999", cert.Extra["phone"])
	}
	if _, ok := cert.Extra["certificate_metadata"]; !ok {
		t.Error("nested unrecognized field should pass through in Extra")
	}
	if _, ok := cert.Extra["search_id"]; ok {
		t.Error("canonical fields must not be duplicated into Extra")
	}
}

func TestArtifactRef_Empty(t *testing.T) {
	var nilRef *ArtifactRef
	if !nilRef.Empty() {
		t.Error("nil ref should be empty")
	}
	if !(&ArtifactRef{FileName: "a.pdf"}).Empty() {
		t.Error("ref without URL should be empty")
	}
	if (&ArtifactRef{URL: "https://x"}).Empty() {
		t.Error("ref with URL should not be empty")
	}
}
