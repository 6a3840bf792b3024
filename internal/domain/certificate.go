package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Defaults applied during normalization when the raw document is missing
// the corresponding field.
const (
	DefaultEventName     = "Unknown Event"
	DefaultCertificateID = "Unknown"
)

// ArtifactRef points at a pre-generated certificate file in object storage.
// A nil ref and an empty ref mean the same thing: no stored artifact.
type ArtifactRef struct {
	URL         string `bson:"download_storage_url,omitempty" json:"url,omitempty"`
	StoragePath string `bson:"download_storage_path,omitempty" json:"storagePath,omitempty"`
	FileName    string `bson:"download_file_name,omitempty" json:"fileName,omitempty"`
	Size        int64  `bson:"download_file_size,omitempty" json:"size,omitempty"`
	Format      string `bson:"download_file_format,omitempty" json:"format,omitempty"`
}

// Empty reports whether the ref carries no fetchable URL.
func (a *ArtifactRef) Empty() bool {
	return a == nil || a.URL == ""
}

// Certificate is the canonical, normalized shape of one awarded
// certificate. SearchKey (the university code) and CertificateID are set
// at creation and treated as immutable lookup keys by all read paths.
type Certificate struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SearchKey     string             `bson:"search_id" json:"universityCode"`
	CertificateID string             `bson:"certificate_id" json:"certificateId"`
	Name          string             `bson:"name,omitempty" json:"name,omitempty"`
	EventName     string             `bson:"event_name" json:"eventName"`
	OrganizerName string             `bson:"organizer_name,omitempty" json:"organizerName,omitempty"`
	Department    string             `bson:"department,omitempty" json:"department,omitempty"`
	Year          string             `bson:"year,omitempty" json:"year,omitempty"`
	Artifact      *ArtifactRef       `bson:"artifact,omitempty" json:"artifact,omitempty"`

	// Extra carries raw store fields that have no canonical slot,
	// passed through verbatim.
	Extra map[string]any `bson:"-" json:"extra,omitempty"`

	CreatedAt time.Time `bson:"created_at,omitempty" json:"createdAt,omitempty"`

	// SeedBatch labels rows inserted by the seeding tools so they can be
	// purged as a unit.
	SeedBatch string `bson:"seed_batch,omitempty" json:"seedBatch,omitempty"`
}

// HasArtifact reports whether a stored artifact exists for this record.
func (c *Certificate) HasArtifact() bool {
	return !c.Artifact.Empty()
}

// canonicalFields are raw document keys consumed by normalization; every
// other key lands in Extra.
var canonicalFields = map[string]bool{
	"_id":                   true,
	"search_id":             true,
	"certificate_id":        true,
	"name":                  true,
	"event_name":            true,
	"organizer_name":        true,
	"department":            true,
	"year":                  true,
	"download_storage_url":  true,
	"download_storage_path": true,
	"download_file_name":    true,
	"download_file_size":    true,
	"download_file_format":  true,
	"created_at":            true,
	"seed_batch":            true,
}

// NormalizeCertificate maps one raw store document to the canonical
// record. Missing event_name defaults to "Unknown Event", missing
// certificate_id to "Unknown", missing search_id to the key the caller
// queried with. Unrecognized fields are preserved in Extra.
func NormalizeCertificate(raw map[string]any, queriedKey string) Certificate {
	cert := Certificate{
		SearchKey:     stringField(raw, "search_id", queriedKey),
		CertificateID: stringField(raw, "certificate_id", DefaultCertificateID),
		EventName:     stringField(raw, "event_name", DefaultEventName),
		Name:          stringField(raw, "name", ""),
		OrganizerName: stringField(raw, "organizer_name", ""),
		Department:    stringField(raw, "department", ""),
		Year:          stringField(raw, "year", ""),
	}

	if id, ok := raw["_id"].(primitive.ObjectID); ok {
		cert.ID = id
	}
	if t, ok := raw["created_at"].(primitive.DateTime); ok {
		cert.CreatedAt = t.Time()
	}
	cert.SeedBatch = stringField(raw, "seed_batch", "")

	artifact := &ArtifactRef{
		URL:         stringField(raw, "download_storage_url", ""),
		StoragePath: stringField(raw, "download_storage_path", ""),
		FileName:    stringField(raw, "download_file_name", ""),
		Format:      stringField(raw, "download_file_format", ""),
		Size:        int64Field(raw, "download_file_size"),
	}
	if !artifact.Empty() {
		cert.Artifact = artifact
	}

	for key, val := range raw {
		if canonicalFields[key] {
			continue
		}
		if cert.Extra == nil {
			cert.Extra = make(map[string]any)
		}
		cert.Extra[key] = val
	}

	return cert
}

func stringField(raw map[string]any, key, fallback string) string {
	if v, ok := raw[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func int64Field(raw map[string]any, key string) int64 {
	switch v := raw[key].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}
