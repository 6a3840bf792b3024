// Command upload populates the artifact store from a folder of
// pre-generated certificate PDFs. It reads a JSON data file describing
// the certificates, validates every row, uploads each matching PDF to
// object storage and inserts the record with its artifact reference.
//
// PDFs are looked up in the folder as <certificateId>.pdf, where the
// certificate id is derived from the university code and event name
// (ATHLOS25-<last 3 of code>-<event slug>).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"athlos/cert-portal/internal/config"
	"athlos/cert-portal/internal/domain"
	"athlos/cert-portal/internal/repository/mongo"
	"athlos/cert-portal/internal/storage"
)

// uploadRow is one entry of the data file.
type uploadRow struct {
	UniversityCode string `json:"universityCode"`
	Name           string `json:"name"`
	EventName      string `json:"eventName"`
	OrganizerName  string `json:"organizerName"`
	Department     string `json:"department"`
	Year           string `json:"year"`
	Position       string `json:"position,omitempty"`
	Category       string `json:"category,omitempty"`
}

func (r uploadRow) validate(index int) error {
	if r.UniversityCode == "" || r.Name == "" || r.EventName == "" {
		return fmt.Errorf("row %d: universityCode, name and eventName are required", index)
	}
	return nil
}

// certificateID derives the stable id used both as the store lookup key
// and the PDF filename stem.
func certificateID(row uploadRow) string {
	slug := strings.Join(strings.Fields(row.EventName), "-")
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return -1
	}, slug)

	code := row.UniversityCode
	if len(code) > 3 {
		code = code[len(code)-3:]
	}
	return fmt.Sprintf("ATHLOS25-%s-%s", code, slug)
}

func main() {
	dataFile := flag.String("data", "certificates.json", "JSON file with certificate rows")
	pdfDir := flag.String("pdfs", "pdfs", "folder containing <certificateId>.pdf files")
	configPath := flag.String("config", ".", "directory containing config.yaml")
	urlTTL := flag.Duration("url-ttl", 7*24*time.Hour, "expiry for stored download URLs")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	raw, err := os.ReadFile(*dataFile)
	if err != nil {
		log.Fatalf("FATAL: Could not read data file: %v", err)
	}
	var rows []uploadRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		log.Fatalf("FATAL: Could not parse data file: %v", err)
	}
	if len(rows) == 0 {
		log.Fatal("FATAL: Data file contains no certificate rows")
	}

	// Validate everything up front so a bad row cannot leave the batch
	// half uploaded.
	for i, row := range rows {
		if err := row.validate(i); err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		pdfPath := filepath.Join(*pdfDir, certificateID(row)+".pdf")
		if _, err := os.Stat(pdfPath); err != nil {
			log.Fatalf("FATAL: Missing PDF for %s: %v", certificateID(row), err)
		}
	}
	log.Printf("Validated %d certificate rows.", len(rows))

	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	certRepo := mongo.NewMongoCertificateRepository(dbClient.Database(cfg.Database.Name))

	fileStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
	}

	ctx := context.Background()
	uploaded := 0
	for _, row := range rows {
		certID := certificateID(row)
		pdfPath := filepath.Join(*pdfDir, certID+".pdf")

		data, err := os.ReadFile(pdfPath)
		if err != nil {
			log.Fatalf("FATAL: Could not read %s: %v", pdfPath, err)
		}

		objectKey := "certificates/" + certID + ".pdf"
		if err := fileStorage.PutObject(ctx, objectKey, "application/pdf", data); err != nil {
			log.Fatalf("FATAL: Failed to upload %s: %v", objectKey, err)
		}

		url, err := fileStorage.GeneratePresignedDownloadURL(ctx, objectKey, *urlTTL)
		if err != nil {
			log.Fatalf("FATAL: Failed to generate download URL for %s: %v", objectKey, err)
		}

		cert := domain.Certificate{
			SearchKey:     row.UniversityCode,
			CertificateID: certID,
			Name:          row.Name,
			EventName:     row.EventName,
			OrganizerName: row.OrganizerName,
			Department:    row.Department,
			Year:          row.Year,
			Artifact: &domain.ArtifactRef{
				URL:         url,
				StoragePath: objectKey,
				FileName:    certID + ".pdf",
				Size:        int64(len(data)),
				Format:      "pdf",
			},
		}
		if row.Position != "" || row.Category != "" {
			cert.Extra = map[string]any{}
			if row.Position != "" {
				cert.Extra["position"] = row.Position
			}
			if row.Category != "" {
				cert.Extra["category"] = row.Category
			}
		}

		id, err := certRepo.Insert(ctx, &cert)
		if err != nil {
			log.Fatalf("FATAL: Failed to insert record for %s: %v", certID, err)
		}

		log.Printf("Uploaded %s (%d bytes) -> record %s", certID, len(data), id.Hex())
		uploaded++
	}

	log.Printf("Bulk upload completed: %d certificates.", uploaded)
}
