package main

import (
	"context"
	"flag"
	"log"
	"time"

	"athlos/cert-portal/internal/config"
	"athlos/cert-portal/internal/domain"
	"athlos/cert-portal/internal/repository/mongo"

	"github.com/google/uuid"
)

// Sample certificate set used for local development and demos. The
// codes printed at the end are valid lookups against a freshly seeded
// database.
var sampleCertificates = []domain.Certificate{
	{
		SearchKey:     "PRP24CS068",
		Name:          "Goutham Sankar",
		EventName:     "ATHLOS Athletic Meet 2025",
		CertificateID: "ATHLOS25-068-Athletic-Meet",
		OrganizerName: "Sports Committee",
		Department:    "Computer Science",
		Year:          "2024",
	},
	{
		SearchKey:     "PRP24CS068",
		Name:          "Goutham Sankar",
		EventName:     "ATHLOS Football Tournament 2025",
		CertificateID: "ATHLOS25-068-Football",
		OrganizerName: "Sports Committee",
		Department:    "Computer Science",
		Year:          "2024",
	},
	{
		SearchKey:     "PRP24CS068",
		Name:          "Goutham Sankar",
		EventName:     "ATHLOS Cricket Championship 2025",
		CertificateID: "ATHLOS25-068-Cricket",
		OrganizerName: "Sports Committee",
		Department:    "Computer Science",
		Year:          "2024",
	},
	{
		SearchKey:     "PRP24CS069",
		Name:          "John Smith",
		EventName:     "ATHLOS Football Tournament 2025",
		CertificateID: "ATHLOS25-069-Football",
		OrganizerName: "Sports Committee",
		Department:    "Computer Science",
		Year:          "2024",
	},
	{
		SearchKey:     "PRP24CS069",
		Name:          "John Smith",
		EventName:     "ATHLOS Table Tennis Tournament 2025",
		CertificateID: "ATHLOS25-069-Table-Tennis",
		OrganizerName: "Sports Committee",
		Department:    "Computer Science",
		Year:          "2024",
	},
	{
		SearchKey:     "PRP24CS070",
		Name:          "Alice Johnson",
		EventName:     "ATHLOS Cricket Championship 2025",
		CertificateID: "ATHLOS25-070-Cricket",
		OrganizerName: "Sports Committee",
		Department:    "Electrical Engineering",
		Year:          "2024",
	},
}

func main() {
	batch := flag.String("batch", "", "seed batch label (default: generated)")
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

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

	label := *batch
	if label == "" {
		label = "seed-" + uuid.NewString()[:8]
	}

	log.Printf("Adding %d sample certificates (batch %q)...", len(sampleCertificates), label)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	seen := map[string]bool{}
	for _, cert := range sampleCertificates {
		cert.SeedBatch = label
		id, err := certRepo.Insert(ctx, &cert)
		if err != nil {
			log.Fatalf("FATAL: Failed to insert certificate %s: %v", cert.CertificateID, err)
		}
		log.Printf("Added certificate %s (%s) with ID %s", cert.CertificateID, cert.EventName, id.Hex())
		seen[cert.SearchKey] = true
	}

	log.Println("Sample data added successfully. Test university codes:")
	for code := range seen {
		log.Printf("- %s", code)
	}
	log.Printf("Purge later with: DELETE /api/v1/admin/certificates/%s", label)
}
