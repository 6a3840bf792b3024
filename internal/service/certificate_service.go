package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"athlos/cert-portal/internal/domain"
	"athlos/cert-portal/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrQueryFailed         = errors.New("failed to fetch certificates")
	ErrCertificateNotFound = errors.New("certificate not found")
	ErrValidationFailed    = errors.New("certificate validation failed")
)

// SeedRow is one certificate supplied to the admin seeding surface.
type SeedRow struct {
	SearchKey     string         `json:"search_id"`
	EventName     string         `json:"event_name"`
	OrganizerName string         `json:"organizer_name"`
	CertificateID string         `json:"certificate_id"`
	Name          string         `json:"name"`
	Department    string         `json:"department"`
	Year          string         `json:"year"`
	Extra         map[string]any `json:"extra"`
}

// CertificateService exposes the lookup and admin operations on the
// certificate store.
type CertificateService interface {
	FindBySearchKey(ctx context.Context, key string) ([]domain.Certificate, error)
	FindByCertificateID(ctx context.Context, certificateID string) ([]domain.Certificate, error)
	GetByID(ctx context.Context, hexID string) (*domain.Certificate, error)
	SeedCertificates(ctx context.Context, batch string, rows []SeedRow) ([]domain.Certificate, error)
	PurgeSeedBatch(ctx context.Context, batch string) (int64, error)
	ListAll(ctx context.Context) ([]domain.Certificate, error)
	AttachArtifact(ctx context.Context, hexID string, ref *domain.ArtifactRef) error
}

// certificateService implements CertificateService.
type certificateService struct {
	certRepo repository.CertificateRepository
	cache    *recordCache
}

// NewCertificateService creates the query service. cacheSize/cacheTTL
// size the read-through record cache on the single-record path.
func NewCertificateService(certRepo repository.CertificateRepository, cacheSize int, cacheTTL time.Duration) CertificateService {
	if cacheSize <= 0 {
		cacheSize = 512
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &certificateService{
		certRepo: certRepo,
		cache:    newRecordCache(cacheSize, cacheTTL),
	}
}

// FindBySearchKey returns all certificates matching the university code
// exactly. An empty result is not an error; the caller decides whether
// zero matches is a 404 condition.
func (s *certificateService) FindBySearchKey(ctx context.Context, key string) ([]domain.Certificate, error) {
	if key == "" {
		return nil, ErrValidationFailed
	}
	certs, err := s.certRepo.FindBySearchKey(ctx, key)
	if err != nil {
		// No partial-result semantics: the query either returns the
		// full match set or fails entirely.
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return certs, nil
}

// FindByCertificateID returns all certificates matching the human
// certificate id exactly.
func (s *certificateService) FindByCertificateID(ctx context.Context, certificateID string) ([]domain.Certificate, error) {
	if certificateID == "" {
		return nil, ErrValidationFailed
	}
	certs, err := s.certRepo.FindByCertificateID(ctx, certificateID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return certs, nil
}

// GetByID retrieves a single certificate for the download path,
// read-through cached.
func (s *certificateService) GetByID(ctx context.Context, hexID string) (*domain.Certificate, error) {
	if cert, ok := s.cache.Get(hexID); ok {
		return cert, nil
	}

	id, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return nil, ErrCertificateNotFound
	}

	cert, err := s.certRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCertificateNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	s.cache.Set(hexID, cert)
	return cert, nil
}

// SeedCertificates validates and inserts a batch of rows under the given
// batch label. Every row must carry search_id, event_name and
// organizer_name; the whole batch is rejected on the first invalid row.
func (s *certificateService) SeedCertificates(ctx context.Context, batch string, rows []SeedRow) ([]domain.Certificate, error) {
	if batch == "" || len(rows) == 0 {
		return nil, ErrValidationFailed
	}

	for i, row := range rows {
		if row.SearchKey == "" || row.EventName == "" || row.OrganizerName == "" {
			return nil, fmt.Errorf("%w: row %d must have search_id, event_name and organizer_name", ErrValidationFailed, i)
		}
	}

	inserted := make([]domain.Certificate, 0, len(rows))
	for _, row := range rows {
		cert := domain.Certificate{
			SearchKey:     row.SearchKey,
			CertificateID: row.CertificateID,
			Name:          row.Name,
			EventName:     row.EventName,
			OrganizerName: row.OrganizerName,
			Department:    row.Department,
			Year:          row.Year,
			Extra:         row.Extra,
			SeedBatch:     batch,
		}
		if cert.CertificateID == "" {
			cert.CertificateID = domain.DefaultCertificateID
		}

		id, err := s.certRepo.Insert(ctx, &cert)
		if err != nil {
			return inserted, fmt.Errorf("%w: %v", ErrQueryFailed, err)
		}
		cert.ID = id
		inserted = append(inserted, cert)
	}

	return inserted, nil
}

// PurgeSeedBatch deletes every record seeded under the batch label.
func (s *certificateService) PurgeSeedBatch(ctx context.Context, batch string) (int64, error) {
	if batch == "" {
		return 0, ErrValidationFailed
	}
	deleted, err := s.certRepo.DeleteBySeedBatch(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return deleted, nil
}

// ListAll returns every certificate in the store. Debug surface only.
func (s *certificateService) ListAll(ctx context.Context) ([]domain.Certificate, error) {
	certs, err := s.certRepo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return certs, nil
}

// AttachArtifact stores the artifact ref on an existing record and
// invalidates its cache entry.
func (s *certificateService) AttachArtifact(ctx context.Context, hexID string, ref *domain.ArtifactRef) error {
	if ref.Empty() {
		return ErrValidationFailed
	}
	id, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return ErrCertificateNotFound
	}
	if err := s.certRepo.SetArtifact(ctx, id, ref); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCertificateNotFound
		}
		return fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	s.cache.Delete(hexID)
	return nil
}
