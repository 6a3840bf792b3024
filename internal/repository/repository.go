package repository

import (
	"context"

	"athlos/cert-portal/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// CertificateRepository defines access to the certificate document store.
// All Find methods are exact-match; empty result sets are not errors.
type CertificateRepository interface {
	FindBySearchKey(ctx context.Context, key string) ([]domain.Certificate, error)
	FindByCertificateID(ctx context.Context, certificateID string) ([]domain.Certificate, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Certificate, error)
	Insert(ctx context.Context, cert *domain.Certificate) (primitive.ObjectID, error)
	SetArtifact(ctx context.Context, id primitive.ObjectID, ref *domain.ArtifactRef) error
	DeleteBySeedBatch(ctx context.Context, batch string) (int64, error)
	All(ctx context.Context) ([]domain.Certificate, error)
}

// AdminRepository defines access to admin operator accounts.
type AdminRepository interface {
	Create(ctx context.Context, admin *domain.AdminUser) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.AdminUser, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.AdminUser, error)
}
