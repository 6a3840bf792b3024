package mongo

import (
	"context"
	"errors"
	"time"

	"athlos/cert-portal/internal/domain"
	"athlos/cert-portal/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const certificateCollectionName = "certificate_list"

// mongoCertificateRepository implements repository.CertificateRepository.
//
// Documents are stored flat, the way the admin tooling writes them
// (search_id, event_name, download_storage_url, ...). Reads decode the
// raw document and run it through domain.NormalizeCertificate so records
// with heterogeneous shapes come back canonical, with unrecognized
// fields preserved in Extra.
type mongoCertificateRepository struct {
	collection *mongo.Collection
}

// NewMongoCertificateRepository creates a certificate repository backed
// by the given database.
func NewMongoCertificateRepository(db *mongo.Database) repository.CertificateRepository {
	return &mongoCertificateRepository{
		collection: db.Collection(certificateCollectionName),
	}
}

// FindBySearchKey returns all certificates whose search_id exactly
// matches the given university code.
func (r *mongoCertificateRepository) FindBySearchKey(ctx context.Context, key string) ([]domain.Certificate, error) {
	return r.find(ctx, bson.M{"search_id": key}, key)
}

// FindByCertificateID returns all certificates whose certificate_id
// exactly matches. The id is expected unique but not enforced, so this
// is a list operation like FindBySearchKey.
func (r *mongoCertificateRepository) FindByCertificateID(ctx context.Context, certificateID string) ([]domain.Certificate, error) {
	return r.find(ctx, bson.M{"certificate_id": certificateID}, "")
}

// All returns every certificate in the collection. Used by the admin
// debug listing only.
func (r *mongoCertificateRepository) All(ctx context.Context) ([]domain.Certificate, error) {
	return r.find(ctx, bson.M{}, "")
}

func (r *mongoCertificateRepository) find(ctx context.Context, filter bson.M, queriedKey string) ([]domain.Certificate, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rawDocs []bson.M
	if err = cursor.All(ctx, &rawDocs); err != nil {
		return nil, err
	}

	certs := make([]domain.Certificate, 0, len(rawDocs))
	for _, raw := range rawDocs {
		certs = append(certs, domain.NormalizeCertificate(raw, queriedKey))
	}
	return certs, nil
}

// GetByID retrieves a single certificate by its store-assigned ObjectID.
func (r *mongoCertificateRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Certificate, error) {
	var raw bson.M
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	cert := domain.NormalizeCertificate(raw, "")
	return &cert, nil
}

// Insert stores a new certificate record and returns its assigned id.
func (r *mongoCertificateRepository) Insert(ctx context.Context, cert *domain.Certificate) (primitive.ObjectID, error) {
	if cert.SearchKey == "" {
		return primitive.NilObjectID, errors.New("certificate search key is required")
	}

	cert.ID = primitive.NewObjectID()
	if cert.CreatedAt.IsZero() {
		cert.CreatedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, flattenCertificate(cert))
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// SetArtifact attaches (or replaces) the stored-artifact fields on an
// existing record. Used by the bulk uploader after a successful upload.
func (r *mongoCertificateRepository) SetArtifact(ctx context.Context, id primitive.ObjectID, ref *domain.ArtifactRef) error {
	if ref.Empty() {
		return errors.New("artifact ref must carry a URL")
	}

	update := bson.M{"$set": bson.M{
		"download_storage_url":  ref.URL,
		"download_storage_path": ref.StoragePath,
		"download_file_name":    ref.FileName,
		"download_file_size":    ref.Size,
		"download_file_format":  ref.Format,
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteBySeedBatch removes every record inserted under the given seed
// batch label and returns the number deleted.
func (r *mongoCertificateRepository) DeleteBySeedBatch(ctx context.Context, batch string) (int64, error) {
	if batch == "" {
		return 0, errors.New("seed batch label is required")
	}
	result, err := r.collection.DeleteMany(ctx, bson.M{"seed_batch": batch})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// flattenCertificate builds the flat store document from a canonical
// record, the inverse of domain.NormalizeCertificate. Extra fields are
// written back verbatim; canonical fields win on key collision.
func flattenCertificate(cert *domain.Certificate) bson.M {
	doc := bson.M{}
	for key, val := range cert.Extra {
		doc[key] = val
	}

	doc["_id"] = cert.ID
	doc["search_id"] = cert.SearchKey
	doc["certificate_id"] = cert.CertificateID
	doc["event_name"] = cert.EventName
	doc["created_at"] = primitive.NewDateTimeFromTime(cert.CreatedAt)

	setIfPresent(doc, "name", cert.Name)
	setIfPresent(doc, "organizer_name", cert.OrganizerName)
	setIfPresent(doc, "department", cert.Department)
	setIfPresent(doc, "year", cert.Year)
	setIfPresent(doc, "seed_batch", cert.SeedBatch)

	if cert.HasArtifact() {
		doc["download_storage_url"] = cert.Artifact.URL
		setIfPresent(doc, "download_storage_path", cert.Artifact.StoragePath)
		setIfPresent(doc, "download_file_name", cert.Artifact.FileName)
		setIfPresent(doc, "download_file_format", cert.Artifact.Format)
		if cert.Artifact.Size > 0 {
			doc["download_file_size"] = cert.Artifact.Size
		}
	}

	return doc
}

func setIfPresent(doc bson.M, key, val string) {
	if val != "" {
		doc[key] = val
	}
}

// EnsureCertificateIndexes creates the lookup indexes for the
// certificate collection. Call once during application startup.
func EnsureCertificateIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "search_id", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "certificate_id", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "seed_batch", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
