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

const adminCollectionName = "admin_users"

// mongoAdminRepository implements repository.AdminRepository.
type mongoAdminRepository struct {
	collection *mongo.Collection
}

// NewMongoAdminRepository creates an admin account repository backed by
// the given database.
func NewMongoAdminRepository(db *mongo.Database) repository.AdminRepository {
	return &mongoAdminRepository{
		collection: db.Collection(adminCollectionName),
	}
}

// Create inserts a new admin user.
func (r *mongoAdminRepository) Create(ctx context.Context, admin *domain.AdminUser) (primitive.ObjectID, error) {
	if admin.Email == "" || admin.PasswordHash == "" {
		return primitive.NilObjectID, errors.New("admin email and password hash are required")
	}

	admin.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	admin.CreatedAt = now
	admin.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, admin)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, errors.New("admin with this email already exists")
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByEmail retrieves an admin user by email address.
func (r *mongoAdminRepository) GetByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	var admin domain.AdminUser
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&admin)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &admin, nil
}

// GetByID retrieves an admin user by ObjectID.
func (r *mongoAdminRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.AdminUser, error) {
	var admin domain.AdminUser
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&admin)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &admin, nil
}

// EnsureAdminIndexes creates the unique email index for admin users.
func EnsureAdminIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
