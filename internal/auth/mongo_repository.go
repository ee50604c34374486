package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vasiliy-maslov/table-order/internal/db"
)

type userDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	UserID      string             `bson:"userId"`
	DisplayName string             `bson:"displayName"`
	Email       *string            `bson:"email,omitempty"`
	Phone       *string            `bson:"phone,omitempty"`
	Password    string             `bson:"password,omitempty"`
	Role        string             `bson:"role"`
	IsActive    bool               `bson:"isActive"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *userDocument) toModel() *AdminUser {
	return &AdminUser{
		ID:           d.ID.Hex(),
		UserID:       d.UserID,
		DisplayName:  d.DisplayName,
		Email:        d.Email,
		Phone:        d.Phone,
		PasswordHash: d.Password,
		Role:         Role(d.Role),
		IsActive:     d.IsActive,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type mongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(database *mongo.Database) Repository {
	return &mongoRepository{coll: database.Collection(db.CollectionUsers)}
}

func (r *mongoRepository) GetByUserID(ctx context.Context, userID string) (*AdminUser, error) {
	return r.findOne(ctx, bson.M{"userId": userID})
}

func (r *mongoRepository) GetByID(ctx context.Context, id string) (*AdminUser, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *mongoRepository) SetPassword(ctx context.Context, id, hash string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"password": hash, "updatedAt": at}})
	if err != nil {
		return fmt.Errorf("repository: failed to set password for %s: %w", id, db.TranslateMongo(err))
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoRepository) Create(ctx context.Context, u *AdminUser) error {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return fmt.Errorf("repository: bad admin user id %q: %w", u.ID, err)
	}

	doc := userDocument{
		ID:          oid,
		UserID:      u.UserID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Phone:       u.Phone,
		Password:    u.PasswordHash,
		Role:        string(u.Role),
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("repository: failed to insert admin user: %w", db.TranslateMongo(err))
	}
	return nil
}

func (r *mongoRepository) findOne(ctx context.Context, filter bson.M) (*AdminUser, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to get admin user: %w", db.TranslateMongo(err))
	}
	return doc.toModel(), nil
}
