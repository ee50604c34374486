package menu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vasiliy-maslov/table-order/internal/db"
)

// menuItemDocument mirrors the menu_items collection. Prices are stored as
// doubles, which is what existing documents hold.
type menuItemDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	NameEn      string             `bson:"nameEn"`
	NameJp      string             `bson:"nameJp"`
	Price       float64            `bson:"price"`
	ImageURL    string             `bson:"imageUrl"`
	Category    string             `bson:"category"`
	Subcategory *string            `bson:"subcategory,omitempty"`
	IsAddon     bool               `bson:"isAddon"`
	IsActive    bool               `bson:"isActive"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *menuItemDocument) toModel() MenuItem {
	return MenuItem{
		ID:          d.ID.Hex(),
		NameEn:      d.NameEn,
		NameJp:      d.NameJp,
		Price:       decimal.NewFromFloat(d.Price),
		ImageURL:    d.ImageURL,
		Category:    d.Category,
		Subcategory: d.Subcategory,
		IsAddon:     d.IsAddon,
		IsActive:    d.IsActive,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type mongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(database *mongo.Database) Repository {
	return &mongoRepository{coll: database.Collection(db.CollectionMenuItems)}
}

func (r *mongoRepository) ListActive(ctx context.Context) ([]MenuItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.find(ctx, bson.M{"isActive": true}, opts)
}

func (r *mongoRepository) GetByID(ctx context.Context, id string) (*MenuItem, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var doc menuItemDocument
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to get menu item %s: %w", id, db.TranslateMongo(err))
	}

	item := doc.toModel()
	return &item, nil
}

func (r *mongoRepository) GetByIDs(ctx context.Context, ids []string) ([]MenuItem, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []MenuItem{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": oids}})
}

func (r *mongoRepository) Create(ctx context.Context, item *MenuItem) error {
	oid, err := primitive.ObjectIDFromHex(item.ID)
	if err != nil {
		return fmt.Errorf("repository: bad menu item id %q: %w", item.ID, err)
	}

	doc := menuItemDocument{
		ID:          oid,
		NameEn:      item.NameEn,
		NameJp:      item.NameJp,
		Price:       item.Price.InexactFloat64(),
		ImageURL:    item.ImageURL,
		Category:    item.Category,
		Subcategory: item.Subcategory,
		IsAddon:     item.IsAddon,
		IsActive:    item.IsActive,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("repository: failed to insert menu item: %w", db.TranslateMongo(err))
	}
	return nil
}

func (r *mongoRepository) Update(ctx context.Context, id string, ch Changes) (*MenuItem, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	set := bson.M{"updatedAt": ch.UpdatedAt}
	if ch.NameEn != nil {
		set["nameEn"] = *ch.NameEn
	}
	if ch.NameJp != nil {
		set["nameJp"] = *ch.NameJp
	}
	if ch.Price != nil {
		set["price"] = ch.Price.InexactFloat64()
	}
	if ch.ImageURL != nil {
		set["imageUrl"] = *ch.ImageURL
	}
	if ch.Category != nil {
		set["category"] = *ch.Category
	}
	if ch.Subcategory != nil {
		if *ch.Subcategory == "" {
			set["subcategory"] = nil
		} else {
			set["subcategory"] = *ch.Subcategory
		}
	}
	if ch.IsAddon != nil {
		set["isAddon"] = *ch.IsAddon
	}
	if ch.IsActive != nil {
		set["isActive"] = *ch.IsActive
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc menuItemDocument
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to update menu item %s: %w", id, db.TranslateMongo(err))
	}

	item := doc.toModel()
	return &item, nil
}

func (r *mongoRepository) find(ctx context.Context, filter any, opts ...*options.FindOptions) ([]MenuItem, error) {
	cursor, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query menu items: %w", db.TranslateMongo(err))
	}
	defer cursor.Close(ctx)

	var docs []menuItemDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("repository: failed to decode menu items: %w", db.TranslateMongo(err))
	}

	items := make([]MenuItem, 0, len(docs))
	for i := range docs {
		items = append(items, docs[i].toModel())
	}
	return items, nil
}
