package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vasiliy-maslov/table-order/internal/db"
)

const compensationTimeout = 10 * time.Second

// orderDocument mirrors the orders collection. The human-readable order
// code lives in orderId; _id is the ObjectID.
type orderDocument struct {
	ID            primitive.ObjectID `bson:"_id"`
	Code          string             `bson:"orderId"`
	UserID        string             `bson:"userId"`
	DisplayName   string             `bson:"displayName"`
	TableNumber   string             `bson:"tableNumber"`
	PaymentMethod *string            `bson:"paymentMethod,omitempty"`
	Total         float64            `bson:"total"`
	Status        string             `bson:"status"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

type orderItemDocument struct {
	ID           primitive.ObjectID  `bson:"_id"`
	OrderID      primitive.ObjectID  `bson:"orderId"`
	ItemID       primitive.ObjectID  `bson:"itemId"`
	Name         string              `bson:"name"`
	Quantity     int                 `bson:"quantity"`
	Price        float64             `bson:"price"`
	ParentItemID *primitive.ObjectID `bson:"parentItemId,omitempty"`
	Position     int                 `bson:"position"`
	CreatedAt    time.Time           `bson:"createdAt"`
}

func (d *orderDocument) toModel() Order {
	o := Order{
		ID:          d.ID.Hex(),
		Code:        d.Code,
		UserID:      d.UserID,
		DisplayName: d.DisplayName,
		TableNumber: d.TableNumber,
		Total:       decimal.NewFromFloat(d.Total),
		Status:      Status(d.Status),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		Lines:       []Line{},
	}
	if d.PaymentMethod != nil {
		pm := PaymentMethod(*d.PaymentMethod)
		o.PaymentMethod = &pm
	}
	return o
}

func (d *orderItemDocument) toModel() Line {
	l := Line{
		ID:        d.ID.Hex(),
		OrderID:   d.OrderID.Hex(),
		ItemID:    d.ItemID.Hex(),
		Name:      d.Name,
		Quantity:  d.Quantity,
		Price:     decimal.NewFromFloat(d.Price),
		CreatedAt: d.CreatedAt,
	}
	if d.ParentItemID != nil {
		parent := d.ParentItemID.Hex()
		l.ParentItemID = &parent
	}
	return l
}

type mongoRepository struct {
	orders *mongo.Collection
	items  *mongo.Collection
}

func NewMongoRepository(database *mongo.Database) Repository {
	return &mongoRepository{
		orders: database.Collection(db.CollectionOrders),
		items:  database.Collection(db.CollectionOrderItems),
	}
}

// Create inserts the order and then its lines. Multi-document transactions
// need a replica set, so a failed line insert is compensated by deleting
// whatever was written.
func (r *mongoRepository) Create(ctx context.Context, o *Order) error {
	orderDoc, lineDocs, err := toDocuments(o)
	if err != nil {
		return fmt.Errorf("repository: %w", err)
	}

	if _, err := r.orders.InsertOne(ctx, orderDoc); err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", db.TranslateMongo(err))
	}

	if len(lineDocs) > 0 {
		if _, err := r.items.InsertMany(ctx, lineDocs); err != nil {
			r.compensate(ctx, orderDoc.ID)
			return fmt.Errorf("repository: failed to insert order items for order %s: %w", o.ID, db.TranslateMongo(err))
		}
	}
	return nil
}

func (r *mongoRepository) compensate(ctx context.Context, orderID primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	logger := log.With().Str("order_id", orderID.Hex()).Logger()
	logger.Warn().Msg("Rolling back partially written order")

	if _, err := r.items.DeleteMany(ctx, bson.M{"orderId": orderID}); err != nil {
		logger.Error().Err(err).Msg("Failed to remove order items during rollback")
	}
	if _, err := r.orders.DeleteOne(ctx, bson.M{"_id": orderID}); err != nil {
		logger.Error().Err(err).Msg("Failed to remove order during rollback")
	}
}

func (r *mongoRepository) List(ctx context.Context) ([]Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.orders.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", db.TranslateMongo(err))
	}
	defer cursor.Close(ctx)

	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("repository: failed to decode orders: %w", db.TranslateMongo(err))
	}

	orders := make([]Order, 0, len(docs))
	for i := range docs {
		orders = append(orders, docs[i].toModel())
	}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *mongoRepository) GetByID(ctx context.Context, id string) (*Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var doc orderDocument
	if err := r.orders.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to get order %s: %w", id, db.TranslateMongo(err))
	}
	return r.withLines(ctx, &doc)
}

func (r *mongoRepository) UpdateStatus(ctx context.Context, id string, status Status, at time.Time) (*Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	update := bson.M{"$set": bson.M{"status": string(status), "updatedAt": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc orderDocument
	if err := r.orders.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to update order %s status: %w", id, db.TranslateMongo(err))
	}
	return r.withLines(ctx, &doc)
}

func (r *mongoRepository) ListSummaries(ctx context.Context, userID string) ([]Summary, error) {
	filter := bson.M{}
	if userID != "" {
		filter["userId"] = userID
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetProjection(bson.M{"userId": 1, "displayName": 1, "total": 1, "createdAt": 1})

	cursor, err := r.orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order summaries: %w", db.TranslateMongo(err))
	}
	defer cursor.Close(ctx)

	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("repository: failed to decode order summaries: %w", db.TranslateMongo(err))
	}

	summaries := make([]Summary, 0, len(docs))
	for _, d := range docs {
		summaries = append(summaries, Summary{
			UserID:      d.UserID,
			DisplayName: d.DisplayName,
			Total:       decimal.NewFromFloat(d.Total),
			CreatedAt:   d.CreatedAt,
		})
	}
	return summaries, nil
}

func (r *mongoRepository) withLines(ctx context.Context, doc *orderDocument) (*Order, error) {
	orders := []Order{doc.toModel()}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *mongoRepository) attachLines(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}

	oids := make([]primitive.ObjectID, 0, len(orders))
	byID := make(map[string]*Order, len(orders))
	for i := range orders {
		if oid, err := primitive.ObjectIDFromHex(orders[i].ID); err == nil {
			oids = append(oids, oid)
		}
		byID[orders[i].ID] = &orders[i]
	}

	opts := options.Find().SetSort(bson.D{{Key: "orderId", Value: 1}, {Key: "position", Value: 1}})
	cursor, err := r.items.Find(ctx, bson.M{"orderId": bson.M{"$in": oids}}, opts)
	if err != nil {
		return fmt.Errorf("repository: failed to query order items: %w", db.TranslateMongo(err))
	}
	defer cursor.Close(ctx)

	var docs []orderItemDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return fmt.Errorf("repository: failed to decode order items: %w", db.TranslateMongo(err))
	}

	for i := range docs {
		line := docs[i].toModel()
		if o, ok := byID[line.OrderID]; ok {
			o.Lines = append(o.Lines, line)
		}
	}
	return nil
}

func toDocuments(o *Order) (*orderDocument, []any, error) {
	oid, err := primitive.ObjectIDFromHex(o.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("bad order id %q: %w", o.ID, err)
	}

	orderDoc := &orderDocument{
		ID:          oid,
		Code:        o.Code,
		UserID:      o.UserID,
		DisplayName: o.DisplayName,
		TableNumber: o.TableNumber,
		Total:       o.Total.InexactFloat64(),
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.PaymentMethod != nil {
		pm := string(*o.PaymentMethod)
		orderDoc.PaymentMethod = &pm
	}

	lineDocs := make([]any, 0, len(o.Lines))
	for i, l := range o.Lines {
		lineID, err := primitive.ObjectIDFromHex(l.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("bad order item id %q: %w", l.ID, err)
		}
		itemID, err := primitive.ObjectIDFromHex(l.ItemID)
		if err != nil {
			return nil, nil, fmt.Errorf("bad menu item id %q: %w", l.ItemID, err)
		}

		doc := orderItemDocument{
			ID:        lineID,
			OrderID:   oid,
			ItemID:    itemID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			Price:     l.Price.InexactFloat64(),
			Position:  i,
			CreatedAt: l.CreatedAt,
		}
		if l.ParentItemID != nil {
			parent, err := primitive.ObjectIDFromHex(*l.ParentItemID)
			if err != nil {
				return nil, nil, fmt.Errorf("bad parent item id %q: %w", *l.ParentItemID, err)
			}
			doc.ParentItemID = &parent
		}
		lineDocs = append(lineDocs, doc)
	}
	return orderDoc, lineDocs, nil
}
