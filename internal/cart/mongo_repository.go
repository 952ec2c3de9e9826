package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Hkilla-ux/shopsmart/internal/domain"
)

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("carts"),
	}
}

func (m *MongoRepository) GetLines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	var cart domain.Cart

	filter := bson.M{"user_id": userID}
	err := m.collection.FindOne(ctx, filter).Decode(&cart)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []domain.CartLine{}, nil
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return cart.Lines, nil
}

func (m *MongoRepository) PutLine(ctx context.Context, userID string, productID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	now := time.Now()
	line := domain.CartLine{ProductID: productID, Quantity: quantity, UpdatedAt: now}

	for attempt := 0; attempt < 2; attempt++ {
		// overwrite an existing line in place
		update := bson.M{
			"$set": bson.M{
				"lines.$.quantity":   quantity,
				"lines.$.updated_at": now,
				"updated_at":         now,
			},
		}
		result, err := m.collection.UpdateOne(ctx,
			bson.M{"user_id": userID, "lines.product_id": productID},
			update)
		if err != nil {
			return fmt.Errorf("failed to update existing line: %w", err)
		}
		if result.MatchedCount > 0 {
			return nil
		}

		// no such line: push it, creating the cart document on first use
		push := bson.M{
			"$push":        bson.M{"lines": line},
			"$set":         bson.M{"updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		}
		_, err = m.collection.UpdateOne(ctx,
			bson.M{"user_id": userID, "lines.product_id": bson.M{"$ne": productID}},
			push,
			options.Update().SetUpsert(true))
		if err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to add line: %w", err)
		}
		// a concurrent writer created the document or the line between
		// our two updates; the unique user_id index rejected the upsert,
		// so go around and take the in-place path
	}

	return fmt.Errorf("failed to put line for user %s after concurrent update", userID)
}

func (m *MongoRepository) DeleteLine(ctx context.Context, userID string, productID string) error {
	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$pull": bson.M{
			"lines": bson.M{"product_id": productID},
		},
		"$set": bson.M{"updated_at": time.Now()},
	}

	// no match means there is nothing to delete, which is a success
	if _, err := m.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to delete line: %w", err)
	}

	return nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
