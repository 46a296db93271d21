// Package mongo implements store.Repository on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dvloznov/imagexbot/internal/domain"
	"github.com/dvloznov/imagexbot/internal/store"
)

const (
	chatsCollection    = "chats"
	accountsCollection = "accounts"
)

// Repository is the MongoDB implementation of store.Repository.
type Repository struct {
	client   *mongo.Client
	chats    *mongo.Collection
	accounts *mongo.Collection
}

// NewRepository connects to uri and ensures the indexes exist.
func NewRepository(ctx context.Context, uri, database string) (*Repository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("NewRepository: connecting: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("NewRepository: ping: %w", err)
	}

	db := client.Database(database)
	r := &Repository{
		client:   client,
		chats:    db.Collection(chatsCollection),
		accounts: db.Collection(accountsCollection),
	}

	if err := r.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return r, nil
}

func (r *Repository) ensureIndexes(ctx context.Context) error {
	_, err := r.accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("ensureIndexes: accounts.email: %w", err)
	}

	_, err = r.chats.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("ensureIndexes: chats.user_id: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (r *Repository) Close() error {
	return r.client.Disconnect(context.Background())
}

// InsertTurns writes the turns with one ordered InsertMany call.
func (r *Repository) InsertTurns(ctx context.Context, turns []*domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	docs := make([]any, 0, len(turns))
	for _, t := range turns {
		docs = append(docs, newTurnDocument(t))
	}

	if _, err := r.chats.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("InsertTurns: %w", err)
	}
	return nil
}

// FindTurnsByUser returns all turns of userID, oldest first.
func (r *Repository) FindTurnsByUser(ctx context.Context, userID string) ([]*domain.Turn, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "type", Value: -1}})

	cur, err := r.chats.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("FindTurnsByUser: find: %w", err)
	}
	defer cur.Close(ctx)

	turns := []*domain.Turn{}
	for cur.Next(ctx) {
		var doc turnDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("FindTurnsByUser: decode: %w", err)
		}
		turns = append(turns, doc.turn())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("FindTurnsByUser: cursor: %w", err)
	}
	return turns, nil
}

// FindAccountByEmail implements store.AccountRepository.
func (r *Repository) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var doc accountDocument
	err := r.accounts.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("FindAccountByEmail: %s: %w", email, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("FindAccountByEmail: %w", err)
	}
	return doc.account(), nil
}

// InsertAccount implements store.AccountRepository. Emails are stored
// lower-cased so the unique index is case-insensitive.
func (r *Repository) InsertAccount(ctx context.Context, account *domain.Account) error {
	doc := newAccountDocument(account)
	doc.Email = strings.ToLower(strings.TrimSpace(doc.Email))

	_, err := r.accounts.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("InsertAccount: %s: %w", account.Email, store.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("InsertAccount: %w", err)
	}
	return nil
}

var _ store.Repository = (*Repository)(nil)
