// AngelaMos | 2026
// repository_mongo.go

package account

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/carterperez-dev/templates/iam-service/internal/core"
)

const accountsCollection = "accounts"

var withoutHash = bson.M{"password_hash": 0}

type mongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{coll: db.Collection(accountsCollection)}
}

// EnsureMongoIndexes creates the unique email index and the roles index.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(accountsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("accounts_email_key"),
		},
		{
			Keys:    bson.D{{Key: "roles", Value: 1}},
			Options: options.Index().SetName("accounts_roles_idx"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("accounts_created_at_idx"),
		},
	})
	if err != nil {
		return fmt.Errorf("create account indexes: %w", err)
	}
	return nil
}

func (r *mongoRepository) Create(ctx context.Context, account *Account) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	account.CreatedAt = now
	account.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, account); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("create account: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create account: %w", err)
	}

	return nil
}

func (r *mongoRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	var account Account
	err := r.coll.FindOne(
		ctx,
		bson.M{"_id": id},
		options.FindOne().SetProjection(withoutHash),
	).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get account: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	return &account, nil
}

func (r *mongoRepository) GetByEmail(
	ctx context.Context,
	email string,
) (*Account, error) {
	var account Account
	err := r.coll.FindOne(ctx, bson.M{"email": NormalizeEmail(email)}).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get account by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account by email: %w", err)
	}

	return &account, nil
}

func (r *mongoRepository) GetCredentials(ctx context.Context, id string) (string, error) {
	var doc struct {
		PasswordHash string `bson:"password_hash"`
	}
	err := r.coll.FindOne(
		ctx,
		bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"password_hash": 1}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", fmt.Errorf("get credentials: %w", core.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get credentials: %w", err)
	}

	return doc.PasswordHash, nil
}

func (r *mongoRepository) FindMany(
	ctx context.Context,
	lookup Lookup,
	limit, offset int,
) ([]Account, error) {
	opts := options.Find().
		SetProjection(withoutHash).
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, lookupFilter(lookup), opts)
	if err != nil {
		return nil, fmt.Errorf("find accounts: %w", err)
	}

	accounts := []Account{}
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}

	return accounts, nil
}

func lookupFilter(lookup Lookup) bson.M {
	switch lookup.Kind {
	case ByID:
		return bson.M{"_id": lookup.ID}
	case ByEmailOrRole:
		return bson.M{"$or": bson.A{
			bson.M{"email": lookup.Email},
			bson.M{"roles": lookup.Role},
		}}
	case Search:
		if lookup.Substring == "" {
			return bson.M{}
		}
		return bson.M{"$or": bson.A{
			bson.M{"email": bson.M{
				"$regex":   regexp.QuoteMeta(lookup.Substring),
				"$options": "i",
			}},
			bson.M{"roles": lookup.Role},
		}}
	default:
		return bson.M{"_id": bson.M{"$exists": false}}
	}
}

func (r *mongoRepository) Save(ctx context.Context, account *Account) error {
	now := time.Now().UTC().Truncate(time.Millisecond)

	set := bson.M{
		"email":      account.Email,
		"is_active":  account.IsActive,
		"roles":      account.Roles,
		"updated_at": now,
	}
	if account.PasswordHash != "" {
		set["password_hash"] = account.PasswordHash
	}

	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": now},
	}

	res, err := r.coll.UpdateOne(
		ctx,
		bson.M{"_id": account.ID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("save account: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("save account: %w", err)
	}

	if res.UpsertedCount > 0 {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	return nil
}

func (r *mongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	if res.DeletedCount == 0 {
		return fmt.Errorf("delete account: %w", core.ErrNotFound)
	}

	return nil
}

func (r *mongoRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("delete all accounts: %w", err)
	}

	return res.DeletedCount, nil
}
