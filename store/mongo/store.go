// Package mongo provides a MongoDB store implementation. The two commit
// methods run inside multi-document transactions, so checkout and refund
// reversal are atomic across collections. Requires a replica set or
// mongos (standalone servers do not support transactions).
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	storefront "github.com/xraph/storefront"
	"github.com/xraph/storefront/achievement"
	"github.com/xraph/storefront/cart"
	"github.com/xraph/storefront/id"
	"github.com/xraph/storefront/player"
	"github.com/xraph/storefront/purchase"
	"github.com/xraph/storefront/refund"
	storefrontstore "github.com/xraph/storefront/store"
)

// Collection name constants.
const (
	colCartItems      = "storefront_cart_items"
	colPurchases      = "storefront_purchases"
	colRefunds        = "storefront_refunds"
	colPlayers        = "storefront_players"
	colAchievements   = "storefront_achievements"
	colOwnershipCache = "storefront_ownership_cache"
)

// compile-time interface check
var _ storefrontstore.Store = (*Store)(nil)

// Store implements store.Store on the official MongoDB driver.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New creates a store on an existing client.
func New(client *mongo.Client, database string) *Store {
	return &Store{
		client: client,
		db:     client.Database(database),
	}
}

// Connect dials the given URI and returns a connected store.
func Connect(uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("storefront/mongo: connect: %w", err)
	}
	return New(client, database), nil
}

// DB returns the underlying database for direct access.
func (s *Store) DB() *mongo.Database { return s.db }

// Migrate creates indexes for all storefront collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("storefront/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// ==================== Cart Store ====================

func (s *Store) CartItems(ctx context.Context, userID string) ([]*cart.LineItem, error) {
	cursor, err := s.db.Collection(colCartItems).Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("storefront/mongo: list cart items: %w", err)
	}

	var models []cartItemModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("storefront/mongo: list cart items: %w", err)
	}

	items := make([]*cart.LineItem, len(models))
	for i := range models {
		item, err := fromCartItemModel(&models[i])
		if err != nil {
			return nil, err
		}
		items[i] = item
	}
	return items, nil
}

// AddCartItems inserts the lines as one batch; InsertMany is atomic per
// document but ordered, and the two-line DLC insert relies on the whole
// batch landing, so it runs in a transaction when more than one line is
// involved.
func (s *Store) AddCartItems(ctx context.Context, userID string, items []*cart.LineItem) error {
	docs := make([]interface{}, len(items))
	for i, item := range items {
		docs[i] = toCartItemModel(item)
	}

	if len(docs) == 1 {
		if _, err := s.db.Collection(colCartItems).InsertOne(ctx, docs[0]); err != nil {
			return fmt.Errorf("storefront/mongo: add cart item: %w", err)
		}
		return nil
	}

	return s.inTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.db.Collection(colCartItems).InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("storefront/mongo: add cart items: %w", err)
		}
		return nil
	})
}

func (s *Store) RemoveCartItem(ctx context.Context, userID string, itemID id.LineItemID) (*cart.LineItem, error) {
	var m cartItemModel
	err := s.db.Collection(colCartItems).FindOneAndDelete(ctx,
		bson.M{"_id": itemID.String(), "user_id": userID},
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, storefront.ErrItemNotFound
		}
		return nil, fmt.Errorf("storefront/mongo: remove cart item: %w", err)
	}
	return fromCartItemModel(&m)
}

func (s *Store) ClearCart(ctx context.Context, userID string) error {
	if _, err := s.db.Collection(colCartItems).DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("storefront/mongo: clear cart: %w", err)
	}
	return nil
}

// ==================== Purchase ledger ====================

func (s *Store) ListPurchases(ctx context.Context, userID string) ([]*purchase.Purchase, error) {
	cursor, err := s.db.Collection(colPurchases).Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("storefront/mongo: list purchases: %w", err)
	}

	var models []purchaseModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("storefront/mongo: list purchases: %w", err)
	}

	result := make([]*purchase.Purchase, len(models))
	for i := range models {
		p, err := fromPurchaseModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

func (s *Store) GetPurchase(ctx context.Context, purchaseID id.PurchaseID) (*purchase.Purchase, error) {
	var m purchaseModel
	err := s.db.Collection(colPurchases).FindOne(ctx, bson.M{"_id": purchaseID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, storefront.ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("storefront/mongo: get purchase: %w", err)
	}
	return fromPurchaseModel(&m)
}

func (s *Store) HasPaymentRef(ctx context.Context, paymentRef string) (bool, error) {
	count, err := s.db.Collection(colPurchases).CountDocuments(ctx,
		bson.M{"payment_ref": paymentRef},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("storefront/mongo: payment ref lookup: %w", err)
	}
	return count > 0, nil
}

// CommitCheckout runs the whole checkout batch in one transaction: the
// duplicate-entitlement guard, the ledger inserts, the player-document
// mutations, and the cart clear.
func (s *Store) CommitCheckout(ctx context.Context, c *purchase.Commit) error {
	return s.inTransaction(ctx, func(ctx context.Context) error {
		purchases := s.db.Collection(colPurchases)

		for _, entry := range c.Entries {
			count, err := purchases.CountDocuments(ctx, bson.M{
				"user_id":     c.UserID,
				"game_id":     entry.GameID.String(),
				"edition_id":  entry.EditionID.String(),
				"dlc_id":      entry.DLCID.String(),
				"refunded_at": nil,
			}, options.Count().SetLimit(1))
			if err != nil {
				return fmt.Errorf("storefront/mongo: entitlement guard: %w", err)
			}
			if count > 0 {
				return storefront.ErrAlreadyOwned
			}
		}

		docs := make([]interface{}, len(c.Entries))
		for i, entry := range c.Entries {
			docs[i] = toPurchaseModel(entry)
		}
		if _, err := purchases.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("storefront/mongo: insert purchases: %w", err)
		}

		libraryAdd := make([]string, len(c.LibraryAdd))
		for i, gameID := range c.LibraryAdd {
			libraryAdd[i] = gameID.String()
		}
		wishlistRemove := make([]string, len(c.WishlistRemove))
		for i, gameID := range c.WishlistRemove {
			wishlistRemove[i] = gameID.String()
		}

		update := bson.M{
			"$addToSet": bson.M{
				"library": bson.M{"$each": libraryAdd},
				"avatars": bson.M{"$each": c.AvatarGrant},
			},
			"$pull": bson.M{
				"wishlist": bson.M{"$in": wishlistRemove},
			},
			"$set":         bson.M{"updated_at": now()},
			"$setOnInsert": bson.M{"created_at": now()},
		}
		if _, err := s.db.Collection(colPlayers).UpdateOne(ctx,
			bson.M{"_id": c.UserID}, update,
			options.UpdateOne().SetUpsert(true),
		); err != nil {
			return fmt.Errorf("storefront/mongo: grant entitlements: %w", err)
		}

		if c.ClearCart {
			if _, err := s.db.Collection(colCartItems).DeleteMany(ctx, bson.M{"user_id": c.UserID}); err != nil {
				return fmt.Errorf("storefront/mongo: clear cart: %w", err)
			}
		}
		return nil
	})
}

// ==================== Refund Store ====================

func (s *Store) CreateRefund(ctx context.Context, r *refund.Request) error {
	_, err := s.db.Collection(colRefunds).InsertOne(ctx, toRefundModel(r))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storefront.ErrRefundRequested
		}
		return fmt.Errorf("storefront/mongo: create refund: %w", err)
	}
	return nil
}

func (s *Store) GetRefund(ctx context.Context, requestID id.RefundID) (*refund.Request, error) {
	var m refundModel
	err := s.db.Collection(colRefunds).FindOne(ctx, bson.M{"_id": requestID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, storefront.ErrRefundNotFound
		}
		return nil, fmt.Errorf("storefront/mongo: get refund: %w", err)
	}
	return fromRefundModel(&m)
}

func (s *Store) GetRefundByPurchase(ctx context.Context, purchaseID id.PurchaseID) (*refund.Request, error) {
	var m refundModel
	err := s.db.Collection(colRefunds).FindOne(ctx, bson.M{"purchase_id": purchaseID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, storefront.ErrRefundNotFound
		}
		return nil, fmt.Errorf("storefront/mongo: get refund by purchase: %w", err)
	}
	return fromRefundModel(&m)
}

func (s *Store) ListRefunds(ctx context.Context, status refund.Status) ([]*refund.Request, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = string(status)
	}

	cursor, err := s.db.Collection(colRefunds).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("storefront/mongo: list refunds: %w", err)
	}

	var models []refundModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("storefront/mongo: list refunds: %w", err)
	}

	result := make([]*refund.Request, len(models))
	for i := range models {
		r, err := fromRefundModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// CommitDecision resolves a pending request transactionally. The status
// transition doubles as the concurrency guard: only the update that moves
// the document out of pending applies the reversal.
func (s *Store) CommitDecision(ctx context.Context, c *refund.Commit) error {
	return s.inTransaction(ctx, func(ctx context.Context) error {
		status := refund.StatusApproved
		if c.Decision == refund.DecisionReject {
			status = refund.StatusRejected
		}

		t := now()
		res, err := s.db.Collection(colRefunds).UpdateOne(ctx,
			bson.M{"_id": c.RequestID.String(), "status": string(refund.StatusPending)},
			bson.M{"$set": bson.M{
				"status":     string(status),
				"note":       c.Note,
				"decided_at": t,
				"updated_at": t,
			}},
		)
		if err != nil {
			return fmt.Errorf("storefront/mongo: resolve refund: %w", err)
		}
		if res.MatchedCount == 0 {
			count, err := s.db.Collection(colRefunds).CountDocuments(ctx,
				bson.M{"_id": c.RequestID.String()}, options.Count().SetLimit(1))
			if err != nil {
				return fmt.Errorf("storefront/mongo: resolve refund: %w", err)
			}
			if count == 0 {
				return storefront.ErrRefundNotFound
			}
			return storefront.ErrRefundResolved
		}

		if c.Decision == refund.DecisionReject {
			return nil
		}

		if _, err := s.db.Collection(colPurchases).UpdateOne(ctx,
			bson.M{"_id": c.PurchaseID.String()},
			bson.M{"$set": bson.M{"refunded_at": t, "updated_at": t}},
		); err != nil {
			return fmt.Errorf("storefront/mongo: stamp purchase: %w", err)
		}

		update := bson.M{"$set": bson.M{"updated_at": t}}
		if len(c.LibraryRemove) > 0 {
			remove := make([]string, len(c.LibraryRemove))
			for i, gameID := range c.LibraryRemove {
				remove[i] = gameID.String()
			}
			update["$pull"] = bson.M{"library": bson.M{"$in": remove}}
		}
		if c.RewriteInventory {
			avatars := c.InventoryAvatars
			if avatars == nil {
				avatars = []string{}
			}
			update["$set"].(bson.M)["avatars"] = avatars
		}
		if _, err := s.db.Collection(colPlayers).UpdateOne(ctx,
			bson.M{"_id": c.UserID}, update,
			options.UpdateOne().SetUpsert(true),
		); err != nil {
			return fmt.Errorf("storefront/mongo: reverse entitlements: %w", err)
		}

		if len(c.RevokeAchievements) > 0 {
			if _, err := s.db.Collection(colAchievements).DeleteMany(ctx, bson.M{
				"user_id": c.UserID,
				"key":     bson.M{"$in": c.RevokeAchievements},
			}); err != nil {
				return fmt.Errorf("storefront/mongo: revoke achievements: %w", err)
			}
		}
		return nil
	})
}

// ==================== Player Store ====================

func (s *Store) GetProfile(ctx context.Context, userID string) (*player.Profile, error) {
	m, err := s.playerDoc(ctx, userID)
	if err != nil {
		return nil, err
	}
	if m == nil || !m.HasProfile {
		return nil, storefront.ErrNotFound
	}
	return fromPlayerProfile(m), nil
}

func (s *Store) PutProfile(ctx context.Context, p *player.Profile) error {
	t := now()
	_, err := s.db.Collection(colPlayers).UpdateOne(ctx,
		bson.M{"_id": p.UserID},
		bson.M{
			"$set": bson.M{
				"display_name": p.DisplayName,
				"bio":          p.Bio,
				"avatar_id":    p.AvatarID,
				"friend_count": p.FriendCount,
				"has_profile":  true,
				"updated_at":   t,
			},
			"$setOnInsert": bson.M{"created_at": t},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("storefront/mongo: put profile: %w", err)
	}
	return nil
}

func (s *Store) Library(ctx context.Context, userID string) ([]id.GameID, error) {
	m, err := s.playerDoc(ctx, userID)
	if err != nil || m == nil {
		return nil, err
	}
	return parseGameIDs(m.Library)
}

func (s *Store) Wishlist(ctx context.Context, userID string) ([]id.GameID, error) {
	m, err := s.playerDoc(ctx, userID)
	if err != nil || m == nil {
		return nil, err
	}
	return parseGameIDs(m.Wishlist)
}

func (s *Store) AddWishlist(ctx context.Context, userID string, gameID id.GameID) error {
	t := now()
	_, err := s.db.Collection(colPlayers).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$addToSet":    bson.M{"wishlist": gameID.String()},
			"$set":         bson.M{"updated_at": t},
			"$setOnInsert": bson.M{"created_at": t},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("storefront/mongo: add wishlist: %w", err)
	}
	return nil
}

func (s *Store) RemoveWishlist(ctx context.Context, userID string, gameID id.GameID) error {
	_, err := s.db.Collection(colPlayers).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$pull": bson.M{"wishlist": gameID.String()},
			"$set":  bson.M{"updated_at": now()},
		},
	)
	if err != nil {
		return fmt.Errorf("storefront/mongo: remove wishlist: %w", err)
	}
	return nil
}

func (s *Store) Inventory(ctx context.Context, userID string) (*player.Inventory, error) {
	m, err := s.playerDoc(ctx, userID)
	if err != nil {
		return nil, err
	}
	inv := &player.Inventory{}
	if m != nil {
		inv.Avatars = m.Avatars
		inv.Badges = m.Badges
	}
	return inv, nil
}

func (s *Store) GrantBadge(ctx context.Context, userID string, badgeID string) error {
	t := now()
	_, err := s.db.Collection(colPlayers).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$addToSet":    bson.M{"badges": badgeID},
			"$set":         bson.M{"updated_at": t},
			"$setOnInsert": bson.M{"created_at": t},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("storefront/mongo: grant badge: %w", err)
	}
	return nil
}

// ==================== Achievement Store ====================

func (s *Store) ListAchievements(ctx context.Context, userID string) ([]*achievement.UserAchievement, error) {
	cursor, err := s.db.Collection(colAchievements).Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("storefront/mongo: list achievements: %w", err)
	}

	var models []achievementModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("storefront/mongo: list achievements: %w", err)
	}

	result := make([]*achievement.UserAchievement, len(models))
	for i := range models {
		result[i] = fromAchievementModel(&models[i])
	}
	return result, nil
}

// GrantAchievement is idempotent: the composite _id makes a duplicate
// grant a no-op.
func (s *Store) GrantAchievement(ctx context.Context, ua *achievement.UserAchievement) error {
	_, err := s.db.Collection(colAchievements).InsertOne(ctx, toAchievementModel(ua))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("storefront/mongo: grant achievement: %w", err)
	}
	return nil
}

func (s *Store) RevokeAchievements(ctx context.Context, userID string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.db.Collection(colAchievements).DeleteMany(ctx, bson.M{
		"user_id": userID,
		"key":     bson.M{"$in": keys},
	})
	if err != nil {
		return fmt.Errorf("storefront/mongo: revoke achievements: %w", err)
	}
	return nil
}

// ==================== Ownership cache ====================

func (s *Store) GetCachedOwnership(ctx context.Context, userID, targetKey string) (bool, error) {
	var m ownershipCacheModel
	err := s.db.Collection(colOwnershipCache).FindOne(ctx,
		bson.M{"_id": ownershipDocID(userID, targetKey)},
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return false, storefront.ErrCacheMiss
		}
		return false, fmt.Errorf("storefront/mongo: ownership cache get: %w", err)
	}
	// The TTL monitor only sweeps periodically; treat lapsed entries as
	// misses ourselves.
	if now().After(m.ExpiresAt) {
		return false, storefront.ErrCacheMiss
	}
	return m.Owned, nil
}

func (s *Store) SetCachedOwnership(ctx context.Context, userID, targetKey string, owned bool, ttl time.Duration) error {
	doc := &ownershipCacheModel{
		ID:        ownershipDocID(userID, targetKey),
		UserID:    userID,
		Owned:     owned,
		ExpiresAt: now().Add(ttl),
	}
	_, err := s.db.Collection(colOwnershipCache).ReplaceOne(ctx,
		bson.M{"_id": doc.ID}, doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("storefront/mongo: ownership cache set: %w", err)
	}
	return nil
}

func (s *Store) InvalidateOwnership(ctx context.Context, userID string) error {
	_, err := s.db.Collection(colOwnershipCache).DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("storefront/mongo: ownership cache invalidate: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

// inTransaction runs fn inside a session transaction.
func (s *Store) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("storefront/mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, fn(ctx)
	})
	return err
}

func (s *Store) playerDoc(ctx context.Context, userID string) (*playerModel, error) {
	var m playerModel
	err := s.db.Collection(colPlayers).FindOne(ctx, bson.M{"_id": userID}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("storefront/mongo: get player: %w", err)
	}
	return &m, nil
}

func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all storefront collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colCartItems: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colPurchases: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{
				Keys:    bson.D{{Key: "payment_ref", Value: 1}},
				Options: options.Index().SetSparse(true),
			},
		},
		colRefunds: {
			{
				Keys:    bson.D{{Key: "purchase_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colAchievements: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		colOwnershipCache: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			{
				Keys:    bson.D{{Key: "expires_at", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(0),
			},
		},
	}
}
