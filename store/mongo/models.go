package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/storefront/achievement"
	"github.com/xraph/storefront/cart"
	"github.com/xraph/storefront/id"
	"github.com/xraph/storefront/player"
	"github.com/xraph/storefront/purchase"
	"github.com/xraph/storefront/refund"
	"github.com/xraph/storefront/types"
)

// ==================== Cart models ====================

type cartItemModel struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	GameID    string    `bson:"game_id"`
	EditionID string    `bson:"edition_id"`
	DLCID     string    `bson:"dlc_id"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toCartItemModel(item *cart.LineItem) *cartItemModel {
	return &cartItemModel{
		ID:        item.ID.String(),
		UserID:    item.UserID,
		GameID:    item.GameID.String(),
		EditionID: item.EditionID.String(),
		DLCID:     item.DLCID.String(),
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

func fromCartItemModel(m *cartItemModel) (*cart.LineItem, error) {
	itemID, err := id.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("storefront/mongo: cart item %q: %w", m.ID, err)
	}
	gameID, err := id.Parse(m.GameID)
	if err != nil {
		return nil, fmt.Errorf("storefront/mongo: cart item %q: %w", m.ID, err)
	}

	item := &cart.LineItem{
		ID:     itemID,
		UserID: m.UserID,
		GameID: gameID,
	}
	item.CreatedAt = m.CreatedAt
	item.UpdatedAt = m.UpdatedAt

	if m.EditionID != "" {
		if item.EditionID, err = id.Parse(m.EditionID); err != nil {
			return nil, fmt.Errorf("storefront/mongo: cart item %q: %w", m.ID, err)
		}
	}
	if m.DLCID != "" {
		if item.DLCID, err = id.Parse(m.DLCID); err != nil {
			return nil, fmt.Errorf("storefront/mongo: cart item %q: %w", m.ID, err)
		}
	}
	return item, nil
}

// ==================== Purchase models ====================

type purchaseModel struct {
	ID            string     `bson:"_id"`
	UserID        string     `bson:"user_id"`
	GameID        string     `bson:"game_id"`
	EditionID     string     `bson:"edition_id"`
	EditionName   string     `bson:"edition_name,omitempty"`
	DLCID         string     `bson:"dlc_id"`
	PriceAmount   int64      `bson:"price_amount"`
	PriceCurrency string     `bson:"price_currency"`
	PaymentRef    string     `bson:"payment_ref,omitempty"`
	RefundedAt    *time.Time `bson:"refunded_at,omitempty"`
	CreatedAt     time.Time  `bson:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at"`
}

func toPurchaseModel(p *purchase.Purchase) *purchaseModel {
	return &purchaseModel{
		ID:            p.ID.String(),
		UserID:        p.UserID,
		GameID:        p.GameID.String(),
		EditionID:     p.EditionID.String(),
		EditionName:   p.EditionName,
		DLCID:         p.DLCID.String(),
		PriceAmount:   p.PricePaid.Amount,
		PriceCurrency: p.PricePaid.Currency,
		PaymentRef:    p.PaymentRef,
		RefundedAt:    p.RefundedAt,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func fromPurchaseModel(m *purchaseModel) (*purchase.Purchase, error) {
	purchaseID, err := id.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("storefront/mongo: purchase %q: %w", m.ID, err)
	}
	gameID, err := id.Parse(m.GameID)
	if err != nil {
		return nil, fmt.Errorf("storefront/mongo: purchase %q: %w", m.ID, err)
	}

	p := &purchase.Purchase{
		ID:          purchaseID,
		UserID:      m.UserID,
		GameID:      gameID,
		EditionName: m.EditionName,
		PricePaid:   types.Money{Amount: m.PriceAmount, Currency: m.PriceCurrency},
		PaymentRef:  m.PaymentRef,
		RefundedAt:  m.RefundedAt,
	}
	p.CreatedAt = m.CreatedAt
	p.UpdatedAt = m.UpdatedAt

	if m.EditionID != "" {
		if p.EditionID, err = id.Parse(m.EditionID); err != nil {
			return nil, fmt.Errorf("storefront/mongo: purchase %q: %w", m.ID, err)
		}
	}
	if m.DLCID != "" {
		if p.DLCID, err = id.Parse(m.DLCID); err != nil {
			return nil, fmt.Errorf("storefront/mongo: purchase %q: %w", m.ID, err)
		}
	}
	return p, nil
}

// ==================== Refund models ====================

type refundModel struct {
	ID         string     `bson:"_id"`
	UserID     string     `bson:"user_id"`
	PurchaseID string     `bson:"purchase_id"`
	Reason     string     `bson:"reason,omitempty"`
	Status     string     `bson:"status"`
	Note       string     `bson:"note,omitempty"`
	DecidedAt  *time.Time `bson:"decided_at,omitempty"`
	CreatedAt  time.Time  `bson:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at"`
}

func toRefundModel(r *refund.Request) *refundModel {
	return &refundModel{
		ID:         r.ID.String(),
		UserID:     r.UserID,
		PurchaseID: r.PurchaseID.String(),
		Reason:     r.Reason,
		Status:     string(r.Status),
		Note:       r.Note,
		DecidedAt:  r.DecidedAt,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func fromRefundModel(m *refundModel) (*refund.Request, error) {
	requestID, err := id.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("storefront/mongo: refund %q: %w", m.ID, err)
	}
	purchaseID, err := id.Parse(m.PurchaseID)
	if err != nil {
		return nil, fmt.Errorf("storefront/mongo: refund %q: %w", m.ID, err)
	}

	r := &refund.Request{
		ID:         requestID,
		UserID:     m.UserID,
		PurchaseID: purchaseID,
		Reason:     m.Reason,
		Status:     refund.Status(m.Status),
		Note:       m.Note,
		DecidedAt:  m.DecidedAt,
	}
	r.CreatedAt = m.CreatedAt
	r.UpdatedAt = m.UpdatedAt
	return r, nil
}

// ==================== Player models ====================

// playerModel is one document per user holding the profile fields plus the
// commerce-owned collections (library, wishlist, inventory).
type playerModel struct {
	UserID      string    `bson:"_id"`
	DisplayName string    `bson:"display_name,omitempty"`
	Bio         string    `bson:"bio,omitempty"`
	AvatarID    string    `bson:"avatar_id,omitempty"`
	FriendCount int       `bson:"friend_count,omitempty"`
	HasProfile  bool      `bson:"has_profile"`
	Library     []string  `bson:"library,omitempty"`
	Wishlist    []string  `bson:"wishlist,omitempty"`
	Avatars     []string  `bson:"avatars,omitempty"`
	Badges      []string  `bson:"badges,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func fromPlayerProfile(m *playerModel) *player.Profile {
	p := &player.Profile{
		UserID:      m.UserID,
		DisplayName: m.DisplayName,
		Bio:         m.Bio,
		AvatarID:    m.AvatarID,
		FriendCount: m.FriendCount,
	}
	p.CreatedAt = m.CreatedAt
	p.UpdatedAt = m.UpdatedAt
	return p
}

func parseGameIDs(raw []string) ([]id.GameID, error) {
	result := make([]id.GameID, 0, len(raw))
	for _, s := range raw {
		gameID, err := id.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("storefront/mongo: game id %q: %w", s, err)
		}
		result = append(result, gameID)
	}
	return result, nil
}

// ==================== Achievement models ====================

type achievementModel struct {
	ID       string    `bson:"_id"` // user_id + "/" + key
	UserID   string    `bson:"user_id"`
	Key      string    `bson:"key"`
	BadgeID  string    `bson:"badge_id,omitempty"`
	EarnedAt time.Time `bson:"earned_at"`
}

func achievementDocID(userID, key string) string {
	return userID + "/" + key
}

func toAchievementModel(ua *achievement.UserAchievement) *achievementModel {
	return &achievementModel{
		ID:       achievementDocID(ua.UserID, ua.Key),
		UserID:   ua.UserID,
		Key:      ua.Key,
		BadgeID:  ua.BadgeID,
		EarnedAt: ua.EarnedAt,
	}
}

func fromAchievementModel(m *achievementModel) *achievement.UserAchievement {
	return &achievement.UserAchievement{
		UserID:   m.UserID,
		Key:      m.Key,
		BadgeID:  m.BadgeID,
		EarnedAt: m.EarnedAt,
	}
}

// ==================== Ownership cache models ====================

type ownershipCacheModel struct {
	ID        string    `bson:"_id"` // user_id + "/" + target key
	UserID    string    `bson:"user_id"`
	Owned     bool      `bson:"owned"`
	ExpiresAt time.Time `bson:"expires_at"`
}

func ownershipDocID(userID, targetKey string) string {
	return userID + "/" + targetKey
}
