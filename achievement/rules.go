package achievement

// DefaultRules returns the built-in rule set. The list is fixed at engine
// construction; callers can replace or extend it via the engine option.
func DefaultRules() []Rule {
	return []Rule{
		{
			Key:     "first_purchase",
			Name:    "First Steps",
			BadgeID: "badge_first_purchase",
			Predicate: func(s *Snapshot) bool {
				return len(s.ActivePurchases()) == 1
			},
		},
		{
			Key:     "buy_5_games",
			Name:    "Collector",
			BadgeID: "badge_collector",
			Predicate: func(s *Snapshot) bool {
				return s.DistinctGames() >= 5
			},
		},
		{
			Key:     "dlc_purchase",
			Name:    "Going Deeper",
			BadgeID: "badge_dlc",
			Predicate: func(s *Snapshot) bool {
				for _, p := range s.ActivePurchases() {
					if !p.DLCID.IsNil() {
						return true
					}
				}
				return false
			},
		},
		{
			Key:     "edition_collector",
			Name:    "Deluxe Taste",
			BadgeID: "badge_deluxe",
			Predicate: func(s *Snapshot) bool {
				for _, p := range s.ActivePurchases() {
					if !p.EditionID.IsNil() {
						return true
					}
				}
				return false
			},
		},
		{
			Key:     "buy_3_genres",
			Name:    "Explorer",
			BadgeID: "badge_explorer",
			Predicate: func(s *Snapshot) bool {
				return s.DistinctGenres() >= 3
			},
		},
		{
			Key:     "avatars_10",
			Name:    "Wardrobe",
			BadgeID: "badge_wardrobe",
			Predicate: func(s *Snapshot) bool {
				return s.Inventory != nil && len(s.Inventory.Avatars) >= 10
			},
		},
		{
			Key:  "profile_complete",
			Name: "Introduce Yourself",
			Predicate: func(s *Snapshot) bool {
				p := s.Profile
				return p != nil && p.DisplayName != "" && p.Bio != "" && p.AvatarID != ""
			},
		},
		{
			Key:     "well_connected",
			Name:    "Well Connected",
			BadgeID: "badge_social",
			Predicate: func(s *Snapshot) bool {
				return s.Profile != nil && s.Profile.FriendCount >= 10
			},
		},
	}
}
