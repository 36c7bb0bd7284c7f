package models

// All lists every persisted model in dependency order for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&LoyaltyProfile{},
		&Category{},
		&MenuItem{},
		&NewsPost{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&Reward{},
		&RewardRedemption{},
		&StagedBenefit{},
	}
}
