package model

// All lists every persisted model, in migration order.
func All() []any {
	return []any{
		&OrderHistory{},
		&HistoryItem{},
		&TableOTP{},
		&ActiveOrder{},
		&Allocation{},
		&Verification{},
		&PushSubscription{},
	}
}
