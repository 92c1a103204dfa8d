package models

// All lists every table the application owns, in dependency order.
func All() []interface{} {
	return []interface{}{
		&Renter{},
		&Unit{},
		&Lease{},
		&Invoice{},
		&Payment{},
		&NotificationLog{},
		&NotificationTemplate{},
		&TaskLog{},
	}
}
