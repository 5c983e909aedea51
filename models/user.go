package models

import "time"

// User roles. Agenda managers and admins bypass the modification window rule.
const (
	RoleCustomer      = "customer"
	RoleAgendaManager = "agenda_manager"
	RoleAdmin         = "admin"
)

// NotificationPrefs holds per-channel opt-in flags.
type NotificationPrefs struct {
	Reminders  bool `bson:"reminders" json:"reminders"`
	Promotions bool `bson:"promotions" json:"promotions"`
}

// User represents a garage customer or staff member. Authentication and
// registration live in a separate service; this record carries what the
// scheduling core needs: role, push delivery address, opt-ins and the
// cached loyalty balance.
type User struct {
	ID                string            `bson:"id" json:"id"`
	Name              string            `bson:"name" json:"name"`
	Email             string            `bson:"email" json:"email"`
	Role              string            `bson:"role" json:"role"`
	FCMToken          string            `bson:"fcm_token,omitempty" json:"-"`
	NotificationPrefs NotificationPrefs `bson:"notification_prefs" json:"notificationPrefs"`
	LoyaltyPoints     int64             `bson:"loyalty_points" json:"loyaltyPoints"`
	CreatedAt         time.Time         `bson:"created_at" json:"createdAt"`
}

// Privileged reports whether the user's role bypasses the 24-hour
// modification rule.
func (u *User) Privileged() bool {
	return u.Role == RoleAgendaManager || u.Role == RoleAdmin
}
