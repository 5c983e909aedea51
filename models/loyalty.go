package models

import "time"

// Loyalty transaction types.
const (
	LoyaltyAppointmentCredit = "appointment_credit"
	LoyaltyManualAdjustment  = "manual_adjustment"
	LoyaltyRedemption        = "redemption"
	LoyaltyBonus             = "bonus"
)

// LoyaltyTransaction is a single entry in the append-only points ledger.
// Entries are never mutated or deleted; the user's displayed balance is the
// running sum, cached on the user record and updated in the same atomic
// unit as the insert.
type LoyaltyTransaction struct {
	ID            string    `bson:"id" json:"id"`
	UserID        string    `bson:"user_id" json:"userId"`
	Points        int64     `bson:"points" json:"points"`
	Type          string    `bson:"type" json:"type"`
	Reason        string    `bson:"reason" json:"reason"`
	AppointmentID string    `bson:"appointment_id,omitempty" json:"appointmentId,omitempty"`
	RewardID      string    `bson:"reward_id,omitempty" json:"rewardId,omitempty"`
	ActorID       string    `bson:"actor_id,omitempty" json:"actorId,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"createdAt"`
}
