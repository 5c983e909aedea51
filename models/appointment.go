package models

import "time"

// Appointment lifecycle statuses.
const (
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Service types form a closed set; anything else is rejected at booking time.
const (
	ServiceMaintenance   = "maintenance"
	ServiceRepair        = "repair"
	ServiceReprogramming = "reprogramming"
)

// ValidServiceType reports whether s belongs to the closed service set.
func ValidServiceType(s string) bool {
	switch s {
	case ServiceMaintenance, ServiceRepair, ServiceReprogramming:
		return true
	}
	return false
}

// Vehicle describes the vehicle an appointment is for.
type Vehicle struct {
	Make  string `bson:"make" json:"make"`
	Model string `bson:"model" json:"model"`
	Plate string `bson:"plate" json:"plate"`
}

// Appointment represents a workshop appointment record.
// At most one appointment with status "confirmed" may exist per scheduled
// instant; the scheduler repository enforces this transactionally.
type Appointment struct {
	ID             string     `bson:"id" json:"id"`
	UserID         string     `bson:"user_id" json:"userId"`
	CustomerName   string     `bson:"customer_name" json:"customerName"`
	ServiceType    string     `bson:"service_type" json:"serviceType"`
	ScheduledAt    time.Time  `bson:"scheduled_at" json:"scheduledAt"`
	Vehicle        Vehicle    `bson:"vehicle" json:"vehicle"`
	Notes          string     `bson:"notes,omitempty" json:"notes,omitempty"`
	Status         string     `bson:"status" json:"status"`
	CreatedAt      time.Time  `bson:"created_at" json:"createdAt"`
	ReminderSent   bool       `bson:"reminder_sent" json:"reminderSent"`
	ReminderSentAt *time.Time `bson:"reminder_sent_at,omitempty" json:"reminderSentAt,omitempty"`
}

// Active reports whether the appointment can still be modified or cancelled.
func (a *Appointment) Active() bool {
	return a.Status == StatusConfirmed
}

// AppointmentChange carries the fields a caller may modify on an existing
// appointment. Nil means "leave unchanged".
type AppointmentChange struct {
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	ServiceType *string    `json:"serviceType,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	Vehicle     *Vehicle   `json:"vehicle,omitempty"`
}

// TimeSensitive reports whether the change touches a field protected by the
// modification window rule. Notes and vehicle edits are exempt.
func (c AppointmentChange) TimeSensitive() bool {
	return c.ScheduledAt != nil || c.ServiceType != nil
}

// Empty reports whether the change carries no fields at all.
func (c AppointmentChange) Empty() bool {
	return c.ScheduledAt == nil && c.ServiceType == nil && c.Notes == nil && c.Vehicle == nil
}

// BookingRequest is the validated input for creating an appointment.
type BookingRequest struct {
	UserID       string    `json:"userId"`
	CustomerName string    `json:"customerName"`
	ServiceType  string    `json:"serviceType"`
	ScheduledAt  time.Time `json:"scheduledAt"`
	Vehicle      Vehicle   `json:"vehicle"`
	Notes        string    `json:"notes,omitempty"`
}
