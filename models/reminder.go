package models

// ReminderPayload is the task payload carried on the reminder sweep queue.
type ReminderPayload struct {
	// FiredAt is the wall-clock instant the trigger fired, RFC 3339.
	FiredAt string `json:"firedAt"`
}
