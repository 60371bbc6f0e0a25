package models

import "time"

// Contact is a CRM contact used to resolve addresses to people.
type Contact struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Company         string     `json:"company"`
	Phone           string     `json:"phone"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastContactedAt *time.Time `json:"lastContactedAt"`
}
