package model

import "time"

// ContactSubmission is a message sent through the contact form.
type ContactSubmission struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Company    string    `json:"company,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Message    string    `json:"message"`
	LeadMagnet string    `json:"lead_magnet,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
