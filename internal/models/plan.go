package models

import "time"

// Plan is a catalogue entry customers subscribe their connections to.
type Plan struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Price        float64   `json:"price"`
	ChannelCount int       `json:"channel_count"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreatePlanRequest represents the request body for creating a plan
type CreatePlanRequest struct {
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	ChannelCount int     `json:"channel_count"`
}

// UpdatePlanRequest represents the request body for updating a plan
type UpdatePlanRequest struct {
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	ChannelCount int     `json:"channel_count"`
	IsActive     bool    `json:"is_active"`
}
