package models

import (
	"time"
)

// Rank is a compensation tier. Level orders tiers from lowest to highest.
type Rank struct {
	ID             int       `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Level          int       `json:"level" db:"level"`
	PVThreshold    float64   `json:"pv_threshold" db:"pv_threshold"`
	GVThreshold    float64   `json:"gv_threshold" db:"gv_threshold"`
	CommissionRate float64   `json:"commission_rate" db:"commission_rate"` // percent
	Version        int       `json:"version" db:"version"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// RankRequest is the admin create payload.
type RankRequest struct {
	Name           string   `json:"name" binding:"required"`
	Level          *int     `json:"level,omitempty" binding:"omitempty,min=1"`
	PVThreshold    float64  `json:"pv_threshold" binding:"min=0"`
	GVThreshold    float64  `json:"gv_threshold" binding:"min=0"`
	CommissionRate *float64 `json:"commission_rate" binding:"required,min=0,max=100"`
}

// UpdateRankRequest carries the version the admin edited, for optimistic concurrency.
type UpdateRankRequest struct {
	RankRequest
	Version int `json:"version" binding:"required,min=1"`
}

// MoveRankRequest moves a rank one step up or down the ordering.
type MoveRankRequest struct {
	Direction string `json:"direction" binding:"required,oneof=up down"`
}

// RankProgress describes how far a consultant is from the next rank.
type RankProgress struct {
	CurrentRank     *Rank   `json:"current_rank"`
	NextRank        *Rank   `json:"next_rank"`
	PersonalVolume  float64 `json:"personal_volume"`
	GroupVolume     float64 `json:"group_volume"`
	PVProgress      float64 `json:"pv_progress"`
	GVProgress      float64 `json:"gv_progress"`
	OverallProgress float64 `json:"overall_progress"`
	PVRemaining     float64 `json:"pv_remaining"`
	GVRemaining     float64 `json:"gv_remaining"`
}
