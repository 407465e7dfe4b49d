package models

import (
	"time"
)

// Profile is the consultant record attached to every user. UplineID forms the referral tree.
type Profile struct {
	ID             string    `json:"id" db:"id"`
	Email          string    `json:"email" db:"email"`
	FullName       string    `json:"full_name" db:"full_name"`
	Phone          *string   `json:"phone,omitempty" db:"phone"`
	RankName       string    `json:"rank_name" db:"rank_name"`
	PersonalVolume float64   `json:"personal_volume" db:"personal_volume"`
	GroupVolume    float64   `json:"group_volume" db:"group_volume"`
	TeamSize       int       `json:"team_size" db:"team_size"`
	ReferralCode   string    `json:"referral_code" db:"referral_code"`
	UplineID       *string   `json:"upline_id,omitempty" db:"upline_id"`
	AvatarURL      *string   `json:"avatar_url,omitempty" db:"avatar_url"`
	Address        Address   `json:"address"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Address is a postal address stored inline on profiles and sales.
type Address struct {
	Line1      string `json:"line1" db:"address_line1"`
	Line2      string `json:"line2" db:"address_line2"`
	City       string `json:"city" db:"city"`
	Province   string `json:"province" db:"province"`
	PostalCode string `json:"postal_code" db:"postal_code"`
	Country    string `json:"country" db:"country"`
}

// IsZero reports whether no address line was given.
func (a Address) IsZero() bool {
	return a.Line1 == "" && a.City == "" && a.PostalCode == ""
}

// UpdateProfileRequest carries the consultant-editable profile fields.
type UpdateProfileRequest struct {
	FullName  *string  `json:"full_name,omitempty" binding:"omitempty,min=2"`
	Phone     *string  `json:"phone,omitempty"`
	AvatarURL *string  `json:"avatar_url,omitempty"`
	Address   *Address `json:"address,omitempty"`
}

// AdminUpdateCustomerRequest lets admins edit a consultant, including a rank override.
type AdminUpdateCustomerRequest struct {
	UpdateProfileRequest
	RankName *string `json:"rank_name,omitempty"`
}

// CustomerListParams filters the admin customer list.
type CustomerListParams struct {
	ListParams
	Rank string `form:"rank"`
}

// CustomerSummary is a row of the admin customer list.
type CustomerSummary struct {
	Profile
	IsAdmin    bool    `json:"is_admin"`
	OrderCount int     `json:"order_count"`
	TotalSpent float64 `json:"total_spent"`
}

// CustomerListResponse is the paginated admin customer list.
type CustomerListResponse struct {
	Customers  []CustomerSummary `json:"customers"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}

// Dashboard is the consultant back-office overview.
type Dashboard struct {
	Profile          Profile      `json:"profile"`
	RankProgress     RankProgress `json:"rank_progress"`
	TotalEarned      float64      `json:"total_earned"`
	AvailableBalance float64      `json:"available_balance"`
	PendingPayouts   float64      `json:"pending_payouts"`
	DirectReferrals  int          `json:"direct_referrals"`
	RecentOrders     []Order      `json:"recent_orders"`
}
