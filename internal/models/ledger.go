package models

import (
	"time"
)

// BonusTypeDirect is a commission paid to the direct upline of a buyer.
const BonusTypeDirect = "direct"

// Bonus is a row of the commission ledger
type Bonus struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	SourceUserID *string   `json:"source_user_id,omitempty" db:"source_user_id"`
	SaleID       *string   `json:"sale_id,omitempty" db:"sale_id"`
	Amount       float64   `json:"amount" db:"amount"`
	BonusType    string    `json:"bonus_type" db:"bonus_type"`
	Description  string    `json:"description" db:"description"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// WithdrawalStatus is the state of a withdrawal request
type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
	WithdrawalPaid     WithdrawalStatus = "paid"
)

var withdrawalTransitions = map[WithdrawalStatus][]WithdrawalStatus{
	WithdrawalPending:  {WithdrawalApproved, WithdrawalRejected},
	WithdrawalApproved: {WithdrawalPaid},
}

// IsValid checks if the status is a known value
func (s WithdrawalStatus) IsValid() bool {
	switch s {
	case WithdrawalPending, WithdrawalApproved, WithdrawalRejected, WithdrawalPaid:
		return true
	}
	return false
}

// CanTransitionTo reports whether the withdrawal state machine allows s → next.
func (s WithdrawalStatus) CanTransitionTo(next WithdrawalStatus) bool {
	for _, allowed := range withdrawalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Withdrawal is a payout request, stored in the transactions table
type Withdrawal struct {
	ID            string           `json:"id" db:"id"`
	UserID        string           `json:"user_id" db:"user_id"`
	Amount        float64          `json:"amount" db:"amount"`
	Status        WithdrawalStatus `json:"status" db:"status"`
	BankName      string           `json:"bank_name" db:"bank_name"`
	AccountHolder string           `json:"account_holder" db:"account_holder"`
	AccountNumber string           `json:"account_number" db:"account_number"`
	Notes         *string          `json:"notes,omitempty" db:"notes"`
	ProcessedBy   *string          `json:"processed_by,omitempty" db:"processed_by"`
	ProcessedAt   *time.Time       `json:"processed_at,omitempty" db:"processed_at"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`

	UserEmail string `json:"user_email,omitempty"`
	UserName  string `json:"user_name,omitempty"`
}

// MaskedAccount hides all but the last four digits of the account number.
func (w Withdrawal) MaskedAccount() string {
	n := len(w.AccountNumber)
	if n <= 4 {
		return w.AccountNumber
	}
	masked := make([]byte, n)
	for i := range masked {
		if i < n-4 {
			masked[i] = '*'
		} else {
			masked[i] = w.AccountNumber[i]
		}
	}
	return string(masked)
}

// WithdrawalRequest is the consultant payout request payload.
type WithdrawalRequest struct {
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	BankName      string  `json:"bank_name" binding:"required"`
	AccountHolder string  `json:"account_holder" binding:"required"`
	AccountNumber string  `json:"account_number" binding:"required,min=4,max=34"`
}

// UpdateWithdrawalStatusRequest is the admin processing payload.
type UpdateWithdrawalStatusRequest struct {
	Status WithdrawalStatus `json:"status" binding:"required"`
	Notes  string           `json:"notes,omitempty"`
}

// WithdrawalListParams filters the admin withdrawal list.
type WithdrawalListParams struct {
	ListParams
	Status string `form:"status"`
	UserID string `form:"user_id"`
}

// WithdrawalListResponse is a paginated withdrawal page.
type WithdrawalListResponse struct {
	Withdrawals []Withdrawal `json:"withdrawals"`
	Total       int          `json:"total"`
	Page        int          `json:"page"`
	Limit       int          `json:"limit"`
	TotalPages  int          `json:"total_pages"`
}

// Balance summarises a consultant's earnings.
type Balance struct {
	TotalEarned    float64 `json:"total_earned"`
	Withdrawn      float64 `json:"withdrawn"`
	PendingPayouts float64 `json:"pending_payouts"`
	Available      float64 `json:"available"`
}
