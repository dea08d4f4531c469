package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account is a platform user's wallet. Balance and TotalDeposit are in whole dong.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"` // canonical, lower-case
	Balance      int64     `json:"balance"`
	TotalDeposit int64     `json:"total_deposit"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
