package service

import (
	"regexp"
	"strings"

	"wallet-reconciler/internal/core/domain"

	"github.com/shopspring/decimal"
)

// Classification is the classifier's verdict on one feed line.
type Classification int

const (
	// Eligible lines continue to the memo parser.
	Eligible Classification = iota
	// NotCredit lines are debits or otherwise not incoming money.
	NotCredit
	// Unparsable lines carry an amount that is not a positive number.
	Unparsable
	// BelowMinimum lines are credits smaller than the configured minimum.
	BelowMinimum
)

func (c Classification) String() string {
	switch c {
	case Eligible:
		return "eligible"
	case NotCredit:
		return "not_credit"
	case Unparsable:
		return "unparsable"
	case BelowMinimum:
		return "below_minimum"
	}
	return "unknown"
}

// Classify decides whether a feed line is a creditable deposit and returns
// its amount in whole dong.
func Classify(tx *domain.FeedTransaction, minAmount int64) (int64, Classification) {
	if !tx.IsCredit() {
		return 0, NotCredit
	}
	amount, ok := ParseAmount(tx.Amount)
	if !ok {
		return 0, Unparsable
	}
	if amount < minAmount {
		return amount, BelowMinimum
	}
	return amount, Eligible
}

// ParseAmount converts a feed amount such as "1,500,000" or "20000.00" into
// whole dong. Grouping commas are removed and any fraction is truncated.
// ok is false for non-numeric, zero or negative amounts.
func ParseAmount(raw string) (int64, bool) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if !plainAmountRe.MatchString(cleaned) {
		return 0, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, false
	}
	d = d.Truncate(0)
	if !d.IsPositive() {
		return 0, false
	}
	// Reject values that do not fit in int64.
	if d.GreaterThan(decimal.NewFromInt(maxAmount)) {
		return 0, false
	}
	return d.IntPart(), true
}

// plainAmountRe admits digits with an optional fraction. Signs, exponents and
// currency suffixes are rejected so a noisy feed cannot scale an amount.
var plainAmountRe = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// maxAmount bounds a single credit well below int64 overflow of balances.
const maxAmount int64 = 1 << 53
