// Package domain provides core domain models and types.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category represents the type of tradable instrument
type Category string

const (
	CategoryStock      Category = "stock"
	CategoryMutualFund Category = "mutual_fund"
	CategoryETF        Category = "etf"
	CategoryBond       Category = "bond"
)

// Direction represents the side of a trade
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// TransactionStatus represents the lifecycle state of a transaction record
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusCancelled TransactionStatus = "cancelled"
)

// Account represents one user's tradable cash balance.
// WalletBalance never goes negative; the purchase engine enforces this
// inside the atomic unit before any debit is committed.
type Account struct {
	ID            string          `json:"id"`
	WalletBalance decimal.Decimal `json:"walletBalance"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Instrument is a tradable product. The purchase engine treats it as
// read-only input, snapshotting PricePerUnit at purchase time.
type Instrument struct {
	ID           string          `json:"id"`
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Category     Category        `json:"category"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	IsActive     bool            `json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Holding is a user's aggregated position in one instrument.
// (UserID, InstrumentID) is unique: at most one holding per pair.
// TotalInvested always equals TotalUnits × AveragePrice and is recomputed
// on every mutation.
type Holding struct {
	ID              int64           `json:"-"`
	UserID          string          `json:"userId"`
	InstrumentID    string          `json:"instrumentId"`
	TotalUnits      decimal.Decimal `json:"totalUnits"`
	AveragePrice    decimal.Decimal `json:"averagePrice"`
	TotalInvested   decimal.Decimal `json:"totalInvested"`
	FirstAcquiredAt time.Time       `json:"firstAcquiredAt"`
	LastUpdated     time.Time       `json:"lastUpdated"`
}

// TransactionRecord is an immutable audit entry for one trade.
type TransactionRecord struct {
	ID           string            `json:"transactionId"`
	UserID       string            `json:"userId"`
	InstrumentID string            `json:"instrumentId"`
	Direction    Direction         `json:"direction"`
	Units        decimal.Decimal   `json:"units"`
	UnitPrice    decimal.Decimal   `json:"unitPrice"`
	TotalAmount  decimal.Decimal   `json:"totalAmount"`
	Status       TransactionStatus `json:"status"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// Quote is a point-in-time price snapshot for an instrument.
// It is what the pricing source hands to read-side consumers; the purchase
// engine always reads the instrument record directly.
type Quote struct {
	InstrumentID string          `json:"instrumentId"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	IsActive     bool            `json:"isActive"`
	FetchedAt    time.Time       `json:"fetchedAt"`
}
