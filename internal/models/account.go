package models

import "time"

type Account struct {
	ID        string    `json:"id"`
	Balance   int64     `json:"balance"`
	Blocked   bool      `json:"blocked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Deposit is an on-chain transfer credited to a ledger account.
type Deposit struct {
	ID        int64     `json:"id"`
	AccountID string    `json:"account_id"`
	Amount    int64     `json:"amount"`
	TxRef     string    `json:"tx_ref"`
	FromAddr  string    `json:"from_addr"`
	CreatedAt time.Time `json:"created_at"`
}
