package entities

import (
	"github.com/google/uuid"
)

// Transaction is the journal row of a tracked ledger write. Its ID is the
// tracker's id so every transition updates the same row.
type Transaction struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ChainID         uint64    `gorm:"index" json:"chain_id"`
	Contract        string    `gorm:"size:64" json:"contract"`
	ContractAddress string    `gorm:"size:42" json:"contract_address"`
	Function        string    `gorm:"size:64" json:"function"`
	Args            string    `gorm:"type:text" json:"args"`
	From            string    `gorm:"column:sender;size:42;index" json:"from"`
	Hash            string    `gorm:"size:66;index" json:"hash,omitempty"`
	Stage           string    `gorm:"size:16" json:"stage"` // pending, confirming, success, error
	BlockNumber     uint64    `json:"block_number,omitempty"`
	ErrorCause      string    `gorm:"size:32" json:"error_cause,omitempty"`
	ErrorMessage    string    `gorm:"type:text" json:"error_message,omitempty"`
	Abandoned       bool      `json:"abandoned"`
	CampID          string    `gorm:"size:78" json:"camp_id,omitempty"`
	TokenID         string    `gorm:"size:78" json:"token_id,omitempty"`
	NFTContract     string    `gorm:"size:42" json:"nft_contract,omitempty"`
	RequestID       string    `gorm:"size:78" json:"request_id,omitempty"`
	HospitalID      string    `gorm:"size:78" json:"hospital_id,omitempty"`
	Timestamp
}
