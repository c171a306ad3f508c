package bloodcamp

import (
	"crimson-backend/pkg/ledger"
	_ "embed"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

//go:embed bloodcamp.abi.json
var contractABI string

const ContractName = "BloodCamp"

var (
	ErrCampAlreadyExists = &ledger.RevertError{Name: "CampAlreadyExists"}
	ErrCampDoesNotExist  = &ledger.RevertError{Name: "CampDoesNotExist"}
	ErrCampNotOwner      = &ledger.RevertError{Name: "CampNotOwner"}
)

// Invalidations lists the reads each BloodCamp write makes stale.
var Invalidations = ledger.Table{
	"createCamp": {
		{Function: "getAllCamps"},
		{Function: "getCamp", Links: []ledger.ArgLink{{Read: 0, Write: 0}}},
	},
	"updateInventory": {
		{Function: "getInventory", Links: []ledger.ArgLink{{Read: 0, Write: 0}}},
	},
	"addDonatedUser": {
		{Function: "getDonatedUsers", Links: []ledger.ArgLink{{Read: 0, Write: 0}}},
	},
	"addRegisteredUser": {
		{Function: "getRegisteredUsers", Links: []ledger.ArgLink{{Read: 0, Write: 0}}},
	},
	"issueNFT": nil,
}

func NewContract(address common.Address) (*ledger.Contract, error) {
	return ledger.NewContract(ContractName, address, contractABI)
}

// Camp mirrors the BloodCamp.Camp tuple.
type Camp struct {
	Id        *big.Int
	Name      string
	Organizer string
	City      string
	Owner     common.Address
	Lat       string
	Long      string
}

type BloodType uint8

const (
	OPos BloodType = iota
	ONeg
	APos
	ANeg
	BPos
	BNeg
	ABPos
	ABNeg
)

var BloodTypes = []BloodType{OPos, ONeg, APos, ANeg, BPos, BNeg, ABPos, ABNeg}

var bloodTypeNames = [...]string{"O_POS", "O_NEG", "A_POS", "A_NEG", "B_POS", "B_NEG", "AB_POS", "AB_NEG"}

func (b BloodType) Valid() bool { return int(b) < len(bloodTypeNames) }

// Name is the ledger enum name, e.g. "AB_NEG".
func (b BloodType) Name() string {
	if !b.Valid() {
		return "UNKNOWN"
	}
	return bloodTypeNames[b]
}

// String is the display label, e.g. "AB-".
func (b BloodType) String() string {
	if !b.Valid() {
		return "?"
	}
	return strings.NewReplacer("_POS", "+", "_NEG", "-").Replace(bloodTypeNames[b])
}

// ParseBloodType accepts the enum name ("O_NEG"), the label ("O-") or the
// ordinal ("1").
func ParseBloodType(s string) (BloodType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if n, err := strconv.ParseUint(s, 10, 8); err == nil {
		if b := BloodType(n); b.Valid() {
			return b, nil
		}
		return 0, fmt.Errorf("blood type %q out of range", s)
	}
	for i, name := range bloodTypeNames {
		b := BloodType(i)
		if s == name || s == b.String() {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown blood type %q", s)
}

type Level string

const (
	// LevelUnknown is reported while the quantity has not been read, or the
	// read failed. It never stands for an empty shelf.
	LevelUnknown  Level = "unknown"
	LevelEmpty    Level = "empty"
	LevelCritical Level = "critical"
	LevelLow      Level = "low"
	LevelHealthy  Level = "healthy"
)

// StockLevel bands a quantity on a 0..100 unit gauge.
func StockLevel(qty *big.Int) (Level, int) {
	percent := 100
	if qty == nil || qty.Sign() <= 0 {
		percent = 0
	} else if qty.IsInt64() && qty.Int64() < 100 {
		percent = int(qty.Int64())
	}

	switch {
	case percent == 0:
		return LevelEmpty, percent
	case percent <= 20:
		return LevelCritical, percent
	case percent <= 50:
		return LevelLow, percent
	default:
		return LevelHealthy, percent
	}
}

type CampCreated struct {
	ID        *big.Int
	Name      string
	Organizer string
	City      string
	Owner     common.Address
}

type NFTIssued struct {
	CampID  *big.Int
	To      common.Address
	TokenID *big.Int
	URI     string
}

type InventoryUpdated struct {
	ID        *big.Int
	BloodType BloodType
	Quantity  *big.Int
}

func ParseCampCreated(c *ledger.Contract, receipt *types.Receipt) ([]CampCreated, error) {
	logs, err := c.Events(receipt, "CampCreated")
	if err != nil {
		return nil, err
	}
	out := make([]CampCreated, 0, len(logs))
	for _, l := range logs {
		out = append(out, CampCreated{
			ID:        l["id"].(*big.Int),
			Name:      l["name"].(string),
			Organizer: l["organizer"].(string),
			City:      l["city"].(string),
			Owner:     l["owner"].(common.Address),
		})
	}
	return out, nil
}

func ParseNFTIssued(c *ledger.Contract, receipt *types.Receipt) ([]NFTIssued, error) {
	logs, err := c.Events(receipt, "NFTIssued")
	if err != nil {
		return nil, err
	}
	out := make([]NFTIssued, 0, len(logs))
	for _, l := range logs {
		out = append(out, NFTIssued{
			CampID:  l["campId"].(*big.Int),
			To:      l["to"].(common.Address),
			TokenID: l["tokenId"].(*big.Int),
			URI:     l["uri"].(string),
		})
	}
	return out, nil
}

func ParseInventoryUpdated(c *ledger.Contract, receipt *types.Receipt) ([]InventoryUpdated, error) {
	logs, err := c.Events(receipt, "InventoryUpdated")
	if err != nil {
		return nil, err
	}
	out := make([]InventoryUpdated, 0, len(logs))
	for _, l := range logs {
		out = append(out, InventoryUpdated{
			ID:        l["id"].(*big.Int),
			BloodType: BloodType(l["bloodType"].(uint8)),
			Quantity:  l["quantity"].(*big.Int),
		})
	}
	return out, nil
}
