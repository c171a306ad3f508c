package organ

import (
	"crimson-backend/pkg/ledger"
	_ "embed"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

//go:embed organ.abi.json
var contractABI string

const ContractName = "OrganDonation"

var (
	ErrDonorAlreadyRegistered    = &ledger.RevertError{Name: "DonorAlreadyRegistered"}
	ErrDonorNotRegistered        = &ledger.RevertError{Name: "DonorNotRegistered"}
	ErrHospitalAlreadyRegistered = &ledger.RevertError{Name: "HospitalAlreadyRegistered"}
	ErrHospitalDoesNotExist      = &ledger.RevertError{Name: "HospitalDoesNotExist"}
	ErrNotNextOfKin              = &ledger.RevertError{Name: "NotNextOfKin"}
	ErrRequestAlreadyExists      = &ledger.RevertError{Name: "RequestAlreadyExists"}
)

// Invalidations lists the reads each OrganDonation write makes stale.
// Donor records are keyed by the wallet that registered them.
var Invalidations = ledger.Table{
	"registerHospital": {
		{Function: "getAllHospitals"},
	},
	"registerDonor": {
		{Function: "getDonor", Links: []ledger.ArgLink{{Read: 0, Write: ledger.Sender}}},
		{Function: "isOrganAvailable", Links: []ledger.ArgLink{{Read: 0, Write: ledger.Sender}}},
	},
	"approveAsDonor": {
		{Function: "getDonor", Links: []ledger.ArgLink{{Read: 0, Write: 0}}},
		{Function: "isOrganAvailable", Links: []ledger.ArgLink{{Read: 0, Write: 0}}},
	},
	"createOrganRequest": {
		{Function: "getAllRequests"},
	},
}

func NewContract(address common.Address) (*ledger.Contract, error) {
	return ledger.NewContract(ContractName, address, contractABI)
}

type Hospital struct {
	Id              *big.Int
	Name            string
	City            string
	HospitalAddress common.Address
}

type Donor struct {
	Organs            []string
	NextOfKin         common.Address
	IsActive          bool
	NextOfKinApproval bool
	IpfsHealthRecords string
}

// Registered reports whether the record came from registerDonor rather than
// being the zero value the contract returns for unknown wallets.
func (d Donor) Registered() bool {
	return len(d.Organs) > 0 || d.NextOfKin != (common.Address{})
}

type Request struct {
	Id           *big.Int
	Recipient    common.Address
	OrganType    string
	BloodType    string
	UrgencyLevel *big.Int
	IsActive     bool
	MatchedDonor common.Address
	HospitalId   *big.Int
}

type RequestCreated struct {
	ID           *big.Int
	HospitalID   *big.Int
	OrganType    string
	UrgencyLevel *big.Int
}

func ParseRequestCreated(c *ledger.Contract, receipt *types.Receipt) ([]RequestCreated, error) {
	logs, err := c.Events(receipt, "OrganRequestCreated")
	if err != nil {
		return nil, err
	}
	out := make([]RequestCreated, 0, len(logs))
	for _, l := range logs {
		out = append(out, RequestCreated{
			ID:           l["id"].(*big.Int),
			HospitalID:   l["hospitalId"].(*big.Int),
			OrganType:    l["organType"].(string),
			UrgencyLevel: l["urgencyLevel"].(*big.Int),
		})
	}
	return out, nil
}
