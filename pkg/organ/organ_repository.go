package organ

import (
	"context"
	"crimson-backend/domain"
	"crimson-backend/pkg/ledger"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type (
	OrganRepository interface {
		Contract() *ledger.Contract
		GetAllHospitals(ctx context.Context) ([]Hospital, error)
		GetAllRequests(ctx context.Context) ([]Request, error)
		GetDonor(ctx context.Context, donor common.Address) (Donor, error)
		IsOrganAvailable(ctx context.Context, donor common.Address, organ string) (bool, error)

		RegisterHospital(ctx context.Context, id *big.Int, name, city string) (*ledger.Tx, error)
		CreateOrganRequest(ctx context.Context, hospitalID, requestID *big.Int, organType, bloodType string, urgency *big.Int, recipient common.Address) (*ledger.Tx, error)
		RegisterDonorCall(organs []string, nextOfKin common.Address, healthRecords string) (ledger.Call, error)
		ApproveDonorCall(donor common.Address) (ledger.Call, error)
		Outcome(ctx context.Context, receipt *types.Receipt) (domain.TxOutcome, error)
	}

	organRepository struct {
		ledger   *ledger.Ledger
		contract *ledger.Contract
	}
)

func NewOrganRepository(l *ledger.Ledger, contract *ledger.Contract) (OrganRepository, error) {
	if err := l.Register(contract, Invalidations); err != nil {
		return nil, err
	}
	return &organRepository{ledger: l, contract: contract}, nil
}

func (r *organRepository) Contract() *ledger.Contract {
	return r.contract
}

func (r *organRepository) GetAllHospitals(ctx context.Context) ([]Hospital, error) {
	out, err := r.ledger.Read(ctx, r.contract, "getAllHospitals")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]Hospital)).(*[]Hospital), nil
}

func (r *organRepository) GetAllRequests(ctx context.Context) ([]Request, error) {
	out, err := r.ledger.Read(ctx, r.contract, "getAllRequests")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]Request)).(*[]Request), nil
}

func (r *organRepository) GetDonor(ctx context.Context, donor common.Address) (Donor, error) {
	out, err := r.ledger.Read(ctx, r.contract, "getDonor", donor)
	if err != nil {
		return Donor{}, err
	}
	return *abi.ConvertType(out[0], new(Donor)).(*Donor), nil
}

func (r *organRepository) IsOrganAvailable(ctx context.Context, donor common.Address, organ string) (bool, error) {
	out, err := r.ledger.Read(ctx, r.contract, "isOrganAvailable", donor, organ)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

func (r *organRepository) RegisterHospital(ctx context.Context, id *big.Int, name, city string) (*ledger.Tx, error) {
	return r.ledger.Write(ctx, r.contract, "registerHospital", id, name, city)
}

func (r *organRepository) CreateOrganRequest(ctx context.Context, hospitalID, requestID *big.Int, organType, bloodType string, urgency *big.Int, recipient common.Address) (*ledger.Tx, error) {
	return r.ledger.Write(ctx, r.contract, "createOrganRequest", hospitalID, requestID, organType, bloodType, urgency, recipient)
}

func (r *organRepository) RegisterDonorCall(organs []string, nextOfKin common.Address, healthRecords string) (ledger.Call, error) {
	return r.ledger.Call(r.contract, "registerDonor", organs, nextOfKin, healthRecords)
}

func (r *organRepository) ApproveDonorCall(donor common.Address) (ledger.Call, error) {
	return r.ledger.Call(r.contract, "approveAsDonor", donor)
}

// Outcome reads the request id out of a confirmed createOrganRequest.
func (r *organRepository) Outcome(_ context.Context, receipt *types.Receipt) (domain.TxOutcome, error) {
	var out domain.TxOutcome
	created, err := ParseRequestCreated(r.contract, receipt)
	if err != nil || len(created) == 0 {
		return out, err
	}
	out.RequestID = created[0].ID.String()
	out.HospitalID = created[0].HospitalID.String()
	return out, nil
}
