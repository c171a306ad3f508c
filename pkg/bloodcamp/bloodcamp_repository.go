package bloodcamp

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
	BloodCampRepository interface {
		Contract() *ledger.Contract
		GetAllCamps(ctx context.Context) ([]Camp, error)
		GetCamp(ctx context.Context, id *big.Int) (Camp, error)
		GetInventory(ctx context.Context, id *big.Int, bloodType BloodType) (*big.Int, error)
		PeekInventory(id *big.Int, bloodType BloodType) ledger.Snapshot
		Latest(ctx context.Context, view string) (context.Context, context.CancelFunc)
		GetDonatedUsers(ctx context.Context, id *big.Int) ([]common.Address, error)
		GetRegisteredUsers(ctx context.Context, id *big.Int) ([]common.Address, error)
		NFTAddress(ctx context.Context) (common.Address, error)
		Outcome(ctx context.Context, receipt *types.Receipt) (domain.TxOutcome, error)

		CreateCamp(ctx context.Context, id *big.Int, name, organizer, city, lat, long string) (*ledger.Tx, error)
		UpdateInventory(ctx context.Context, id *big.Int, bloodType BloodType, quantity *big.Int) (*ledger.Tx, error)
		AddDonatedUser(ctx context.Context, id *big.Int, user common.Address) (*ledger.Tx, error)
		AddRegisteredUser(ctx context.Context, id *big.Int, user common.Address) (*ledger.Tx, error)
		IssueNFT(ctx context.Context, id *big.Int, to common.Address, uri string) (*ledger.Tx, error)
	}

	bloodCampRepository struct {
		ledger   *ledger.Ledger
		contract *ledger.Contract
	}
)

func NewBloodCampRepository(l *ledger.Ledger, contract *ledger.Contract) (BloodCampRepository, error) {
	if err := l.Register(contract, Invalidations); err != nil {
		return nil, err
	}
	return &bloodCampRepository{ledger: l, contract: contract}, nil
}

func (r *bloodCampRepository) Contract() *ledger.Contract {
	return r.contract
}

func (r *bloodCampRepository) GetAllCamps(ctx context.Context) ([]Camp, error) {
	out, err := r.ledger.Read(ctx, r.contract, "getAllCamps")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]Camp)).(*[]Camp), nil
}

func (r *bloodCampRepository) GetCamp(ctx context.Context, id *big.Int) (Camp, error) {
	out, err := r.ledger.Read(ctx, r.contract, "getCamp", id)
	if err != nil {
		return Camp{}, err
	}
	return *abi.ConvertType(out[0], new(Camp)).(*Camp), nil
}

func (r *bloodCampRepository) GetInventory(ctx context.Context, id *big.Int, bloodType BloodType) (*big.Int, error) {
	out, err := r.ledger.Read(ctx, r.contract, "getInventory", id, uint8(bloodType))
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (r *bloodCampRepository) PeekInventory(id *big.Int, bloodType BloodType) ledger.Snapshot {
	return r.ledger.Snapshot(r.contract, "getInventory", id, uint8(bloodType))
}

func (r *bloodCampRepository) Latest(ctx context.Context, view string) (context.Context, context.CancelFunc) {
	return r.ledger.Latest(ctx, "bloodcamp:"+view)
}

func (r *bloodCampRepository) GetDonatedUsers(ctx context.Context, id *big.Int) ([]common.Address, error) {
	out, err := r.ledger.Read(ctx, r.contract, "getDonatedUsers", id)
	if err != nil {
		return nil, err
	}
	return out[0].([]common.Address), nil
}

func (r *bloodCampRepository) GetRegisteredUsers(ctx context.Context, id *big.Int) ([]common.Address, error) {
	out, err := r.ledger.Read(ctx, r.contract, "getRegisteredUsers", id)
	if err != nil {
		return nil, err
	}
	return out[0].([]common.Address), nil
}

func (r *bloodCampRepository) NFTAddress(ctx context.Context) (common.Address, error) {
	out, err := r.ledger.Read(ctx, r.contract, "bloodCampNFT")
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

// Outcome reads the camp and badge ids out of a confirmed BloodCamp write.
func (r *bloodCampRepository) Outcome(ctx context.Context, receipt *types.Receipt) (domain.TxOutcome, error) {
	var out domain.TxOutcome

	updated, err := ParseInventoryUpdated(r.contract, receipt)
	if err != nil {
		return out, err
	}
	if len(updated) > 0 {
		out.CampID = updated[0].ID.String()
	}

	created, err := ParseCampCreated(r.contract, receipt)
	if err != nil {
		return out, err
	}
	if len(created) > 0 {
		out.CampID = created[0].ID.String()
	}

	issued, err := ParseNFTIssued(r.contract, receipt)
	if err != nil {
		return out, err
	}
	if len(issued) > 0 {
		out.CampID = issued[0].CampID.String()
		out.TokenID = issued[0].TokenID.String()
		nft, err := r.NFTAddress(ctx)
		if err != nil {
			return out, err
		}
		out.NFTContract = nft.Hex()
	}
	return out, nil
}

func (r *bloodCampRepository) CreateCamp(ctx context.Context, id *big.Int, name, organizer, city, lat, long string) (*ledger.Tx, error) {
	return r.ledger.Write(ctx, r.contract, "createCamp", id, name, organizer, city, lat, long)
}

func (r *bloodCampRepository) UpdateInventory(ctx context.Context, id *big.Int, bloodType BloodType, quantity *big.Int) (*ledger.Tx, error) {
	return r.ledger.Write(ctx, r.contract, "updateInventory", id, uint8(bloodType), quantity)
}

func (r *bloodCampRepository) AddDonatedUser(ctx context.Context, id *big.Int, user common.Address) (*ledger.Tx, error) {
	return r.ledger.Write(ctx, r.contract, "addDonatedUser", id, user)
}

func (r *bloodCampRepository) AddRegisteredUser(ctx context.Context, id *big.Int, user common.Address) (*ledger.Tx, error) {
	return r.ledger.Write(ctx, r.contract, "addRegisteredUser", id, user)
}

func (r *bloodCampRepository) IssueNFT(ctx context.Context, id *big.Int, to common.Address, uri string) (*ledger.Tx, error) {
	return r.ledger.Write(ctx, r.contract, "issueNFT", id, to, uri)
}
