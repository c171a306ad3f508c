package organ

import (
	"context"
	"crimson-backend/domain"
	"crimson-backend/internal/utils/storage"
	"crimson-backend/pkg/bloodcamp"
	"crimson-backend/pkg/ledger"
	"crimson-backend/pkg/pinning"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

type (
	OrganService interface {
		ListHospitals(ctx context.Context) ([]domain.Hospital, error)
		ListRequests(ctx context.Context, req domain.ListOrganRequestsRequest) ([]domain.OrganRequest, error)
		GetDonor(ctx context.Context, address string) (*domain.OrganDonor, error)
		CheckAvailability(ctx context.Context, req domain.OrganAvailabilityRequest) (*domain.OrganAvailability, error)

		RegisterHospital(ctx context.Context, req domain.RegisterHospitalRequest) (*ledger.Tx, error)
		CreateRequest(ctx context.Context, req domain.CreateOrganRequestRequest) (*ledger.Tx, error)
		PrepareRegisterDonor(ctx context.Context, req domain.RegisterOrganDonorRequest, donor string) (*domain.UnsignedCall, error)
		PrepareApproveDonor(ctx context.Context, donor string) (*domain.UnsignedCall, error)
	}

	organService struct {
		organRepository OrganRepository
		pinService      pinning.PinService
		log             *zap.Logger
	}
)

func NewOrganService(organRepository OrganRepository, pinService pinning.PinService, log *zap.Logger) OrganService {
	return &organService{
		organRepository: organRepository,
		pinService:      pinService,
		log:             log,
	}
}

func (s *organService) ListHospitals(ctx context.Context) ([]domain.Hospital, error) {
	hospitals, err := s.organRepository.GetAllHospitals(ctx)
	if err != nil {
		return nil, ledgerError(err)
	}

	result := make([]domain.Hospital, 0, len(hospitals))
	for _, h := range hospitals {
		result = append(result, domain.Hospital{
			ID:      bigString(h.Id),
			Name:    h.Name,
			City:    h.City,
			Address: h.HospitalAddress.Hex(),
		})
	}
	return result, nil
}

func (s *organService) ListRequests(ctx context.Context, req domain.ListOrganRequestsRequest) ([]domain.OrganRequest, error) {
	requests, err := s.organRepository.GetAllRequests(ctx)
	if err != nil {
		return nil, ledgerError(err)
	}

	result := make([]domain.OrganRequest, 0, len(requests))
	for _, r := range requests {
		if req.ActiveOnly && !r.IsActive {
			continue
		}
		if req.OrganType != "" && !strings.EqualFold(r.OrganType, req.OrganType) {
			continue
		}
		if req.HospitalID != "" && bigString(r.HospitalId) != req.HospitalID {
			continue
		}
		result = append(result, toDomainRequest(r))
	}
	return result, nil
}

func (s *organService) GetDonor(ctx context.Context, address string) (*domain.OrganDonor, error) {
	if !common.IsHexAddress(address) {
		return nil, domain.ErrInvalidWalletAddress
	}
	addr := common.HexToAddress(address)

	donor, err := s.organRepository.GetDonor(ctx, addr)
	if err != nil {
		return nil, ledgerError(err)
	}
	if !donor.Registered() {
		return nil, domain.ErrOrganDonorNotFound
	}
	return &domain.OrganDonor{
		Address:           addr.Hex(),
		Organs:            donor.Organs,
		NextOfKin:         donor.NextOfKin.Hex(),
		IsActive:          donor.IsActive,
		NextOfKinApproval: donor.NextOfKinApproval,
		HealthRecords:     donor.IpfsHealthRecords,
	}, nil
}

func (s *organService) CheckAvailability(ctx context.Context, req domain.OrganAvailabilityRequest) (*domain.OrganAvailability, error) {
	if !common.IsHexAddress(req.Donor) {
		return nil, domain.ErrInvalidWalletAddress
	}
	donor := common.HexToAddress(req.Donor)
	organ := strings.TrimSpace(req.Organ)

	available, err := s.organRepository.IsOrganAvailable(ctx, donor, organ)
	if err != nil {
		return nil, ledgerError(err)
	}
	return &domain.OrganAvailability{Donor: donor.Hex(), Organ: organ, Available: available}, nil
}

func (s *organService) RegisterHospital(ctx context.Context, req domain.RegisterHospitalRequest) (*ledger.Tx, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	return s.organRepository.RegisterHospital(ctx, id, strings.TrimSpace(req.Name), strings.TrimSpace(req.City))
}

func (s *organService) CreateRequest(ctx context.Context, req domain.CreateOrganRequestRequest) (*ledger.Tx, error) {
	hospitalID, err := parseID(req.HospitalID)
	if err != nil {
		return nil, err
	}
	requestID, err := parseID(req.RequestID)
	if err != nil {
		return nil, err
	}
	bt, err := bloodcamp.ParseBloodType(req.BloodType)
	if err != nil {
		return nil, domain.ErrInvalidBloodType
	}
	if !common.IsHexAddress(req.Recipient) {
		return nil, domain.ErrInvalidWalletAddress
	}

	return s.organRepository.CreateOrganRequest(ctx,
		hospitalID,
		requestID,
		strings.TrimSpace(req.OrganType),
		bt.String(),
		new(big.Int).SetUint64(req.UrgencyLevel),
		common.HexToAddress(req.Recipient),
	)
}

// PrepareRegisterDonor builds the registerDonor call for the donor's own
// wallet. An uploaded health record is pinned first and its URI recorded.
func (s *organService) PrepareRegisterDonor(ctx context.Context, req domain.RegisterOrganDonorRequest, donor string) (*domain.UnsignedCall, error) {
	organs := make([]string, 0, len(req.Organs))
	for _, o := range req.Organs {
		if o = strings.TrimSpace(o); o != "" {
			organs = append(organs, o)
		}
	}
	if len(organs) == 0 {
		return nil, domain.ErrOrgansRequired
	}
	if !common.IsHexAddress(req.NextOfKin) {
		return nil, domain.ErrInvalidWalletAddress
	}

	records := strings.TrimSpace(req.HealthRecords)
	if req.RecordsFile != nil {
		pin, err := s.pinService.PinFile(ctx, req.RecordsFile, donor, storage.AllowDocument...)
		if err != nil {
			return nil, err
		}
		records = pin.URI
	}

	call, err := s.organRepository.RegisterDonorCall(organs, common.HexToAddress(req.NextOfKin), records)
	if err != nil {
		return nil, err
	}
	return toUnsignedCall(call), nil
}

// PrepareApproveDonor builds the approveAsDonor call; the contract only
// accepts it from the donor's next of kin.
func (s *organService) PrepareApproveDonor(ctx context.Context, donor string) (*domain.UnsignedCall, error) {
	if !common.IsHexAddress(donor) {
		return nil, domain.ErrInvalidWalletAddress
	}
	addr := common.HexToAddress(donor)

	record, err := s.organRepository.GetDonor(ctx, addr)
	if err != nil {
		return nil, ledgerError(err)
	}
	if !record.Registered() {
		return nil, domain.ErrOrganDonorNotFound
	}

	call, err := s.organRepository.ApproveDonorCall(addr)
	if err != nil {
		return nil, err
	}
	return toUnsignedCall(call), nil
}

func parseID(id string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(id), 10)
	if !ok || n.Sign() < 0 {
		return nil, domain.ErrInvalidOrganID
	}
	return n, nil
}

func bigString(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}

func toDomainRequest(r Request) domain.OrganRequest {
	out := domain.OrganRequest{
		ID:         bigString(r.Id),
		Recipient:  r.Recipient.Hex(),
		OrganType:  r.OrganType,
		BloodType:  r.BloodType,
		IsActive:   r.IsActive,
		HospitalID: bigString(r.HospitalId),
	}
	if r.UrgencyLevel != nil && r.UrgencyLevel.IsUint64() {
		out.UrgencyLevel = r.UrgencyLevel.Uint64()
	}
	if r.MatchedDonor != (common.Address{}) {
		out.MatchedDonor = r.MatchedDonor.Hex()
	}
	return out
}

func toUnsignedCall(c ledger.Call) *domain.UnsignedCall {
	return &domain.UnsignedCall{
		ChainID:  c.ChainID,
		To:       c.To.Hex(),
		Function: c.Function,
		Data:     hexutil.Encode(c.Data),
	}
}

func ledgerError(err error) error {
	switch {
	case errors.Is(err, ErrDonorNotRegistered):
		return domain.ErrOrganDonorNotFound
	case errors.Is(err, ErrDonorAlreadyRegistered):
		return domain.ErrOrganDonorExists
	case errors.Is(err, ErrHospitalDoesNotExist):
		return domain.ErrHospitalNotFound
	case errors.Is(err, ErrHospitalAlreadyRegistered):
		return domain.ErrHospitalAlreadyRegistered
	case errors.Is(err, ErrNotNextOfKin):
		return domain.ErrNotNextOfKin
	case errors.Is(err, ErrRequestAlreadyExists):
		return domain.ErrOrganRequestExists
	case errors.Is(err, context.Canceled), errors.Is(err, ledger.ErrSuperseded):
		return err
	}
	return errors.Join(domain.ErrLedgerUnavailable, err)
}
