package bloodcamp

import (
	"context"
	"crimson-backend/domain"
	"crimson-backend/internal/utils/storage"
	"crimson-backend/pkg/geo"
	"crimson-backend/pkg/ledger"
	"crimson-backend/pkg/pinning"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const inventoryFanOut = 4

type (
	BloodCampService interface {
		ListCamps(ctx context.Context, req domain.ListCampsRequest) ([]domain.Camp, error)
		OwnedCamps(ctx context.Context, owner string) ([]domain.Camp, error)
		GetCamp(ctx context.Context, id string) (*domain.Camp, error)
		GetInventory(ctx context.Context, id, view string) (*domain.Inventory, error)
		GetInventoryItem(ctx context.Context, id, bloodType string, peek bool) (*domain.InventoryItem, error)
		GetDonors(ctx context.Context, id string) ([]string, error)
		GetRegistrants(ctx context.Context, id string) ([]string, error)

		CreateCamp(ctx context.Context, req domain.CreateCampRequest) (*ledger.Tx, error)
		UpdateInventory(ctx context.Context, id string, req domain.UpdateInventoryRequest) (*ledger.Tx, error)
		AddDonor(ctx context.Context, id string, req domain.CampUserRequest) (*ledger.Tx, error)
		AddRegistrant(ctx context.Context, id string, req domain.CampUserRequest) (*ledger.Tx, error)
		IssueNFT(ctx context.Context, id string, req domain.IssueNFTRequest, issuer string) (*ledger.Tx, error)
	}

	bloodCampService struct {
		bloodCampRepository BloodCampRepository
		pinService          pinning.PinService
		log                 *zap.Logger
	}
)

func NewBloodCampService(bloodCampRepository BloodCampRepository, pinService pinning.PinService, log *zap.Logger) BloodCampService {
	return &bloodCampService{
		bloodCampRepository: bloodCampRepository,
		pinService:          pinService,
		log:                 log,
	}
}

func (s *bloodCampService) ListCamps(ctx context.Context, req domain.ListCampsRequest) ([]domain.Camp, error) {
	camps, err := s.bloodCampRepository.GetAllCamps(ctx)
	if err != nil {
		return nil, ledgerError(err)
	}

	result := make([]domain.Camp, 0, len(camps))
	for _, c := range camps {
		result = append(result, toDomainCamp(c))
	}
	if req.Latitude == "" && req.Longitude == "" {
		return result, nil
	}

	from := geo.ParsePoint(req.Latitude, req.Longitude)
	if from == nil {
		return nil, domain.ErrInvalidCoordinates
	}

	distances := make(map[string]int64, len(result))
	for i := range result {
		to := geo.ParsePoint(result[i].Latitude, result[i].Longitude)
		result[i].Distance = geo.FormatDistance(from, to)
		if km, ok := geo.DistanceKm(from, to); ok {
			distances[result[i].ID] = km
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		di, iok := distances[result[i].ID]
		dj, jok := distances[result[j].ID]
		if iok != jok {
			return iok
		}
		return di < dj
	})
	return result, nil
}

func (s *bloodCampService) OwnedCamps(ctx context.Context, owner string) ([]domain.Camp, error) {
	if !common.IsHexAddress(owner) {
		return nil, domain.ErrInvalidWalletAddress
	}
	camps, err := s.bloodCampRepository.GetAllCamps(ctx)
	if err != nil {
		return nil, ledgerError(err)
	}

	result := make([]domain.Camp, 0)
	for _, c := range camps {
		if strings.EqualFold(c.Owner.Hex(), owner) {
			result = append(result, toDomainCamp(c))
		}
	}
	return result, nil
}

func (s *bloodCampService) GetCamp(ctx context.Context, id string) (*domain.Camp, error) {
	campID, err := ParseCampID(id)
	if err != nil {
		return nil, err
	}
	camp, err := s.bloodCampRepository.GetCamp(ctx, campID)
	if err != nil {
		return nil, ledgerError(err)
	}
	result := toDomainCamp(camp)
	return &result, nil
}

// GetInventory reads every cell of a camp. A non-empty view names the
// caller's screen: a newer request from the same view supersedes this one.
func (s *bloodCampService) GetInventory(ctx context.Context, id, view string) (*domain.Inventory, error) {
	campID, err := ParseCampID(id)
	if err != nil {
		return nil, err
	}
	if view != "" {
		var done context.CancelFunc
		ctx, done = s.bloodCampRepository.Latest(ctx, view)
		defer done()
	}

	items := make([]domain.InventoryItem, len(BloodTypes))
	var g errgroup.Group
	g.SetLimit(inventoryFanOut)
	for i, bt := range BloodTypes {
		g.Go(func() error {
			qty, err := s.bloodCampRepository.GetInventory(ctx, campID, bt)
			items[i] = inventoryItem(bt, qty, err)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		if cause := context.Cause(ctx); cause != nil {
			return nil, cause
		}
		failed := 0
		for _, item := range items {
			if item.Status == ledger.StatusError.String() {
				failed++
			}
		}
		if errors.Is(err, ErrCampDoesNotExist) || failed == len(items) {
			return nil, ledgerError(err)
		}
		s.log.Warn("partial inventory read", zap.String("camp_id", id), zap.Int("failed", failed), zap.Error(err))
	}

	return &domain.Inventory{CampID: campID.String(), Items: items}, nil
}

// GetInventoryItem reads one cell. With peek it reports whatever is cached
// and never touches the ledger.
func (s *bloodCampService) GetInventoryItem(ctx context.Context, id, bloodType string, peek bool) (*domain.InventoryItem, error) {
	campID, err := ParseCampID(id)
	if err != nil {
		return nil, err
	}
	bt, err := ParseBloodType(bloodType)
	if err != nil {
		return nil, domain.ErrInvalidBloodType
	}

	if peek {
		snap := s.bloodCampRepository.PeekInventory(campID, bt)
		item := domain.InventoryItem{BloodType: bt.String(), BloodTypeID: uint8(bt), Status: snap.Status.String(), Level: string(LevelUnknown)}
		switch snap.Status {
		case ledger.StatusReady:
			item = inventoryItem(bt, snap.Data.([]any)[0].(*big.Int), nil)
		case ledger.StatusError:
			item.Error = snap.Err.Error()
		}
		return &item, nil
	}

	qty, err := s.bloodCampRepository.GetInventory(ctx, campID, bt)
	if err != nil {
		return nil, ledgerError(err)
	}
	item := inventoryItem(bt, qty, nil)
	return &item, nil
}

func (s *bloodCampService) GetDonors(ctx context.Context, id string) ([]string, error) {
	campID, err := ParseCampID(id)
	if err != nil {
		return nil, err
	}
	users, err := s.bloodCampRepository.GetDonatedUsers(ctx, campID)
	if err != nil {
		return nil, ledgerError(err)
	}
	return addressStrings(users), nil
}

func (s *bloodCampService) GetRegistrants(ctx context.Context, id string) ([]string, error) {
	campID, err := ParseCampID(id)
	if err != nil {
		return nil, err
	}
	users, err := s.bloodCampRepository.GetRegisteredUsers(ctx, campID)
	if err != nil {
		return nil, ledgerError(err)
	}
	return addressStrings(users), nil
}

func (s *bloodCampService) CreateCamp(ctx context.Context, req domain.CreateCampRequest) (*ledger.Tx, error) {
	campID, err := ParseCampID(req.ID)
	if err != nil {
		return nil, err
	}
	if geo.ParsePoint(req.Latitude, req.Longitude) == nil {
		return nil, domain.ErrInvalidCoordinates
	}
	return s.bloodCampRepository.CreateCamp(ctx, campID,
		strings.TrimSpace(req.Name),
		strings.TrimSpace(req.Organizer),
		strings.TrimSpace(req.City),
		strings.TrimSpace(req.Latitude),
		strings.TrimSpace(req.Longitude),
	)
}

// UpdateInventory overwrites the stored quantity; it is not a delta.
func (s *bloodCampService) UpdateInventory(ctx context.Context, id string, req domain.UpdateInventoryRequest) (*ledger.Tx, error) {
	campID, err := ParseCampID(id)
	if err != nil {
		return nil, err
	}
	bt, err := ParseBloodType(req.BloodType)
	if err != nil {
		return nil, domain.ErrInvalidBloodType
	}
	return s.bloodCampRepository.UpdateInventory(ctx, campID, bt, new(big.Int).SetUint64(req.Quantity))
}

func (s *bloodCampService) AddDonor(ctx context.Context, id string, req domain.CampUserRequest) (*ledger.Tx, error) {
	campID, user, err := parseCampUser(id, req)
	if err != nil {
		return nil, err
	}
	return s.bloodCampRepository.AddDonatedUser(ctx, campID, user)
}

func (s *bloodCampService) AddRegistrant(ctx context.Context, id string, req domain.CampUserRequest) (*ledger.Tx, error) {
	campID, user, err := parseCampUser(id, req)
	if err != nil {
		return nil, err
	}
	return s.bloodCampRepository.AddRegisteredUser(ctx, campID, user)
}

func (s *bloodCampService) IssueNFT(ctx context.Context, id string, req domain.IssueNFTRequest, issuer string) (*ledger.Tx, error) {
	campID, err := ParseCampID(id)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(req.To) {
		return nil, domain.ErrInvalidWalletAddress
	}
	to := common.HexToAddress(req.To)

	uri := strings.TrimSpace(req.URI)
	if uri == "" {
		if req.Name == "" || req.Image == nil {
			return nil, domain.ErrNFTMetadataRequired
		}
		camp, err := s.bloodCampRepository.GetCamp(ctx, campID)
		if err != nil {
			return nil, ledgerError(err)
		}

		image, err := s.pinService.PinFile(ctx, req.Image, issuer, storage.AllowImage...)
		if err != nil {
			return nil, err
		}
		metadata, err := s.pinService.PinJSON(ctx, fmt.Sprintf("camp-%s-nft.json", campID), domain.NFTMetadata{
			Name:        req.Name,
			Description: req.Description,
			Image:       image.URL,
			Attributes: []domain.NFTAttribute{
				{TraitType: "Camp", Value: camp.Name},
				{TraitType: "Organizer", Value: camp.Organizer},
				{TraitType: "City", Value: camp.City},
			},
		}, issuer)
		if err != nil {
			return nil, err
		}
		uri = metadata.URL
	}

	s.log.Info("issuing camp nft", zap.String("camp_id", campID.String()), zap.String("to", to.Hex()), zap.String("uri", uri))
	return s.bloodCampRepository.IssueNFT(ctx, campID, to, uri)
}

func ParseCampID(id string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(id), 10)
	if !ok || n.Sign() < 0 || n.BitLen() > 256 {
		return nil, domain.ErrInvalidCampID
	}
	return n, nil
}

func parseCampUser(id string, req domain.CampUserRequest) (*big.Int, common.Address, error) {
	campID, err := ParseCampID(id)
	if err != nil {
		return nil, common.Address{}, err
	}
	if !common.IsHexAddress(req.Address) {
		return nil, common.Address{}, domain.ErrInvalidWalletAddress
	}
	return campID, common.HexToAddress(req.Address), nil
}

func inventoryItem(bt BloodType, qty *big.Int, err error) domain.InventoryItem {
	item := domain.InventoryItem{BloodType: bt.String(), BloodTypeID: uint8(bt)}
	if err != nil {
		item.Status = ledger.StatusError.String()
		item.Level = string(LevelUnknown)
		item.Error = err.Error()
		return item
	}
	level, percent := StockLevel(qty)
	item.Status = ledger.StatusReady.String()
	item.Quantity = qty.String()
	item.Level = string(level)
	item.Percent = percent
	return item
}

func toDomainCamp(c Camp) domain.Camp {
	id := "0"
	if c.Id != nil {
		id = c.Id.String()
	}
	return domain.Camp{
		ID:        id,
		Name:      c.Name,
		Organizer: c.Organizer,
		City:      c.City,
		Owner:     c.Owner.Hex(),
		Latitude:  c.Lat,
		Longitude: c.Long,
	}
}

func addressStrings(addrs []common.Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Hex()
	}
	return out
}

// ledgerError maps contract reverts to domain errors and tags everything
// else as a ledger outage.
func ledgerError(err error) error {
	switch {
	case errors.Is(err, ErrCampDoesNotExist):
		return domain.ErrCampNotFound
	case errors.Is(err, ErrCampAlreadyExists):
		return domain.ErrCampAlreadyExists
	case errors.Is(err, ErrCampNotOwner):
		return domain.ErrCampNotOwner
	case errors.Is(err, context.Canceled), errors.Is(err, ledger.ErrSuperseded):
		return err
	}
	return errors.Join(domain.ErrLedgerUnavailable, err)
}
