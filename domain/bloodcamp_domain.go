package domain

import (
	"errors"
	"mime/multipart"
)

var (
	MessageSuccessGetCamps          = "camps retrieved successfully"
	MessageSuccessGetCamp           = "camp retrieved successfully"
	MessageSuccessGetInventory      = "inventory retrieved successfully"
	MessageSuccessGetDonors         = "donors retrieved successfully"
	MessageSuccessGetRegistrants    = "registrants retrieved successfully"
	MessageSuccessCreateCamp        = "camp creation submitted"
	MessageSuccessUpdateInventory   = "inventory update submitted"
	MessageSuccessAddDonor          = "donor submitted"
	MessageSuccessAddRegistrant     = "registrant submitted"
	MessageSuccessIssueNFT          = "nft issuance submitted"
	MessageInventoryStillLoading    = "inventory is still loading"
	MessageFailedGetCamps           = "failed to retrieve camps"
	MessageFailedGetCamp            = "failed to retrieve camp"
	MessageFailedGetInventory       = "failed to retrieve inventory"
	MessageFailedGetDonors          = "failed to retrieve donors"
	MessageFailedGetRegistrants     = "failed to retrieve registrants"
	MessageFailedCreateCamp         = "failed to create camp"
	MessageFailedUpdateInventory    = "failed to update inventory"
	MessageFailedAddDonor           = "failed to add donor"
	MessageFailedAddRegistrant      = "failed to add registrant"
	MessageFailedIssueNFT           = "failed to issue nft"
	MessageFailedParseCampID        = "failed to parse camp id"
	MessageFailedParseBloodType     = "failed to parse blood type"
	MessageFailedParseWalletAddress = "failed to parse wallet address"

	ErrCampNotFound         = errors.New("camp not found")
	ErrCampAlreadyExists    = errors.New("camp already exists")
	ErrCampNotOwner         = errors.New("caller does not own this camp")
	ErrInvalidCampID        = errors.New("invalid camp id")
	ErrInvalidBloodType     = errors.New("invalid blood type")
	ErrInvalidWalletAddress = errors.New("invalid wallet address")
	ErrInvalidCoordinates   = errors.New("invalid coordinates")
	ErrNFTMetadataRequired  = errors.New("either uri or name and image are required")
	ErrLedgerUnavailable    = errors.New("ledger unavailable")
)

type (
	Camp struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Organizer string `json:"organizer"`
		City      string `json:"city"`
		Owner     string `json:"owner"`
		Latitude  string `json:"lat"`
		Longitude string `json:"long"`
		Distance  string `json:"distance,omitempty"`
	}

	InventoryItem struct {
		BloodType   string `json:"blood_type"`
		BloodTypeID uint8  `json:"blood_type_id"`
		Quantity    string `json:"quantity,omitempty"`
		Percent     int    `json:"percent"`
		Level       string `json:"level"`
		Status      string `json:"status"`
		Error       string `json:"error,omitempty"`
	}

	Inventory struct {
		CampID string          `json:"camp_id"`
		Items  []InventoryItem `json:"items"`
	}

	ListCampsRequest struct {
		Latitude  string `query:"lat" validate:"omitempty,latitude"`
		Longitude string `query:"long" validate:"omitempty,longitude"`
	}

	CreateCampRequest struct {
		ID        string `json:"id" validate:"required,numeric"`
		Name      string `json:"name" validate:"required,max=120"`
		Organizer string `json:"organizer" validate:"required,max=120"`
		City      string `json:"city" validate:"required,max=80"`
		Latitude  string `json:"lat" validate:"required,latitude"`
		Longitude string `json:"long" validate:"required,longitude"`
	}

	UpdateInventoryRequest struct {
		BloodType string `json:"blood_type" validate:"required"`
		Quantity  uint64 `json:"quantity" validate:"gte=0"`
	}

	CampUserRequest struct {
		Address string `json:"address" validate:"required,eth_addr"`
	}

	IssueNFTRequest struct {
		To          string                `json:"to" form:"to" validate:"required,eth_addr"`
		URI         string                `json:"uri" form:"uri" validate:"omitempty"`
		Name        string                `json:"name" form:"name" validate:"omitempty,max=120"`
		Description string                `json:"description" form:"description" validate:"omitempty,max=1000"`
		Image       *multipart.FileHeader `json:"image" form:"image"`
	}

	NFTMetadata struct {
		Name        string         `json:"name"`
		Description string         `json:"description,omitempty"`
		Image       string         `json:"image"`
		Attributes  []NFTAttribute `json:"attributes,omitempty"`
	}

	NFTAttribute struct {
		TraitType string `json:"trait_type"`
		Value     string `json:"value"`
	}
)
