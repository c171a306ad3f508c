package domain

import (
	"errors"
	"mime/multipart"
)

var (
	MessageSuccessGetHospitals       = "hospitals retrieved successfully"
	MessageSuccessGetOrganRequests   = "organ requests retrieved successfully"
	MessageSuccessGetOrganDonor      = "organ donor retrieved successfully"
	MessageSuccessCheckAvailability  = "organ availability checked"
	MessageSuccessRegisterHospital   = "hospital registration submitted"
	MessageSuccessCreateOrganRequest = "organ request submitted"
	MessageSuccessPrepareCall        = "transaction prepared, sign it with your wallet and relay it"
	MessageFailedGetHospitals        = "failed to retrieve hospitals"
	MessageFailedGetOrganRequests    = "failed to retrieve organ requests"
	MessageFailedGetOrganDonor       = "failed to retrieve organ donor"
	MessageFailedCheckAvailability   = "failed to check organ availability"
	MessageFailedRegisterHospital    = "failed to register hospital"
	MessageFailedCreateOrganRequest  = "failed to create organ request"
	MessageFailedRegisterDonor       = "failed to prepare donor registration"
	MessageFailedApproveDonor        = "failed to prepare donor approval"

	ErrHospitalNotFound          = errors.New("hospital not found")
	ErrHospitalAlreadyRegistered = errors.New("hospital already registered")
	ErrOrganDonorNotFound        = errors.New("organ donor not found")
	ErrOrganDonorExists          = errors.New("organ donor already registered")
	ErrNotNextOfKin              = errors.New("only the next of kin can approve this donor")
	ErrOrganRequestExists        = errors.New("organ request already exists")
	ErrInvalidOrganID            = errors.New("invalid id")
	ErrOrgansRequired            = errors.New("at least one organ is required")
)

type (
	Hospital struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		City    string `json:"city"`
		Address string `json:"address"`
	}

	OrganDonor struct {
		Address           string   `json:"address"`
		Organs            []string `json:"organs"`
		NextOfKin         string   `json:"next_of_kin"`
		IsActive          bool     `json:"is_active"`
		NextOfKinApproval bool     `json:"next_of_kin_approval"`
		HealthRecords     string   `json:"health_records,omitempty"`
	}

	OrganRequest struct {
		ID           string `json:"id"`
		Recipient    string `json:"recipient"`
		OrganType    string `json:"organ_type"`
		BloodType    string `json:"blood_type"`
		UrgencyLevel uint64 `json:"urgency_level"`
		IsActive     bool   `json:"is_active"`
		MatchedDonor string `json:"matched_donor,omitempty"`
		HospitalID   string `json:"hospital_id"`
	}

	ListOrganRequestsRequest struct {
		ActiveOnly bool   `query:"active"`
		OrganType  string `query:"organ"`
		HospitalID string `query:"hospital_id" validate:"omitempty,numeric"`
	}

	OrganAvailabilityRequest struct {
		Donor string `query:"donor" validate:"required,eth_addr"`
		Organ string `query:"organ" validate:"required,max=40"`
	}

	OrganAvailability struct {
		Donor     string `json:"donor"`
		Organ     string `json:"organ"`
		Available bool   `json:"available"`
	}

	RegisterHospitalRequest struct {
		ID   string `json:"id" validate:"required,numeric"`
		Name string `json:"name" validate:"required,max=120"`
		City string `json:"city" validate:"required,max=80"`
	}

	RegisterOrganDonorRequest struct {
		Organs        []string              `json:"organs" form:"organs" validate:"required,min=1,dive,required,max=40"`
		NextOfKin     string                `json:"next_of_kin" form:"next_of_kin" validate:"required,eth_addr"`
		HealthRecords string                `json:"health_records" form:"health_records" validate:"omitempty"`
		RecordsFile   *multipart.FileHeader `json:"records_file" form:"records_file"`
	}

	CreateOrganRequestRequest struct {
		HospitalID   string `json:"hospital_id" validate:"required,numeric"`
		RequestID    string `json:"request_id" validate:"required,numeric"`
		OrganType    string `json:"organ_type" validate:"required,max=40"`
		BloodType    string `json:"blood_type" validate:"required"`
		UrgencyLevel uint64 `json:"urgency_level" validate:"required,min=1,max=5"`
		Recipient    string `json:"recipient" validate:"required,eth_addr"`
	}

	// UnsignedCall is calldata for the caller's wallet to sign and relay
	// through POST /transactions/raw.
	UnsignedCall struct {
		ChainID  uint64 `json:"chain_id"`
		To       string `json:"to"`
		Function string `json:"function"`
		Data     string `json:"data"`
	}
)
