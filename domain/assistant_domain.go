package domain

import (
	"errors"
	"time"
)

var (
	MessageSuccessCheckEligibility = "eligibility checked"
	MessageFailedChat              = "failed to reach the assistant"
	MessageFailedCheckEligibility  = "failed to check eligibility"

	ErrAssistantUnavailable = errors.New("assistant unavailable")
	ErrEmptyConversation    = errors.New("conversation has no user message")
)

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

type (
	ChatAttachment struct {
		MimeType string `json:"mime_type" validate:"required,oneof=image/jpeg image/png image/webp"`
		Data     []byte `json:"data" validate:"required"`
	}

	ChatMessage struct {
		Role        string           `json:"role" validate:"required,oneof=user assistant"`
		Content     string           `json:"content" validate:"max=8000"`
		Attachments []ChatAttachment `json:"attachments,omitempty" validate:"max=4,dive"`
	}

	ChatRequest struct {
		Messages []ChatMessage       `json:"messages" validate:"required,min=1,max=50,dive"`
		Profile  *EligibilityRequest `json:"profile,omitempty" validate:"omitempty"`
	}

	// EligibilityRequest describes a prospective blood donor. Dates are the
	// most recent occurrence; nil means never.
	EligibilityRequest struct {
		Age                    int        `json:"age" validate:"required,min=1,max=120"`
		WeightKg               float64    `json:"weight_kg" validate:"required,gt=0"`
		HemoglobinGdL          float64    `json:"hemoglobin_g_dl" validate:"omitempty,gt=0"`
		Pregnant               bool       `json:"pregnant"`
		BloodborneIllness      bool       `json:"bloodborne_illness"`
		ActiveInfection        bool       `json:"active_infection"`
		LastWholeBloodDonation *time.Time `json:"last_whole_blood_donation,omitempty"`
		LastPlateletDonation   *time.Time `json:"last_platelet_donation,omitempty"`
		LastTattooOrPiercing   *time.Time `json:"last_tattoo_or_piercing,omitempty"`
		LastSurgery            *time.Time `json:"last_surgery,omitempty"`
		LastMalariaAreaTravel  *time.Time `json:"last_malaria_area_travel,omitempty"`
	}

	EligibilityReason struct {
		Code      string     `json:"code"`
		Message   string     `json:"message"`
		Permanent bool       `json:"permanent"`
		Until     *time.Time `json:"until,omitempty"`
	}

	EligibilityResult struct {
		Eligible         bool                `json:"eligible"`
		Reasons          []EligibilityReason `json:"reasons"`
		NextEligibleDate *time.Time          `json:"next_eligible_date,omitempty"`
	}
)
