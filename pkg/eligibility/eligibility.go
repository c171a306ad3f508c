// Package eligibility pre-screens blood donors against fixed deferral rules.
// It gives the assistant a deterministic verdict to explain instead of
// leaving the decision to the model.
package eligibility

import (
	"crimson-backend/domain"
	"fmt"
	"strings"
	"time"
)

const (
	MinAge           = 17
	MaxAge           = 65
	MinWeightKg      = 50.0
	MinHemoglobinGdL = 12.5

	WholeBloodInterval = 56 * 24 * time.Hour
	PlateletInterval   = 14 * 24 * time.Hour
)

const (
	CodeAge               = "age"
	CodeWeight            = "weight"
	CodeHemoglobin        = "hemoglobin"
	CodePregnancy         = "pregnancy"
	CodeBloodborneIllness = "bloodborne_illness"
	CodeActiveInfection   = "active_infection"
	CodeWholeBlood        = "whole_blood_interval"
	CodePlatelet          = "platelet_interval"
	CodeTattooPiercing    = "tattoo_piercing"
	CodeSurgery           = "surgery"
	CodeMalariaTravel     = "malaria_travel"
)

type deferral struct {
	code    string
	last    *time.Time
	wait    func(time.Time) time.Time
	message string
}

func after(d time.Duration) func(time.Time) time.Time {
	return func(t time.Time) time.Time { return t.Add(d) }
}

func months(n int) func(time.Time) time.Time {
	return func(t time.Time) time.Time { return t.AddDate(0, n, 0) }
}

// Check evaluates req as of now. The result is eligible only when no rule
// fails; NextEligibleDate is set when every failure is a timed deferral.
func Check(req domain.EligibilityRequest, now time.Time) domain.EligibilityResult {
	var reasons []domain.EligibilityReason
	permanent := func(code, msg string) {
		reasons = append(reasons, domain.EligibilityReason{Code: code, Message: msg, Permanent: true})
	}

	switch {
	case req.Age < MinAge:
		reasons = append(reasons, domain.EligibilityReason{
			Code:    CodeAge,
			Message: fmt.Sprintf("donors must be at least %d years old", MinAge),
		})
	case req.Age > MaxAge:
		permanent(CodeAge, fmt.Sprintf("donors must be %d or younger", MaxAge))
	}
	if req.WeightKg < MinWeightKg {
		reasons = append(reasons, domain.EligibilityReason{
			Code:    CodeWeight,
			Message: fmt.Sprintf("donors must weigh at least %.0f kg", MinWeightKg),
		})
	}
	if req.HemoglobinGdL > 0 && req.HemoglobinGdL < MinHemoglobinGdL {
		reasons = append(reasons, domain.EligibilityReason{
			Code:    CodeHemoglobin,
			Message: fmt.Sprintf("hemoglobin must be at least %.1f g/dL", MinHemoglobinGdL),
		})
	}
	if req.BloodborneIllness {
		permanent(CodeBloodborneIllness, "a history of bloodborne illness rules out blood donation")
	}
	if req.Pregnant {
		reasons = append(reasons, domain.EligibilityReason{Code: CodePregnancy, Message: "pregnant donors are deferred"})
	}
	if req.ActiveInfection {
		reasons = append(reasons, domain.EligibilityReason{Code: CodeActiveInfection, Message: "wait until the infection has cleared"})
	}

	deferrals := []deferral{
		{CodeWholeBlood, req.LastWholeBloodDonation, after(WholeBloodInterval), "56 days must pass after a whole blood donation"},
		{CodePlatelet, req.LastPlateletDonation, after(PlateletInterval), "14 days must pass after a platelet donation"},
		{CodeTattooPiercing, req.LastTattooOrPiercing, months(6), "6 months must pass after a tattoo or piercing"},
		{CodeSurgery, req.LastSurgery, months(6), "6 months must pass after surgery"},
		{CodeMalariaTravel, req.LastMalariaAreaTravel, months(3), "3 months must pass after travel to a malaria area"},
	}
	for _, d := range deferrals {
		if d.last == nil {
			continue
		}
		until := d.wait(*d.last)
		if now.Before(until) {
			reasons = append(reasons, domain.EligibilityReason{Code: d.code, Message: d.message, Until: &until})
		}
	}

	result := domain.EligibilityResult{Eligible: len(reasons) == 0, Reasons: reasons}
	if result.Reasons == nil {
		result.Reasons = []domain.EligibilityReason{}
	}
	result.NextEligibleDate = nextEligible(reasons)
	return result
}

// nextEligible is the latest deferral end, or nil if any reason has no end.
func nextEligible(reasons []domain.EligibilityReason) *time.Time {
	var latest *time.Time
	for _, r := range reasons {
		if r.Until == nil {
			return nil
		}
		if latest == nil || r.Until.After(*latest) {
			latest = r.Until
		}
	}
	return latest
}

// Summary renders result as plain sentences for the assistant's system
// instruction.
func Summary(result domain.EligibilityResult) string {
	if result.Eligible {
		return "The user meets every blood donation pre-screening rule."
	}

	var b strings.Builder
	b.WriteString("The user does not currently meet the blood donation pre-screening rules:")
	for _, r := range result.Reasons {
		b.WriteString("\n- ")
		b.WriteString(r.Message)
		if r.Until != nil {
			b.WriteString(" (until ")
			b.WriteString(r.Until.Format("2006-01-02"))
			b.WriteString(")")
		}
	}
	if result.NextEligibleDate != nil {
		b.WriteString("\nThey may donate again from ")
		b.WriteString(result.NextEligibleDate.Format("2006-01-02"))
		b.WriteString(".")
	}
	return b.String()
}
