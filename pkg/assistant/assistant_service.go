package assistant

import (
	"context"
	"crimson-backend/domain"
	"crimson-backend/pkg/eligibility"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type (
	AssistantService interface {
		// Chat streams the reply to the conversation through emit.
		Chat(ctx context.Context, req domain.ChatRequest, emit func(chunk string) error) error
		CheckEligibility(req domain.EligibilityRequest) domain.EligibilityResult
		Transcribe(ctx context.Context, data []byte, mimeType string) (string, error)
		ExtractReport(ctx context.Context, transcript string) (*domain.ReportExtraction, error)
	}

	assistantService struct {
		model Model
		log   *zap.Logger
		now   func() time.Time
	}
)

func NewAssistantService(model Model, log *zap.Logger) AssistantService {
	return &assistantService{
		model: model,
		log:   log,
		now:   time.Now,
	}
}

func (s *assistantService) Chat(ctx context.Context, req domain.ChatRequest, emit func(chunk string) error) error {
	contents, err := conversation(req.Messages)
	if err != nil {
		return err
	}

	system := chatInstruction
	if req.Profile != nil {
		verdict := s.CheckEligibility(*req.Profile)
		system += "\n\nUser profile:\n" + profileFacts(*req.Profile) +
			"\n\nPre-screening verdict:\n" + eligibility.Summary(verdict)
	}

	start := s.now()
	chunks := 0
	for text, err := range s.model.Stream(ctx, Prompt{System: system, Contents: contents}) {
		if err != nil {
			s.log.Warn("chat stream failed", zap.Int("chunks", chunks), zap.Error(err))
			return errors.Join(domain.ErrAssistantUnavailable, err)
		}
		if text == "" {
			continue
		}
		chunks++
		if err := emit(text); err != nil {
			return err
		}
	}
	s.log.Debug("chat completed", zap.Int("chunks", chunks), zap.Duration("took", s.now().Sub(start)))
	return nil
}

func (s *assistantService) CheckEligibility(req domain.EligibilityRequest) domain.EligibilityResult {
	return eligibility.Check(req, s.now())
}

func (s *assistantService) Transcribe(ctx context.Context, data []byte, mimeType string) (string, error) {
	text, err := s.model.Generate(ctx, Prompt{
		System:      transcribeInstruction,
		Contents:    []*genai.Content{genai.NewContentFromParts([]*genai.Part{genai.NewPartFromBytes(data, mimeType)}, genai.RoleUser)},
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return "", errors.Join(domain.ErrAssistantUnavailable, err)
	}
	return strings.TrimSpace(StripCodeFence(text)), nil
}

func (s *assistantService) ExtractReport(ctx context.Context, transcript string) (*domain.ReportExtraction, error) {
	text, err := s.model.Generate(ctx, Prompt{
		System:      extractInstruction,
		Contents:    []*genai.Content{genai.NewContentFromText(transcript, genai.RoleUser)},
		JSON:        true,
		Temperature: genai.Ptr[float32](0.1),
	})
	if err != nil {
		return nil, errors.Join(domain.ErrAssistantUnavailable, err)
	}

	var out domain.ReportExtraction
	if err := json.Unmarshal([]byte(StripCodeFence(text)), &out); err != nil {
		s.log.Warn("unparsable report extraction", zap.Int("length", len(text)), zap.Error(err))
		return nil, errors.Join(domain.ErrReportNotParsable, err)
	}
	return &out, nil
}

// StripCodeFence removes a surrounding markdown code fence, with or without a
// language tag, that models like to wrap JSON in.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimLeft(s, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func conversation(messages []domain.ChatMessage) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.RoleUser
		if m.Role == domain.ChatRoleAssistant {
			role = genai.RoleModel
		}

		parts := make([]*genai.Part, 0, 1+len(m.Attachments))
		if text := strings.TrimSpace(m.Content); text != "" {
			parts = append(parts, genai.NewPartFromText(text))
		}
		for _, a := range m.Attachments {
			parts = append(parts, genai.NewPartFromBytes(a.Data, a.MimeType))
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}

	if len(contents) == 0 || contents[len(contents)-1].Role != string(genai.RoleUser) {
		return nil, domain.ErrEmptyConversation
	}
	return contents, nil
}

func profileFacts(p domain.EligibilityRequest) string {
	facts := []string{
		fmt.Sprintf("age: %d", p.Age),
		fmt.Sprintf("weight: %.1f kg", p.WeightKg),
	}
	if p.HemoglobinGdL > 0 {
		facts = append(facts, fmt.Sprintf("hemoglobin: %.1f g/dL", p.HemoglobinGdL))
	}
	dates := []struct {
		label string
		at    *time.Time
	}{
		{"last whole blood donation", p.LastWholeBloodDonation},
		{"last platelet donation", p.LastPlateletDonation},
		{"last tattoo or piercing", p.LastTattooOrPiercing},
		{"last surgery", p.LastSurgery},
		{"last travel to a malaria area", p.LastMalariaAreaTravel},
	}
	for _, d := range dates {
		if d.at != nil {
			facts = append(facts, fmt.Sprintf("%s: %s", d.label, d.at.Format("2006-01-02")))
		}
	}
	return "- " + strings.Join(facts, "\n- ")
}
