package report

import (
	"context"
	"crimson-backend/domain"
	"crimson-backend/entities"
	"crimson-backend/internal/utils/storage"
	"crimson-backend/pkg/assistant"
	"crimson-backend/pkg/pinning"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	SourceFile = "file"
	SourceText = "text"
)

type (
	ReportService interface {
		Analyze(ctx context.Context, req domain.AnalyzeReportRequest, owner string) (*domain.ReportAnalysis, error)
		GetAnalysis(ctx context.Context, id, owner string) (*domain.ReportAnalysis, error)
		ListAnalyses(ctx context.Context, owner string, page, limit int) ([]*domain.ReportAnalysis, int64, error)
	}

	reportService struct {
		reportRepository ReportRepository
		pinService       pinning.PinService
		assistantService assistant.AssistantService
		log              *zap.Logger
	}
)

func NewReportService(reportRepository ReportRepository, pinService pinning.PinService, assistantService assistant.AssistantService, log *zap.Logger) ReportService {
	return &reportService{
		reportRepository: reportRepository,
		pinService:       pinService,
		assistantService: assistantService,
		log:              log,
	}
}

// Analyze reads a lab report, either an uploaded scan or pasted text, and
// extracts its blood test values. Uploaded scans are pinned before they are
// transcribed so the analysis can point back to the original.
func (s *reportService) Analyze(ctx context.Context, req domain.AnalyzeReportRequest, owner string) (*domain.ReportAnalysis, error) {
	owner = strings.ToLower(owner)
	row := &entities.ReportAnalysis{Owner: owner}

	switch {
	case req.File != nil:
		data, contentType, err := storage.ReadUpload(req.File, storage.AllowDocument...)
		if err != nil {
			return nil, err
		}
		pin, err := s.pinService.PinBytes(ctx, req.File.Filename, data, contentType, owner)
		if err != nil {
			return nil, err
		}
		transcript, err := s.assistantService.Transcribe(ctx, data, contentType)
		if err != nil {
			return nil, err
		}
		row.Source = SourceFile
		row.FileDigest = pin.Digest
		row.FileURI = pin.URI
		row.Transcript = transcript
	case strings.TrimSpace(req.Text) != "":
		row.Source = SourceText
		row.Transcript = strings.TrimSpace(req.Text)
	default:
		return nil, domain.ErrNoReportUploaded
	}

	if strings.TrimSpace(row.Transcript) == "" {
		s.log.Warn("report transcript empty", zap.String("owner", owner), zap.String("digest", row.FileDigest))
		return nil, domain.ErrReportUnreadable
	}

	extraction, err := s.assistantService.ExtractReport(ctx, row.Transcript)
	if err != nil {
		return nil, err
	}
	result, err := json.Marshal(extraction)
	if err != nil {
		return nil, fmt.Errorf("encode extraction: %w", err)
	}
	row.Result = string(result)

	if err := s.reportRepository.Create(ctx, row); err != nil {
		return nil, err
	}
	s.log.Info("report analysed", zap.String("id", row.ID.String()), zap.String("source", row.Source))
	return toDomainAnalysis(row, extraction), nil
}

func (s *reportService) GetAnalysis(ctx context.Context, id, owner string) (*domain.ReportAnalysis, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrParseUUID
	}
	row, err := s.reportRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// Someone else's analysis is reported as missing.
	if row == nil || row.Owner != strings.ToLower(owner) {
		return nil, domain.ErrReportNotFound
	}
	return s.decode(row), nil
}

func (s *reportService) ListAnalyses(ctx context.Context, owner string, page, limit int) ([]*domain.ReportAnalysis, int64, error) {
	rows, count, err := s.reportRepository.ListByOwner(ctx, strings.ToLower(owner), page, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*domain.ReportAnalysis, 0, len(rows))
	for _, row := range rows {
		out = append(out, s.decode(row))
	}
	return out, count, nil
}

func (s *reportService) decode(row *entities.ReportAnalysis) *domain.ReportAnalysis {
	var extraction *domain.ReportExtraction
	if row.Result != "" {
		extraction = new(domain.ReportExtraction)
		if err := json.Unmarshal([]byte(row.Result), extraction); err != nil {
			s.log.Error("stored report result corrupt", zap.String("id", row.ID.String()), zap.Error(err))
			extraction = nil
		}
	}
	return toDomainAnalysis(row, extraction)
}

func toDomainAnalysis(row *entities.ReportAnalysis, extraction *domain.ReportExtraction) *domain.ReportAnalysis {
	return &domain.ReportAnalysis{
		ID:         row.ID.String(),
		Owner:      row.Owner,
		Source:     row.Source,
		FileURI:    row.FileURI,
		Transcript: row.Transcript,
		Extraction: extraction,
		CreatedAt:  row.CreatedAt,
	}
}
