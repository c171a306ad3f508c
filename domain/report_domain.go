package domain

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"time"
)

var (
	MessageSuccessAnalyzeReport = "report analysed successfully"
	MessageSuccessGetReport     = "report analysis retrieved successfully"
	MessageSuccessGetReports    = "report analyses retrieved successfully"
	MessageFailedAnalyzeReport  = "failed to analyse report"
	MessageFailedGetReport      = "failed to retrieve report analysis"
	MessageFailedGetReports     = "failed to retrieve report analyses"

	ErrNoReportUploaded  = errors.New("no report uploaded")
	ErrReportUnreadable  = errors.New("no text could be read from the report")
	ErrReportNotFound    = errors.New("report analysis not found")
	ErrReportNotParsable = errors.New("assistant returned an unparsable report")
)

type (
	AnalyzeReportRequest struct {
		Text string                `json:"text" form:"text" validate:"omitempty,max=20000"`
		File *multipart.FileHeader `json:"file" form:"file"`
	}

	// Measurement fields are null when the report does not state them.
	Measurement struct {
		Value          *json.Number `json:"value"`
		ReferenceRange *string      `json:"reference_range"`
		Unit           *string      `json:"unit,omitempty"`
		Status         *string      `json:"status,omitempty"`
	}

	ReportDetails struct {
		PatientName    *string `json:"patient_name"`
		Age            *string `json:"age"`
		Gender         *string `json:"gender"`
		ReportDateTime *string `json:"report_date_time"`
	}

	ReportBloodGroup struct {
		Group    *string `json:"group"`
		RhFactor *string `json:"rh_factor"`
		Du       *string `json:"du"`
	}

	DifferentialWBCCount struct {
		Neutrophils *Measurement `json:"neutrophils"`
		Lymphocytes *Measurement `json:"lymphocytes"`
		Eosinophils *Measurement `json:"eosinophils"`
		Monocytes   *Measurement `json:"monocytes"`
		Basophils   *Measurement `json:"basophils"`
	}

	CompleteBloodCount struct {
		Hemoglobin                             *Measurement          `json:"hemoglobin"`
		RBCCount                               *Measurement          `json:"rbc_count"`
		PackedCellVolume                       *Measurement          `json:"packed_cell_volume"`
		MeanCorpuscularVolume                  *Measurement          `json:"mean_corpuscular_volume"`
		MeanCorpuscularHemoglobin              *Measurement          `json:"mean_corpuscular_hemoglobin"`
		MeanCorpuscularHemoglobinConcentration *Measurement          `json:"mean_corpuscular_hemoglobin_concentration"`
		RedCellDistributionWidth               *Measurement          `json:"red_cell_distribution_width"`
		WBCCount                               *Measurement          `json:"wbc_count"`
		DifferentialWBCCount                   *DifferentialWBCCount `json:"differential_wbc_count"`
		PlateletCount                          *Measurement          `json:"platelet_count"`
		ESR                                    *Measurement          `json:"esr"`
	}

	ReportExtraction struct {
		ReportDetails      *ReportDetails      `json:"report_details"`
		BloodGroup         *ReportBloodGroup   `json:"blood_group"`
		CompleteBloodCount *CompleteBloodCount `json:"complete_blood_count"`
		Interpretation     *string             `json:"interpretation"`
		Abnormalities      []string            `json:"abnormalities"`
	}

	ReportAnalysis struct {
		ID         string            `json:"id"`
		Owner      string            `json:"owner"`
		Source     string            `json:"source"`
		FileURI    string            `json:"file_uri,omitempty"`
		Transcript string            `json:"transcript"`
		Extraction *ReportExtraction `json:"extraction"`
		CreatedAt  time.Time         `json:"created_at"`
	}
)
