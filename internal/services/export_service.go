package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/learnflow/lms-service/internal/models"
	"github.com/learnflow/lms-service/internal/repositories"
)

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

const (
	summarySheet   = "Summary"
	anomaliesSheet = "Anomalies"
)

// ExportUploadReport renders an owner-gated xlsx workbook with the upload's
// shape on one sheet and its anomalies on another.
func (s *exportService) ExportUploadReport(ctx context.Context, uploadID, userID string) ([]byte, string, error) {
	upload, err := s.repo.Upload().GetByIDWithAnomalies(ctx, nil, uploadID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, "", ErrUploadNotFound
		}
		return nil, "", fmt.Errorf("failed to get upload: %w", err)
	}
	if upload.UserID != userID {
		return nil, "", NewPermissionError(userID, uploadID, "upload", "export", "not the owner")
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), summarySheet)
	if err := writeSummarySheet(f, upload); err != nil {
		return nil, "", fmt.Errorf("failed to write summary sheet: %w", err)
	}

	if _, err := f.NewSheet(anomaliesSheet); err != nil {
		return nil, "", fmt.Errorf("failed to create anomalies sheet: %w", err)
	}
	if err := writeAnomaliesSheet(f, upload.Anomalies); err != nil {
		return nil, "", fmt.Errorf("failed to write anomalies sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to render workbook: %w", err)
	}

	name := upload.CustomFilename
	if name == "" {
		name = upload.Filename
	}
	filename := fmt.Sprintf("%s-report.xlsx", name)

	s.logger.Info("Upload report exported", "upload_id", uploadID, "anomalies", len(upload.Anomalies))
	return buf.Bytes(), filename, nil
}

func writeSummarySheet(f *excelize.File, upload *models.CsvUpload) error {
	rows := [][]interface{}{
		{"Field", "Value"},
		{"Upload ID", upload.ID},
		{"Filename", upload.Filename},
		{"Custom filename", upload.CustomFilename},
		{"Status", string(upload.Status)},
		{"File size (bytes)", upload.FileSize},
		{"Rows", upload.RowCount},
		{"Columns", upload.ColumnCount},
		{"Uploaded at", upload.UploadedAt.Format(time.RFC3339)},
		{"Anomalies", len(upload.Anomalies)},
	}
	if upload.ProcessedAt != nil {
		rows = append(rows, []interface{}{"Processed at", upload.ProcessedAt.Format(time.RFC3339)})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeAnomaliesSheet(f *excelize.File, anomalies []models.Anomaly) error {
	header := []interface{}{"Detected", "Type", "Week before", "Current", "Description", "Analysis"}
	if err := f.SetSheetRow(anomaliesSheet, "A1", &header); err != nil {
		return err
	}

	for i, a := range anomalies {
		row := []interface{}{
			a.DetectedDate.Format("2006-01-02"),
			a.AnomalyType,
			floatCell(a.WeekBeforeValue),
			floatCell(a.CurrentValue),
			a.Description,
			stringCell(a.Analysis),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(anomaliesSheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func floatCell(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func stringCell(v *string) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
