package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/learnflow/lms-service/internal/events"
	"github.com/learnflow/lms-service/internal/models"
	"github.com/learnflow/lms-service/internal/storage"
	"github.com/learnflow/lms-service/internal/validator"
)

type uploadFixture struct {
	repo      *mockRepository
	store     *storage.MemoryStore
	publisher *events.MockEventPublisher
	service   UploadService
}

func newUploadFixture(t *testing.T) *uploadFixture {
	t.Helper()
	logger := testLogger()
	repo := newMockRepository()
	store := storage.NewMemoryStore()
	publisher := events.NewMockEventPublisher(logger)
	svc := NewUploadService(repo, nil, store, publisher, logger, validator.New())
	return &uploadFixture{repo: repo, store: store, publisher: publisher, service: svc}
}

func ptrInt64(v int64) *int64 { return &v }
func ptrInt(v int) *int       { return &v }

func TestUploadService_Create_LimitBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		req      *validator.UploadCreateRequest
		wantRule string
	}{
		{
			name: "file size at limit",
			req:  &validator.UploadCreateRequest{Filename: "a.csv", FileSize: ptrInt64(models.MaxUploadFileSize)},
		},
		{
			name:     "file size over limit",
			req:      &validator.UploadCreateRequest{Filename: "a.csv", FileSize: ptrInt64(models.MaxUploadFileSize + 1)},
			wantRule: "max_file_size",
		},
		{
			name: "row count at limit",
			req:  &validator.UploadCreateRequest{Filename: "a.csv", RowCount: ptrInt(models.MaxUploadRowCount)},
		},
		{
			name:     "row count over limit",
			req:      &validator.UploadCreateRequest{Filename: "a.csv", RowCount: ptrInt(models.MaxUploadRowCount + 1)},
			wantRule: "max_row_count",
		},
		{
			name: "column count at limit",
			req:  &validator.UploadCreateRequest{Filename: "a.csv", ColumnCount: ptrInt(models.MaxUploadColumnCount)},
		},
		{
			name:     "column count over limit",
			req:      &validator.UploadCreateRequest{Filename: "a.csv", ColumnCount: ptrInt(models.MaxUploadColumnCount + 1)},
			wantRule: "max_column_count",
		},
		{
			name: "zero values are valid",
			req:  &validator.UploadCreateRequest{Filename: "a.csv", FileSize: ptrInt64(0), RowCount: ptrInt(0), ColumnCount: ptrInt(0)},
		},
		{
			name: "absent fields skip their checks",
			req:  &validator.UploadCreateRequest{Filename: "a.csv"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUploadFixture(t)
			resp, err := f.service.Create(context.Background(), tt.req, "user-1")
			if tt.wantRule == "" {
				if err != nil {
					t.Fatalf("create: %v", err)
				}
				if resp.ID == "" {
					t.Fatal("expected a server-generated id")
				}
				return
			}
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("error = %v, want ValidationErrors", err)
			}
			found := false
			for _, ve := range verrs {
				if ve.Rule == tt.wantRule {
					found = true
					if ve.Value == nil || ve.Allowed == nil {
						t.Fatalf("violation %q must carry observed and allowed values", tt.wantRule)
					}
				}
			}
			if !found {
				t.Fatalf("violations %v missing rule %q", verrs, tt.wantRule)
			}
		})
	}
}

func TestUploadService_Create_CollectsAllViolations(t *testing.T) {
	f := newUploadFixture(t)
	req := &validator.UploadCreateRequest{
		Filename:    "a.csv",
		FileSize:    ptrInt64(models.MaxUploadFileSize + 1),
		RowCount:    ptrInt(models.MaxUploadRowCount + 1),
		ColumnCount: ptrInt(models.MaxUploadColumnCount + 1),
	}
	_, err := f.service.Create(context.Background(), req, "user-1")
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("error = %v, want ValidationErrors", err)
	}
	if len(verrs) != 3 {
		t.Fatalf("violations = %d, want all 3 reported together", len(verrs))
	}
}

func TestUploadService_Create_RejectedWritesNothing(t *testing.T) {
	f := newUploadFixture(t)
	req := &validator.UploadCreateRequest{
		Filename:       "a.csv",
		FileSize:       ptrInt64(models.MaxUploadFileSize + 1),
		TimeSeriesData: []byte(`[{"v":1}]`),
	}
	if _, err := f.service.Create(context.Background(), req, "user-1"); err == nil {
		t.Fatal("expected a validation error")
	}
	if f.store.Len() != 0 {
		t.Fatal("a rejected submission must not reach storage")
	}
	if n := len(f.publisher.GetPublishedEvents()); n != 0 {
		t.Fatalf("published events = %d, want 0", n)
	}
}

func TestUploadService_Create_StorageCompensation(t *testing.T) {
	f := newUploadFixture(t)
	f.repo.failUploadCreate = fmt.Errorf("connection reset")

	req := &validator.UploadCreateRequest{
		Filename:       "a.csv",
		TimeSeriesData: []byte(`[{"v":1}]`),
	}
	if _, err := f.service.Create(context.Background(), req, "user-1"); err == nil {
		t.Fatal("expected the database failure to surface")
	}
	if f.store.Len() != 0 {
		t.Fatal("the stored artifact must be deleted when the row never lands")
	}
}

func TestUploadService_Create_StoreFailureSurfacesAsStorageError(t *testing.T) {
	f := newUploadFixture(t)
	f.store.FailPuts = true

	req := &validator.UploadCreateRequest{
		Filename:       "a.csv",
		TimeSeriesData: []byte(`[{"v":1}]`),
	}
	_, err := f.service.Create(context.Background(), req, "user-1")
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want StorageError", err)
	}
}

func TestUploadService_Create_PayloadMarksCompleted(t *testing.T) {
	f := newUploadFixture(t)
	resp, err := f.service.Create(context.Background(), &validator.UploadCreateRequest{
		Filename:       "a.csv",
		TimeSeriesData: []byte(`[{"v":1}]`),
	}, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.Status != models.UploadStatusCompleted {
		t.Fatalf("Status = %q, want %q", resp.Status, models.UploadStatusCompleted)
	}
	if resp.ProcessedAt == nil {
		t.Fatal("expected ProcessedAt to be set")
	}
	if !strings.HasPrefix(resp.StorageURL, "memory://uploads/user-1/") {
		t.Fatalf("StorageURL = %q", resp.StorageURL)
	}
	if f.store.Len() != 1 {
		t.Fatalf("stored artifacts = %d, want 1", f.store.Len())
	}
}

func TestUploadService_OwnershipGate(t *testing.T) {
	f := newUploadFixture(t)
	resp, err := f.service.Create(context.Background(), &validator.UploadCreateRequest{Filename: "a.csv"}, "owner-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.service.GetByID(context.Background(), resp.ID, "intruder"); err == nil {
		t.Fatal("expected a permission error")
	} else {
		var pe *PermissionError
		if !errors.As(err, &pe) {
			t.Fatalf("error = %v, want PermissionError", err)
		}
	}

	if _, err := f.service.GetByID(context.Background(), "missing", "owner-1"); !errors.Is(err, ErrUploadNotFound) {
		t.Fatalf("error = %v, want ErrUploadNotFound", err)
	}
}

func TestUploadService_Delete_CascadesAndCleansStorage(t *testing.T) {
	f := newUploadFixture(t)
	resp, err := f.service.Create(context.Background(), &validator.UploadCreateRequest{
		Filename:       "a.csv",
		TimeSeriesData: []byte(`[{"v":1}]`),
	}, "owner-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.service.AddAnomaly(context.Background(), resp.ID, "owner-1", &validator.AnomalyCreateRequest{
		AnomalyType:  "p50_median_spike",
		DetectedDate: "2026-02-14",
	}); err != nil {
		t.Fatalf("add anomaly: %v", err)
	}

	if err := f.service.Delete(context.Background(), resp.ID, "owner-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if f.store.Len() != 0 {
		t.Fatal("artifact must be removed with the upload")
	}
	if anomalies, _ := f.repo.Anomaly().ListByUpload(context.Background(), nil, resp.ID); len(anomalies) != 0 {
		t.Fatalf("anomalies = %d, want 0 after cascade", len(anomalies))
	}
}

func TestUploadService_AddAnomaly_DateFormat(t *testing.T) {
	f := newUploadFixture(t)
	resp, err := f.service.Create(context.Background(), &validator.UploadCreateRequest{Filename: "a.csv"}, "owner-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.service.AddAnomaly(context.Background(), resp.ID, "owner-1", &validator.AnomalyCreateRequest{
		AnomalyType:  "p50_median_spike",
		DetectedDate: "14/02/2026",
	})
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("error = %v, want ValidationErrors", err)
	}
	if verrs[0].Rule != "date_format" {
		t.Fatalf("rule = %q, want date_format", verrs[0].Rule)
	}

	anomaly, err := f.service.AddAnomaly(context.Background(), resp.ID, "owner-1", &validator.AnomalyCreateRequest{
		AnomalyType:  "p50_median_spike",
		DetectedDate: "2026-02-14",
	})
	if err != nil {
		t.Fatalf("add anomaly: %v", err)
	}
	if anomaly.DetectedDate.Format("2006-01-02") != "2026-02-14" {
		t.Fatalf("DetectedDate = %v", anomaly.DetectedDate)
	}
}

func TestUploadService_AnomalyOwnershipAcrossUploads(t *testing.T) {
	f := newUploadFixture(t)
	first, err := f.service.Create(context.Background(), &validator.UploadCreateRequest{Filename: "a.csv"}, "owner-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := f.service.Create(context.Background(), &validator.UploadCreateRequest{Filename: "b.csv"}, "owner-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	anomaly, err := f.service.AddAnomaly(context.Background(), first.ID, "owner-1", &validator.AnomalyCreateRequest{
		AnomalyType:  "p50_median_spike",
		DetectedDate: "2026-02-14",
	})
	if err != nil {
		t.Fatalf("add anomaly: %v", err)
	}

	// Addressing the anomaly through the wrong upload behaves like a miss.
	err = f.service.DeleteAnomaly(context.Background(), second.ID, anomaly.ID, "owner-1")
	if !errors.Is(err, ErrAnomalyNotFound) {
		t.Fatalf("error = %v, want ErrAnomalyNotFound", err)
	}
}
