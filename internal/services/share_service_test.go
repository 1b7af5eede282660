package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/learnflow/lms-service/internal/events"
	"github.com/learnflow/lms-service/internal/models"
	"github.com/learnflow/lms-service/internal/storage"
	"github.com/learnflow/lms-service/internal/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type shareFixture struct {
	repo      *mockRepository
	store     *storage.MemoryStore
	publisher *events.MockEventPublisher
	service   *shareService
}

func newShareFixture(t *testing.T) *shareFixture {
	t.Helper()
	logger := testLogger()
	repo := newMockRepository()
	store := storage.NewMemoryStore()
	publisher := events.NewMockEventPublisher(logger)
	svc := NewShareService(repo, nil, store, publisher, logger, validator.New()).(*shareService)
	return &shareFixture{repo: repo, store: store, publisher: publisher, service: svc}
}

func (f *shareFixture) seedUpload(t *testing.T, userID string) *models.CsvUpload {
	t.Helper()
	upload := &models.CsvUpload{
		UserID:         userID,
		Filename:       "latency.csv",
		FileSize:       1024,
		RowCount:       50,
		ColumnCount:    4,
		Status:         models.UploadStatusCompleted,
		TimeSeriesData: datatypes.JSON([]byte(`[{"date":"2026-01-01","value":12.5}]`)),
		UploadedAt:     time.Now().UTC(),
	}
	if err := f.repo.Upload().Create(context.Background(), nil, upload); err != nil {
		t.Fatalf("seed upload: %v", err)
	}
	return upload
}

func (f *shareFixture) createShare(t *testing.T, uploadID, userID string, perms models.SharePermission, exp models.ExpirationOption) *ShareResponse {
	t.Helper()
	resp, err := f.service.Create(context.Background(), uploadID, userID, &validator.ShareCreateRequest{
		Permissions:      perms,
		ExpirationOption: exp,
	})
	if err != nil {
		t.Fatalf("create share: %v", err)
	}
	return resp
}

func TestShareService_Create_TokenProperties(t *testing.T) {
	f := newShareFixture(t)
	upload := f.seedUpload(t, "owner-1")

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		resp := f.createShare(t, upload.ID, "owner-1", models.PermissionViewOnly, models.ExpireNever)
		if resp.ShareToken == "" {
			t.Fatal("expected a non-empty token")
		}
		// 32 random bytes in unpadded url-safe base64.
		if len(resp.ShareToken) != 43 {
			t.Fatalf("token length = %d, want 43", len(resp.ShareToken))
		}
		for _, c := range resp.ShareToken {
			if c == '+' || c == '/' || c == '=' {
				t.Fatalf("token %q contains a non-url-safe character", resp.ShareToken)
			}
		}
		if seen[resp.ShareToken] {
			t.Fatalf("token %q was minted twice", resp.ShareToken)
		}
		seen[resp.ShareToken] = true
	}
}

func TestShareService_Create_ExpirationOptions(t *testing.T) {
	f := newShareFixture(t)
	upload := f.seedUpload(t, "owner-1")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return base }

	tests := []struct {
		option models.ExpirationOption
		want   *time.Time
	}{
		{models.Expire24Hours, ptrTime(base.Add(24 * time.Hour))},
		{models.Expire7Days, ptrTime(base.Add(7 * 24 * time.Hour))},
		{models.Expire30Days, ptrTime(base.Add(30 * 24 * time.Hour))},
		{models.ExpireNever, nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.option), func(t *testing.T) {
			resp := f.createShare(t, upload.ID, "owner-1", models.PermissionViewOnly, tt.option)
			if tt.want == nil {
				if resp.ExpiresAt != nil {
					t.Fatalf("ExpiresAt = %v, want nil", resp.ExpiresAt)
				}
				return
			}
			if resp.ExpiresAt == nil || !resp.ExpiresAt.Equal(*tt.want) {
				t.Fatalf("ExpiresAt = %v, want %v", resp.ExpiresAt, tt.want)
			}
		})
	}
}

func TestShareService_Create_Permissions(t *testing.T) {
	f := newShareFixture(t)
	upload := f.seedUpload(t, "owner-1")

	if _, err := f.service.Create(context.Background(), upload.ID, "intruder", &validator.ShareCreateRequest{
		Permissions:      models.PermissionViewOnly,
		ExpirationOption: models.ExpireNever,
	}); err == nil {
		t.Fatal("expected a permission error for a non-owner")
	} else {
		var pe *PermissionError
		if !errors.As(err, &pe) {
			t.Fatalf("error = %v, want PermissionError", err)
		}
	}

	if _, err := f.service.Create(context.Background(), "missing", "owner-1", &validator.ShareCreateRequest{
		Permissions:      models.PermissionViewOnly,
		ExpirationOption: models.ExpireNever,
	}); !errors.Is(err, ErrUploadNotFound) {
		t.Fatalf("error = %v, want ErrUploadNotFound", err)
	}

	if _, err := f.service.Create(context.Background(), upload.ID, "owner-1", &validator.ShareCreateRequest{
		Permissions:      "admin",
		ExpirationOption: models.ExpireNever,
	}); err == nil {
		t.Fatal("expected a validation error for an unknown permission")
	}
}

func TestShareService_Resolve_ExpiryBoundaries(t *testing.T) {
	f := newShareFixture(t)
	upload := f.seedUpload(t, "owner-1")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return base }
	resp := f.createShare(t, upload.ID, "owner-1", models.PermissionViewOnly, models.Expire24Hours)

	// One second inside the window still resolves.
	f.service.now = func() time.Time { return base.Add(23*time.Hour + 59*time.Minute + 59*time.Second) }
	if _, err := f.service.Resolve(context.Background(), resp.ShareToken, models.AccessLogEntry{}); err != nil {
		t.Fatalf("resolve inside window: %v", err)
	}

	// One second past the window is expired, and the expiry does not count
	// as a view.
	f.service.now = func() time.Time { return base.Add(24*time.Hour + time.Second) }
	if _, err := f.service.Resolve(context.Background(), resp.ShareToken, models.AccessLogEntry{}); !errors.Is(err, ErrShareExpired) {
		t.Fatalf("error = %v, want ErrShareExpired", err)
	}

	share, err := f.repo.SharedResult().GetByID(context.Background(), nil, resp.ID)
	if err != nil {
		t.Fatalf("get share: %v", err)
	}
	if share.ViewCount != 1 {
		t.Fatalf("ViewCount = %d, want 1 (the expired attempt must not count)", share.ViewCount)
	}
}

func TestShareService_Resolve_NeverExpires(t *testing.T) {
	f := newShareFixture(t)
	upload := f.seedUpload(t, "owner-1")
	resp := f.createShare(t, upload.ID, "owner-1", models.PermissionViewOnly, models.ExpireNever)

	f.service.now = func() time.Time { return time.Date(2126, 1, 1, 0, 0, 0, 0, time.UTC) }
	view, err := f.service.Resolve(context.Background(), resp.ShareToken, models.AccessLogEntry{})
	if err != nil {
		t.Fatalf("resolve a century later: %v", err)
	}
	if view.Filename != upload.Filename {
		t.Fatalf("Filename = %q, want %q", view.Filename, upload.Filename)
	}
}

func TestShareService_Resolve_UnknownToken(t *testing.T) {
	f := newShareFixture(t)
	f.seedUpload(t, "owner-1")

	if _, err := f.service.Resolve(context.Background(), "no-such-token", models.AccessLogEntry{}); !errors.Is(err, ErrShareNotFound) {
		t.Fatalf("error = %v, want ErrShareNotFound", err)
	}
}

func TestShareService_Resolve_ScopedProjection(t *testing.T) {
	f := newShareFixture(t)
	upload := f.seedUpload(t, "owner-1")
	resp := f.createShare(t, upload.ID, "owner-1", models.PermissionViewOnly, models.ExpireNever)

	view, err := f.service.Resolve(context.Background(), resp.ShareToken, models.AccessLogEntry{RemoteAddr: "10.0.0.1"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if view.RowCount != upload.RowCount || view.ColumnCount != upload.ColumnCount {
		t.Fatal("shape fields missing from shared view")
	}
	if view.Anomalies == nil {
		t.Fatal("Anomalies must be an empty slice, not nil")
	}
	if view.TimeSeriesData == nil {
		t.Fatal("expected the payload in the shared view")
	}
}

func TestShareService_Resolve_ConcurrentViewCounting(t *testing.T) {
	f := newShareFixture(t)
	upload := f.seedUpload(t, "owner-1")
	resp := f.createShare(t, upload.ID, "owner-1", models.PermissionViewOnly, models.ExpireNever)

	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Resolve(context.Background(), resp.ShareToken, models.AccessLogEntry{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent resolve: %v", err)
		}
	}

	share, err := f.repo.SharedResult().GetByID(context.Background(), nil, resp.ID)
	if err != nil {
		t.Fatalf("get share: %v", err)
	}
	if share.ViewCount != n {
		t.Fatalf("ViewCount = %d, want %d", share.ViewCount, n)
	}
	logs, err := share.DecodedAccessLogs()
	if err != nil {
		t.Fatalf("decode access logs: %v", err)
	}
	if len(logs) != n {
		t.Fatalf("access log entries = %d, want %d", len(logs), n)
	}
}

func TestShareService_ResolveDownload_PermissionGate(t *testing.T) {
	f := newShareFixture(t)
	upload := f.seedUpload(t, "owner-1")

	viewOnly := f.createShare(t, upload.ID, "owner-1", models.PermissionViewOnly, models.ExpireNever)
	if _, _, err := f.service.ResolveDownload(context.Background(), viewOnly.ShareToken, models.AccessLogEntry{}); !errors.Is(err, ErrDownloadForbidden) {
		t.Fatalf("error = %v, want ErrDownloadForbidden", err)
	}

	downloadable := f.createShare(t, upload.ID, "owner-1", models.PermissionViewDownload, models.ExpireNever)
	rc, filename, err := f.service.ResolveDownload(context.Background(), downloadable.ShareToken, models.AccessLogEntry{})
	if err != nil {
		t.Fatalf("resolve download: %v", err)
	}
	defer rc.Close()
	if filename != "latency.csv.json" {
		t.Fatalf("filename = %q", filename)
	}
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read payload: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected a non-empty payload")
	}
}

func TestShareService_ResolveDownload_RecordsAccess(t *testing.T) {
	f := newShareFixture(t)
	upload := f.seedUpload(t, "owner-1")
	resp := f.createShare(t, upload.ID, "owner-1", models.PermissionViewDownload, models.ExpireNever)

	rc, _, err := f.service.ResolveDownload(context.Background(), resp.ShareToken, models.AccessLogEntry{RemoteAddr: "10.0.0.2"})
	if err != nil {
		t.Fatalf("resolve download: %v", err)
	}
	rc.Close()

	share, err := f.repo.SharedResult().GetByID(context.Background(), nil, resp.ID)
	if err != nil {
		t.Fatalf("get share: %v", err)
	}
	if share.ViewCount != 1 {
		t.Fatalf("ViewCount = %d, want 1 after a download", share.ViewCount)
	}
	logs, err := share.DecodedAccessLogs()
	if err != nil {
		t.Fatalf("decode access logs: %v", err)
	}
	if len(logs) != 1 || logs[0].RemoteAddr != "10.0.0.2" {
		t.Fatalf("access logs = %+v, want one entry from 10.0.0.2", logs)
	}

	// A forbidden attempt against a view-only grant leaves its trail empty.
	viewOnly := f.createShare(t, upload.ID, "owner-1", models.PermissionViewOnly, models.ExpireNever)
	if _, _, err := f.service.ResolveDownload(context.Background(), viewOnly.ShareToken, models.AccessLogEntry{}); !errors.Is(err, ErrDownloadForbidden) {
		t.Fatalf("error = %v, want ErrDownloadForbidden", err)
	}
	share, err = f.repo.SharedResult().GetByID(context.Background(), nil, viewOnly.ID)
	if err != nil {
		t.Fatalf("get view-only share: %v", err)
	}
	if share.ViewCount != 0 {
		t.Fatalf("ViewCount = %d, want 0 (the forbidden attempt must not count)", share.ViewCount)
	}
}

func TestShareService_Revoke(t *testing.T) {
	f := newShareFixture(t)
	upload := f.seedUpload(t, "owner-1")
	resp := f.createShare(t, upload.ID, "owner-1", models.PermissionViewOnly, models.ExpireNever)

	if err := f.service.Revoke(context.Background(), resp.ID, "intruder"); err == nil {
		t.Fatal("expected a permission error for a non-creator")
	}
	if err := f.service.Revoke(context.Background(), resp.ID, "owner-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := f.service.Resolve(context.Background(), resp.ShareToken, models.AccessLogEntry{}); !errors.Is(err, ErrShareNotFound) {
		t.Fatalf("error = %v, want ErrShareNotFound after revocation", err)
	}
}

func TestShareService_StaleTokenAfterUploadDelete(t *testing.T) {
	f := newShareFixture(t)
	upload := f.seedUpload(t, "owner-1")
	resp := f.createShare(t, upload.ID, "owner-1", models.PermissionViewOnly, models.ExpireNever)

	if err := f.repo.Upload().Delete(context.Background(), nil, upload.ID); err != nil {
		t.Fatalf("delete upload: %v", err)
	}
	if _, err := f.service.Resolve(context.Background(), resp.ShareToken, models.AccessLogEntry{}); !errors.Is(err, ErrShareNotFound) {
		t.Fatalf("error = %v, want ErrShareNotFound for a cascaded token", err)
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
