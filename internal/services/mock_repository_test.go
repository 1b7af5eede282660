package services

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/learnflow/lms-service/internal/models"
	"github.com/learnflow/lms-service/internal/repositories"
)

// mockRepository is an in-memory Repository used by the service tests. All
// operations are serialized through one mutex, which makes ResolveForAccess
// behave like the row-locked transaction it stands in for.
type mockRepository struct {
	mu sync.Mutex

	users       map[string]*models.User
	courses     map[string]*models.Course
	enrollments map[string]*models.CourseEnrollment
	quizzes     map[string]*models.Quiz
	quizResults map[string]*models.QuizResult
	uploads     map[string]*models.CsvUpload
	anomalies   map[string]*models.Anomaly
	shares      map[string]*models.SharedResult
	support     map[string]*models.SupportMessage

	// Forced failures
	failUploadCreate     error
	failEnrollmentCreate error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users:       make(map[string]*models.User),
		courses:     make(map[string]*models.Course),
		enrollments: make(map[string]*models.CourseEnrollment),
		quizzes:     make(map[string]*models.Quiz),
		quizResults: make(map[string]*models.QuizResult),
		uploads:     make(map[string]*models.CsvUpload),
		anomalies:   make(map[string]*models.Anomaly),
		shares:      make(map[string]*models.SharedResult),
		support:     make(map[string]*models.SupportMessage),
	}
}

func (m *mockRepository) User() repositories.UserRepository     { return &mockUserRepo{m} }
func (m *mockRepository) Course() repositories.CourseRepository { return &mockCourseRepo{m} }
func (m *mockRepository) Enrollment() repositories.EnrollmentRepository {
	return &mockEnrollmentRepo{m}
}
func (m *mockRepository) Quiz() repositories.QuizRepository { return &mockQuizRepo{m} }
func (m *mockRepository) QuizResult() repositories.QuizResultRepository {
	return &mockQuizResultRepo{m}
}
func (m *mockRepository) Upload() repositories.UploadRepository   { return &mockUploadRepo{m} }
func (m *mockRepository) Anomaly() repositories.AnomalyRepository { return &mockAnomalyRepo{m} }
func (m *mockRepository) SharedResult() repositories.SharedResultRepository {
	return &mockSharedResultRepo{m}
}
func (m *mockRepository) Support() repositories.SupportRepository     { return &mockSupportRepo{m} }
func (m *mockRepository) Dashboard() repositories.DashboardRepository { return &mockDashboardRepo{m} }

func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// ===== USERS =====

type mockUserRepo struct{ m *mockRepository }

func (r *mockUserRepo) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	ensureID(&user.ID)
	for _, u := range r.m.users {
		if u.ExternalID == user.ExternalID && user.ExternalID != "" {
			return repositories.ErrDuplicateKey
		}
	}
	cp := *user
	r.m.users[user.ID] = &cp
	return nil
}

func (r *mockUserRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *mockUserRepo) GetByExternalID(ctx context.Context, tx *gorm.DB, externalID string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.ExternalID == externalID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *mockUserRepo) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *user
	r.m.users[user.ID] = &cp
	return nil
}

func (r *mockUserRepo) SetApproval(ctx context.Context, tx *gorm.DB, id string, approved bool) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.IsApproved = approved
	return nil
}

func (r *mockUserRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.UserFilters) ([]*models.User, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.User
	for _, u := range r.m.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

// ===== COURSES =====

type mockCourseRepo struct{ m *mockRepository }

func (r *mockCourseRepo) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	ensureID(&course.ID)
	cp := *course
	r.m.courses[course.ID] = &cp
	return nil
}

func (r *mockCourseRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.courses[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *mockCourseRepo) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.courses[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.m.courses, id)
	return nil
}

func (r *mockCourseRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Course
	for _, c := range r.m.courses {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *mockCourseRepo) Exists(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	_, ok := r.m.courses[id]
	return ok, nil
}

// ===== ENROLLMENTS =====

type mockEnrollmentRepo struct{ m *mockRepository }

func (r *mockEnrollmentRepo) Create(ctx context.Context, tx *gorm.DB, enrollment *models.CourseEnrollment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failEnrollmentCreate != nil {
		return r.m.failEnrollmentCreate
	}
	for _, e := range r.m.enrollments {
		if e.UserID == enrollment.UserID && e.CourseID == enrollment.CourseID {
			return repositories.ErrDuplicateKey
		}
	}
	if _, ok := r.m.courses[enrollment.CourseID]; !ok {
		return repositories.ErrForeignKeyViolated
	}
	ensureID(&enrollment.ID)
	cp := *enrollment
	r.m.enrollments[enrollment.ID] = &cp
	return nil
}

func (r *mockEnrollmentRepo) GetByUserAndCourse(ctx context.Context, tx *gorm.DB, userID, courseID string) (*models.CourseEnrollment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, e := range r.m.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *mockEnrollmentRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.CourseEnrollment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.CourseEnrollment
	for _, e := range r.m.enrollments {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *mockEnrollmentRepo) UpdateProgress(ctx context.Context, tx *gorm.DB, id string, progress int, completed bool) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e, ok := r.m.enrollments[id]
	if !ok {
		return repositories.ErrNotFound
	}
	e.Progress = progress
	e.Completed = completed
	return nil
}

func (r *mockEnrollmentRepo) Exists(ctx context.Context, tx *gorm.DB, userID, courseID string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, e := range r.m.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

// ===== QUIZZES =====

type mockQuizRepo struct{ m *mockRepository }

func (r *mockQuizRepo) Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.courses[quiz.CourseID]; !ok {
		return repositories.ErrForeignKeyViolated
	}
	ensureID(&quiz.ID)
	cp := *quiz
	r.m.quizzes[quiz.ID] = &cp
	return nil
}

func (r *mockQuizRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Quiz, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	q, ok := r.m.quizzes[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (r *mockQuizRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseID string) ([]*models.Quiz, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Quiz
	for _, q := range r.m.quizzes {
		if q.CourseID == courseID {
			cp := *q
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *mockQuizRepo) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.quizzes[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.m.quizzes, id)
	return nil
}

type mockQuizResultRepo struct{ m *mockRepository }

func (r *mockQuizResultRepo) Create(ctx context.Context, tx *gorm.DB, result *models.QuizResult) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.quizzes[result.QuizID]; !ok {
		return repositories.ErrForeignKeyViolated
	}
	ensureID(&result.ID)
	cp := *result
	r.m.quizResults[result.ID] = &cp
	return nil
}

func (r *mockQuizResultRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.QuizResult, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.QuizResult
	for _, res := range r.m.quizResults {
		if res.UserID == userID {
			cp := *res
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *mockQuizResultRepo) ListByQuiz(ctx context.Context, tx *gorm.DB, quizID string) ([]*models.QuizResult, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.QuizResult
	for _, res := range r.m.quizResults {
		if res.QuizID == quizID {
			cp := *res
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ===== UPLOADS =====

type mockUploadRepo struct{ m *mockRepository }

func (r *mockUploadRepo) Create(ctx context.Context, tx *gorm.DB, upload *models.CsvUpload) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failUploadCreate != nil {
		return r.m.failUploadCreate
	}
	ensureID(&upload.ID)
	cp := *upload
	r.m.uploads[upload.ID] = &cp
	return nil
}

func (r *mockUploadRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.CsvUpload, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.uploads[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *mockUploadRepo) GetByIDWithAnomalies(ctx context.Context, tx *gorm.DB, id string) (*models.CsvUpload, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.uploads[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	cp.Anomalies = nil
	for _, a := range r.m.anomalies {
		if a.UploadID == id {
			cp.Anomalies = append(cp.Anomalies, *a)
		}
	}
	cp.AnomalyCount = len(cp.Anomalies)
	return &cp, nil
}

func (r *mockUploadRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters repositories.UploadFilters) ([]*models.CsvUpload, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.CsvUpload
	for _, u := range r.m.uploads {
		if u.UserID == userID {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *mockUploadRepo) Update(ctx context.Context, tx *gorm.DB, upload *models.CsvUpload) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.uploads[upload.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *upload
	r.m.uploads[upload.ID] = &cp
	return nil
}

func (r *mockUploadRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status models.UploadStatus, processedAt *time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.uploads[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.Status = status
	u.ProcessedAt = processedAt
	return nil
}

func (r *mockUploadRepo) UpdateCustomFilename(ctx context.Context, tx *gorm.DB, id, customFilename string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.uploads[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.CustomFilename = customFilename
	return nil
}

// Delete mirrors the cascade: anomalies and share grants of the upload go
// with it.
func (r *mockUploadRepo) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.uploads[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.m.uploads, id)
	for aid, a := range r.m.anomalies {
		if a.UploadID == id {
			delete(r.m.anomalies, aid)
		}
	}
	for sid, s := range r.m.shares {
		if s.UploadID == id {
			delete(r.m.shares, sid)
		}
	}
	return nil
}

func (r *mockUploadRepo) GetUserStats(ctx context.Context, tx *gorm.DB, userID string) (*repositories.UploadStats, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stats := &repositories.UploadStats{
		StatusBreakdown: make(map[models.UploadStatus]int),
	}
	for _, u := range r.m.uploads {
		if u.UserID != userID {
			continue
		}
		stats.TotalUploads++
		stats.TotalBytes += u.FileSize
		stats.StatusBreakdown[u.Status]++
		for _, a := range r.m.anomalies {
			if a.UploadID == u.ID {
				stats.TotalAnomalies++
			}
		}
	}
	return stats, nil
}

// ===== ANOMALIES =====

type mockAnomalyRepo struct{ m *mockRepository }

func (r *mockAnomalyRepo) Create(ctx context.Context, tx *gorm.DB, anomaly *models.Anomaly) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.uploads[anomaly.UploadID]; !ok {
		return repositories.ErrForeignKeyViolated
	}
	ensureID(&anomaly.ID)
	cp := *anomaly
	r.m.anomalies[anomaly.ID] = &cp
	return nil
}

func (r *mockAnomalyRepo) CreateBatch(ctx context.Context, tx *gorm.DB, anomalies []*models.Anomaly) error {
	for _, a := range anomalies {
		if err := r.Create(ctx, tx, a); err != nil {
			return err
		}
	}
	return nil
}

func (r *mockAnomalyRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Anomaly, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.anomalies[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *mockAnomalyRepo) ListByUpload(ctx context.Context, tx *gorm.DB, uploadID string) ([]*models.Anomaly, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Anomaly
	for _, a := range r.m.anomalies {
		if a.UploadID == uploadID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *mockAnomalyRepo) UpdateAnalysis(ctx context.Context, tx *gorm.DB, id string, analysis *string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.anomalies[id]
	if !ok {
		return repositories.ErrNotFound
	}
	a.Analysis = analysis
	return nil
}

func (r *mockAnomalyRepo) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.anomalies[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.m.anomalies, id)
	return nil
}

// ===== SHARED RESULTS =====

type mockSharedResultRepo struct{ m *mockRepository }

func (r *mockSharedResultRepo) Create(ctx context.Context, tx *gorm.DB, share *models.SharedResult) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.uploads[share.UploadID]; !ok {
		return repositories.ErrForeignKeyViolated
	}
	ensureID(&share.ID)
	if len(share.AccessLogs) == 0 {
		share.AccessLogs = datatypes.JSON([]byte("[]"))
	}
	cp := *share
	r.m.shares[share.ID] = &cp
	return nil
}

func (r *mockSharedResultRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.SharedResult, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.shares[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *mockSharedResultRepo) GetByToken(ctx context.Context, tx *gorm.DB, token string) (*models.SharedResult, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range r.m.shares {
		if s.ShareToken == token {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *mockSharedResultRepo) ListByUpload(ctx context.Context, tx *gorm.DB, uploadID string) ([]*models.SharedResult, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.SharedResult
	for _, s := range r.m.shares {
		if s.UploadID == uploadID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *mockSharedResultRepo) ListByCreator(ctx context.Context, tx *gorm.DB, creatorID string) ([]*models.SharedResult, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.SharedResult
	for _, s := range r.m.shares {
		if s.CreatedBy == creatorID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *mockSharedResultRepo) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.shares[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.m.shares, id)
	return nil
}

func (r *mockSharedResultRepo) ResolveForAccess(ctx context.Context, token string, entry models.AccessLogEntry) (*models.SharedResult, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range r.m.shares {
		if s.ShareToken != token {
			continue
		}
		var logs []models.AccessLogEntry
		if len(s.AccessLogs) > 0 {
			if err := json.Unmarshal(s.AccessLogs, &logs); err != nil {
				return nil, err
			}
		}
		logs = append(logs, entry)
		buf, err := json.Marshal(logs)
		if err != nil {
			return nil, err
		}
		s.ViewCount++
		s.AccessLogs = datatypes.JSON(buf)
		cp := *s
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

// ===== SUPPORT =====

type mockSupportRepo struct{ m *mockRepository }

func (r *mockSupportRepo) Create(ctx context.Context, tx *gorm.DB, message *models.SupportMessage) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	ensureID(&message.ID)
	cp := *message
	r.m.support[message.ID] = &cp
	return nil
}

func (r *mockSupportRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.SupportFilters) ([]*models.SupportMessage, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.SupportMessage
	for _, msg := range r.m.support {
		if filters.Status != nil && msg.Status != *filters.Status {
			continue
		}
		cp := *msg
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (r *mockSupportRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status models.SupportStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	msg, ok := r.m.support[id]
	if !ok {
		return repositories.ErrNotFound
	}
	msg.Status = status
	return nil
}

// ===== DASHBOARD =====

type mockDashboardRepo struct{ m *mockRepository }

func (r *mockDashboardRepo) GetAdminStats(ctx context.Context) (*repositories.AdminStats, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return &repositories.AdminStats{
		TotalUsers:     len(r.m.users),
		TotalCourses:   len(r.m.courses),
		TotalUploads:   len(r.m.uploads),
		TotalAnomalies: len(r.m.anomalies),
		TotalShares:    len(r.m.shares),
	}, nil
}

func (r *mockDashboardRepo) GetUserStats(ctx context.Context, userID string) (*repositories.UserStats, error) {
	return &repositories.UserStats{}, nil
}
