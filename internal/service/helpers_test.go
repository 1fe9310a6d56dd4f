package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"formini/internal/auth"
	"formini/internal/logging"
	"formini/internal/model"
	"formini/internal/notify"
	"formini/internal/repository"
	"formini/internal/storage"
)

const (
	testAdminEmail = "admin@formini.com"
	testSecret     = "test-secret"
	samplePDF      = "%PDF-1.4\n1 0 obj <<>> endobj\ntrailer <<>>\n%%EOF\n"
)

// MockNotifier is a mock implementation of notify.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendVerificationCode(ctx context.Context, to, code string) error {
	args := m.Called(ctx, to, code)
	return args.Error(0)
}

func (m *MockNotifier) SendApprovalRequest(ctx context.Context, req notify.ApprovalRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockNotifier) SendApprovalDecision(ctx context.Context, d notify.ApprovalDecision) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// failingCreateRepo rejects every Create.
type failingCreateRepo struct {
	*repository.MemoryUserRepository
	err error
}

func (r *failingCreateRepo) Create(context.Context, *model.User) error {
	return r.err
}

// countingCVStore wraps a real CV store and records deletions.
type countingCVStore struct {
	*storage.CVStore
	deleted []string
}

func (s *countingCVStore) Delete(ctx context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return s.CVStore.Delete(ctx, key)
}

type fixture struct {
	users    *repository.MemoryUserRepository
	notifier *MockNotifier
	cvs      *countingCVStore
	clock    *testClock
	tokens   *auth.JWTService
	policy   auth.AdminPolicy
	deps     Dependencies
	auth     AuthService
	admin    AdminService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		users:    repository.NewMemoryUserRepository(),
		notifier: new(MockNotifier),
		cvs:      &countingCVStore{CVStore: storage.NewCVStore(backend)},
		clock:    &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		policy:   auth.NewAdminPolicy(testAdminEmail),
	}
	f.tokens = auth.NewJWTServiceWithClock(testSecret, f.clock.Now)
	logger := logging.Discard()
	f.deps = Dependencies{
		Users:       f.users,
		Tokens:      f.tokens,
		Policy:      f.policy,
		CVs:         f.cvs,
		Notifier:    f.notifier,
		Dispatcher:  notify.NewDispatcher(logger, nil, time.Second),
		Logger:      logger,
		FrontendURL: "http://localhost:3000/",
		BcryptCost:  bcrypt.MinCost,
		Clock:       f.clock.Now,
	}
	f.auth = NewAuthService(f.deps)
	f.admin = NewAdminService(f.deps)
	return f
}

// wait blocks until every background notification has run.
func (f *fixture) wait() {
	f.deps.Dispatcher.Wait()
}

func (f *fixture) expectCodes() {
	f.notifier.On("SendVerificationCode", mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func (f *fixture) hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

// seedStudent stores a verified, active student with password.
func (f *fixture) seedStudent(t *testing.T, email, password string) *model.User {
	t.Helper()
	u := model.NewStudent("Sam", "Student", email, f.clock.Now())
	u.IsVerified = true
	u.PasswordHash = f.hash(t, password)
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) seedAdmin(t *testing.T, password string) *model.User {
	t.Helper()
	u := model.NewAdmin("Admin", "Formini", testAdminEmail, f.clock.Now())
	u.PasswordHash = f.hash(t, password)
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) seedInstructor(t *testing.T, email string, status model.RegistrationStatus) *model.User {
	t.Helper()
	key, err := f.cvs.Save(context.Background(), email, *pdfUpload())
	require.NoError(t, err)
	u := model.NewInstructor("Ines", "Teacher", email, "Math", key, f.clock.Now())
	u.PasswordHash = f.hash(t, "password123")
	u.Instructor.RegistrationStatus = status
	if status == model.RegistrationApproved {
		u.Status = model.StatusActive
		u.IsVerified = true
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) storedCode(t *testing.T, email string) string {
	t.Helper()
	u, err := f.users.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	require.NotEmpty(t, u.VerificationCode)
	return u.VerificationCode
}

func pdfUpload() *storage.CVUpload {
	return &storage.CVUpload{
		Filename:    "cv.pdf",
		ContentType: "application/pdf",
		Size:        int64(len(samplePDF)),
		Body:        strings.NewReader(samplePDF),
	}
}
