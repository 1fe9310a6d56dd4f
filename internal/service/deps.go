package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"formini/internal/auth"
	"formini/internal/logging"
	"formini/internal/metrics"
	"formini/internal/notify"
	"formini/internal/repository"
	"formini/internal/storage"
)

// DefaultBcryptCost is the cost used for stored password hashes.
const DefaultBcryptCost = 12

// CVStore keeps instructor CVs.
type CVStore interface {
	Save(ctx context.Context, ownerEmail string, upload storage.CVUpload) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Dependencies are the collaborators shared by the account services.
type Dependencies struct {
	Users      repository.UserRepository
	Tokens     *auth.JWTService
	Policy     auth.AdminPolicy
	Codes      auth.CodeGenerator
	Attempts   auth.AttemptStoreInterface
	CVs        CVStore
	Notifier   notify.Notifier
	Dispatcher *notify.Dispatcher
	Metrics    *metrics.Metrics
	Logger     *slog.Logger

	// FrontendURL is linked from notification emails.
	FrontendURL string
	// BcryptCost overrides DefaultBcryptCost; tests use bcrypt.MinCost.
	BcryptCost int
	// Clock defaults to time.Now.
	Clock func() time.Time
}

func (d *Dependencies) setDefaults() {
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Codes == nil {
		d.Codes = auth.NewCodeGeneratorWithClock(d.now)
	}
	if d.Attempts == nil {
		d.Attempts = auth.NoopAttemptStore{}
	}
	if d.Dispatcher == nil {
		d.Dispatcher = notify.NewDispatcher(d.Logger, d.Metrics, notify.DefaultTimeout)
	}
	if d.BcryptCost == 0 {
		d.BcryptCost = DefaultBcryptCost
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
}

func (d *Dependencies) now() time.Time {
	if d.Clock == nil {
		return time.Now()
	}
	return d.Clock()
}

func (d *Dependencies) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
