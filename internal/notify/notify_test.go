package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"formini/internal/config"
	"formini/internal/metrics"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// MockNotifier is a mock implementation of Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendVerificationCode(ctx context.Context, to, code string) error {
	args := m.Called(ctx, to, code)
	return args.Error(0)
}

func (m *MockNotifier) SendApprovalRequest(ctx context.Context, req ApprovalRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockNotifier) SendApprovalDecision(ctx context.Context, d ApprovalDecision) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func TestFallback_UsesFallbackOnFailure(t *testing.T) {
	primary := new(MockNotifier)
	fallback := new(MockNotifier)
	smtpErr := errors.New("connection refused")

	primary.On("SendVerificationCode", mock.Anything, "a@example.com", "123456").Return(smtpErr)
	fallback.On("SendVerificationCode", mock.Anything, "a@example.com", "123456").Return(nil)

	err := WithFallback(primary, fallback, discard).SendVerificationCode(context.Background(), "a@example.com", "123456")
	assert.ErrorIs(t, err, smtpErr)

	primary.AssertExpectations(t)
	fallback.AssertExpectations(t)
}

func TestFallback_SkipsFallbackOnSuccess(t *testing.T) {
	primary := new(MockNotifier)
	fallback := new(MockNotifier)
	d := ApprovalDecision{Email: "i@example.com", Approved: true}

	primary.On("SendApprovalDecision", mock.Anything, d).Return(nil)

	err := WithFallback(primary, fallback, discard).SendApprovalDecision(context.Background(), d)
	assert.NoError(t, err)
	fallback.AssertNotCalled(t, "SendApprovalDecision", mock.Anything, mock.Anything)
}

func TestDispatcher_SendReportsOutcome(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	d := NewDispatcher(discard, m, time.Second)
	ctx := context.Background()

	assert.True(t, d.Send(ctx, KindVerificationCode, func(context.Context) error { return nil }))
	assert.False(t, d.Send(ctx, KindVerificationCode, func(context.Context) error { return errors.New("down") }))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues(KindVerificationCode, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues(KindVerificationCode, "failure")))
}

func TestDispatcher_SendAppliesTimeout(t *testing.T) {
	d := NewDispatcher(discard, nil, 20*time.Millisecond)

	ok := d.Send(context.Background(), KindApprovalRequest, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.False(t, ok)
}

func TestDispatcher_SendUsesShortBound(t *testing.T) {
	d := NewDispatcher(discard, nil, time.Hour)

	var syncLeft, asyncLeft time.Duration
	d.Send(context.Background(), KindVerificationCode, func(ctx context.Context) error {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		syncLeft = time.Until(deadline)
		return nil
	})
	d.Go(context.Background(), KindApprovalRequest, func(ctx context.Context) error {
		deadline, _ := ctx.Deadline()
		asyncLeft = time.Until(deadline)
		return nil
	})
	d.Wait()

	assert.LessOrEqual(t, syncLeft, SyncTimeout)
	assert.Greater(t, asyncLeft, time.Minute)
}

func TestDispatcher_WithSyncTimeout(t *testing.T) {
	d := NewDispatcher(discard, nil, time.Hour).WithSyncTimeout(20 * time.Millisecond)

	start := time.Now()
	ok := d.Send(context.Background(), KindVerificationCode, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDispatcher_GoOutlivesCallerContext(t *testing.T) {
	d := NewDispatcher(discard, nil, time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	d.Go(ctx, KindApprovalRequest, func(ctx context.Context) error {
		time.Sleep(10 * time.Millisecond)
		done <- ctx.Err()
		return nil
	})
	cancel()
	d.Wait()

	assert.NoError(t, <-done)
}

type fakePublisher struct {
	key string
	msg amqp.Publishing
	err error
}

func (f *fakePublisher) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	f.key = key
	f.msg = msg
	return f.err
}

func TestQueuePublisher_PublishesJSONEvent(t *testing.T) {
	fake := &fakePublisher{}
	q := &QueuePublisher{channel: fake, queue: "formini.notifications"}

	req := ApprovalRequest{
		AdminEmail:       "admin@formini.com",
		FirstName:        "Ada",
		LastName:         "Lovelace",
		Email:            "ada@example.com",
		CentreProfession: "Maths Centre",
		RequestedAt:      time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC),
	}
	require.NoError(t, q.SendApprovalRequest(context.Background(), req))

	assert.Equal(t, "formini.notifications", fake.key)
	assert.Equal(t, "application/json", fake.msg.ContentType)
	assert.Equal(t, amqp.Persistent, fake.msg.DeliveryMode)

	var ev Event
	require.NoError(t, json.Unmarshal(fake.msg.Body, &ev))
	assert.Equal(t, KindApprovalRequest, ev.Kind)
	assert.Equal(t, "admin@formini.com", ev.To)
	assert.Contains(t, ev.Body, "Maths Centre")

	var data ApprovalRequest
	require.NoError(t, json.Unmarshal(ev.Data, &data))
	assert.Equal(t, "ada@example.com", data.Email)
}

func TestQueuePublisher_PropagatesError(t *testing.T) {
	q := &QueuePublisher{channel: &fakePublisher{err: amqp.ErrClosed}, queue: "q"}
	err := q.SendVerificationCode(context.Background(), "a@example.com", "123456")
	assert.ErrorIs(t, err, amqp.ErrClosed)
}

func TestMessages(t *testing.T) {
	msg, err := VerificationMessage("a@example.com", "482913")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", msg.To)
	assert.Contains(t, msg.Body, "482913")
	assert.Contains(t, msg.Body, "10 minutes")

	msg, err = ApprovalDecisionMessage(ApprovalDecision{FirstName: "Ada", Email: "ada@example.com", Approved: false})
	require.NoError(t, err)
	assert.Equal(t, "Formini - Application rejected", msg.Subject)
	assert.Contains(t, msg.Body, "rejected")
}

func TestBuildMessage(t *testing.T) {
	raw := string(buildMessage("noreply@formini.com", Message{
		To:      "a@example.com",
		Subject: "Formini - Verification code",
		Body:    "line one\nline two\n",
	}, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))

	assert.Contains(t, raw, "From: Formini <noreply@formini.com>\r\n")
	assert.Contains(t, raw, "To: a@example.com\r\n")
	assert.Contains(t, raw, "Content-Type: text/plain; charset=utf-8\r\n")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nline one\r\nline two\r\n"))
}

func TestNew_SelectsDriver(t *testing.T) {
	n, closer, err := New(configFor("console"), discard)
	require.NoError(t, err)
	assert.IsType(t, &Console{}, n)
	assert.NoError(t, closer.Close())

	_, _, err = New(configFor("pigeon"), discard)
	assert.Error(t, err)
}

func configFor(driver string) config.NotifierConfig {
	return config.NotifierConfig{Driver: driver}
}
