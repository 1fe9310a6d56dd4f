package notify

import (
	"context"
	"log/slog"
)

// Fallback tries primary and, when it fails, hands the same notification to
// fallback so the content still reaches the log. The primary error is
// returned so callers can report that delivery was not confirmed.
type Fallback struct {
	primary  Notifier
	fallback Notifier
	logger   *slog.Logger
}

// WithFallback composes primary with fallback.
func WithFallback(primary, fallback Notifier, logger *slog.Logger) *Fallback {
	return &Fallback{primary: primary, fallback: fallback, logger: logger}
}

func (f *Fallback) degrade(ctx context.Context, kind string, err error, send func(Notifier) error) error {
	f.logger.WarnContext(ctx, "notifier failed, using fallback", "kind", kind, "error", err)
	if ferr := send(f.fallback); ferr != nil {
		f.logger.ErrorContext(ctx, "fallback notifier failed", "kind", kind, "error", ferr)
	}
	return err
}

func (f *Fallback) SendVerificationCode(ctx context.Context, to, code string) error {
	if err := f.primary.SendVerificationCode(ctx, to, code); err != nil {
		return f.degrade(ctx, KindVerificationCode, err, func(n Notifier) error {
			return n.SendVerificationCode(ctx, to, code)
		})
	}
	return nil
}

func (f *Fallback) SendApprovalRequest(ctx context.Context, req ApprovalRequest) error {
	if err := f.primary.SendApprovalRequest(ctx, req); err != nil {
		return f.degrade(ctx, KindApprovalRequest, err, func(n Notifier) error {
			return n.SendApprovalRequest(ctx, req)
		})
	}
	return nil
}

func (f *Fallback) SendApprovalDecision(ctx context.Context, d ApprovalDecision) error {
	if err := f.primary.SendApprovalDecision(ctx, d); err != nil {
		return f.degrade(ctx, KindApprovalDecision, err, func(n Notifier) error {
			return n.SendApprovalDecision(ctx, d)
		})
	}
	return nil
}
