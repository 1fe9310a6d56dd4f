package notify

import (
	"context"
	"log/slog"
)

// Console writes notifications to the log. It is the development driver and
// the fallback when a real transport fails.
type Console struct {
	logger *slog.Logger
}

// NewConsole creates a console notifier.
func NewConsole(logger *slog.Logger) *Console {
	return &Console{logger: logger}
}

func (c *Console) SendVerificationCode(ctx context.Context, to, code string) error {
	c.logger.InfoContext(ctx, "verification code", "to", to, "code", code, "valid_for", "10m")
	return nil
}

func (c *Console) SendApprovalRequest(ctx context.Context, req ApprovalRequest) error {
	c.logger.InfoContext(ctx, "instructor approval requested",
		"to", req.AdminEmail,
		"instructor", req.FirstName+" "+req.LastName,
		"email", req.Email,
		"centre", req.CentreProfession,
	)
	return nil
}

func (c *Console) SendApprovalDecision(ctx context.Context, d ApprovalDecision) error {
	c.logger.InfoContext(ctx, "instructor application decided", "to", d.Email, "approved", d.Approved)
	return nil
}
