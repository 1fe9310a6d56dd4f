// Package notify delivers verification codes and instructor approval notices.
package notify

import (
	"context"
	"time"
)

// Notification kinds, used in logs, metrics and queue events.
const (
	KindVerificationCode = "verification_code"
	KindApprovalRequest  = "approval_request"
	KindApprovalDecision = "approval_decision"
)

// ApprovalRequest tells the administrator that an instructor applied.
type ApprovalRequest struct {
	AdminEmail       string    `json:"adminEmail"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	Email            string    `json:"email"`
	CentreProfession string    `json:"centreProfession"`
	RequestedAt      time.Time `json:"requestedAt"`
	DashboardURL     string    `json:"dashboardUrl"`
}

// ApprovalDecision tells an instructor the outcome of their application.
type ApprovalDecision struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Approved  bool   `json:"approved"`
	LoginURL  string `json:"loginUrl"`
}

// Notifier delivers messages to an email address. Callers treat every
// failure as non-fatal.
type Notifier interface {
	SendVerificationCode(ctx context.Context, to, code string) error
	SendApprovalRequest(ctx context.Context, req ApprovalRequest) error
	SendApprovalDecision(ctx context.Context, d ApprovalDecision) error
}
