package notify

import (
	"bytes"
	"fmt"
	"text/template"
)

// Message is a rendered plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

var (
	verificationTmpl = template.Must(template.New("verification").Parse(
		`Hello,

Your Formini verification code is: {{.Code}}

The code is valid for 10 minutes. Do not share it with anyone.

Formini Platform
`))

	approvalRequestTmpl = template.Must(template.New("approval_request").Parse(
		`A new instructor has applied:

Name: {{.FirstName}} {{.LastName}}
Email: {{.Email}}
Centre / profession: {{.CentreProfession}}
Requested: {{.RequestedAt.Format "2006-01-02 15:04 MST"}}

Review the application from the administrator dashboard: {{.DashboardURL}}

Formini Platform
`))

	approvalDecisionTmpl = template.Must(template.New("approval_decision").Parse(
		`Hello {{.FirstName}} {{.LastName}},

{{if .Approved}}Your instructor application has been approved. You can now sign in: {{.LoginURL}}{{else}}Your instructor application has been rejected. Contact the administrator for more information.{{end}}

Formini Platform
`))
)

func render(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// VerificationMessage renders the verification code email.
func VerificationMessage(to, code string) (Message, error) {
	body, err := render(verificationTmpl, struct{ Code string }{code})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Formini - Verification code", Body: body}, nil
}

// ApprovalRequestMessage renders the administrator notice.
func ApprovalRequestMessage(req ApprovalRequest) (Message, error) {
	body, err := render(approvalRequestTmpl, req)
	if err != nil {
		return Message{}, err
	}
	return Message{To: req.AdminEmail, Subject: "Formini - New instructor application", Body: body}, nil
}

// ApprovalDecisionMessage renders the decision email.
func ApprovalDecisionMessage(d ApprovalDecision) (Message, error) {
	body, err := render(approvalDecisionTmpl, d)
	if err != nil {
		return Message{}, err
	}
	subject := "Formini - Application rejected"
	if d.Approved {
		subject = "Formini - Application approved"
	}
	return Message{To: d.Email, Subject: subject, Body: body}, nil
}
