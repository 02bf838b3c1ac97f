package email

import (
	"bytes"
	"html/template"
	"log"
)

// TemplateManager holds the parsed email templates.
type TemplateManager struct {
	UrgentDigestTmpl *template.Template
	ClaimNoticeTmpl  *template.Template
}

// NewTemplateManager parses all email templates at startup.
func NewTemplateManager() (*TemplateManager, error) {
	urgentTmpl, err := template.New("urgentDigest").Parse(urgentDigestTemplate)
	if err != nil {
		return nil, err
	}

	claimTmpl, err := template.New("claimNotice").Parse(claimNoticeTemplate)
	if err != nil {
		return nil, err
	}

	log.Println("Email templates parsed successfully.")
	return &TemplateManager{
		UrgentDigestTmpl: urgentTmpl,
		ClaimNoticeTmpl:  claimTmpl,
	}, nil
}

// UrgentDigestData feeds the high-urgency dispatch digest.
type UrgentDigestData struct {
	RequestID   string
	MechanicIDs []string
}

// ClaimNoticeData feeds the claim notice sent to the dispatch desk.
type ClaimNoticeData struct {
	RequestID  string
	MechanicID string
	Status     string
}

// GenerateUrgentDigestHTML executes the high-urgency digest template.
func (tm *TemplateManager) GenerateUrgentDigestHTML(data UrgentDigestData) (string, error) {
	var body bytes.Buffer
	if err := tm.UrgentDigestTmpl.Execute(&body, data); err != nil {
		return "", err
	}
	return body.String(), nil
}

// GenerateClaimNoticeHTML executes the claim notice template.
func (tm *TemplateManager) GenerateClaimNoticeHTML(data ClaimNoticeData) (string, error) {
	var body bytes.Buffer
	if err := tm.ClaimNoticeTmpl.Execute(&body, data); err != nil {
		return "", err
	}
	return body.String(), nil
}

// --- HTML Template Definitions ---

const urgentDigestTemplate = `
<!DOCTYPE html>
<html>
<head>
	<title>Urgent Repair Request</title>
</head>
<body style="font-family: Arial, sans-serif;">
	<h2>High-urgency request {{.RequestID}}</h2>
	<p>The following mechanics were notified, best match first:</p>
	<ol>
	{{range .MechanicIDs}}<li>{{.}}</li>{{end}}
	</ol>
	<p>If nobody claims the request within 15 minutes, consider a manual dispatch.</p>
</body>
</html>
`

const claimNoticeTemplate = `
<!DOCTYPE html>
<html>
<head>
	<title>Request Claimed</title>
</head>
<body style="font-family: Arial, sans-serif;">
	<h2>Request {{.RequestID}} is now {{.Status}}</h2>
	<p>Mechanic {{.MechanicID}} has taken the job.</p>
</body>
</html>
`
