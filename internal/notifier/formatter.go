package notifier

import (
	"bytes"
	"strings"
	"text/template"
	"time"
	"unicode"

	"licensetracker/internal/models"

	"github.com/pkg/errors"
)

var ErrEmptyBatch = errors.New("cannot format a message for zero licenses")

type tierCopy struct {
	Icon         string
	Headline     string
	CallToAction string
}

var tierMessages = map[models.NotificationTier]tierCopy{
	models.TierUrgent: {
		Icon:         "🚨",
		Headline:     "URGENT: License expires",
		CallToAction: "Please start the renewal process immediately.",
	},
	models.TierThirtyDay: {
		Icon:         "⚠️",
		Headline:     "License expiring",
		CallToAction: "Please prepare the renewal documents.",
	},
	models.TierFortyFiveDay: {
		Icon:     "🔔",
		Headline: "License expiring",
	},
	models.TierNinetyDay: {
		Icon:     "📋",
		Headline: "License expiring",
	},
}

type messageData struct {
	Icon         string
	Headline     string
	WithinDays   int
	CallToAction string
	Licenses     []models.EnrichedLicense
}

var manualCopy = tierCopy{Icon: "📌", Headline: "License expiry reminder"}

const messageTemplate = `{{.Icon}} {{.Headline}}{{with .WithinDays}} within {{.}} days{{end}}{{if gt (len .Licenses) 1}} ({{len .Licenses}} licenses){{end}}
{{range $i, $l := .Licenses}}
{{inc $i}}. Registration No: {{$l.RegistrationNo}}
   Company: {{company $l.CompanyName}}
   Category: {{tag $l.TagName}}
   Expires: {{expiry $l.ValidUntil}}
   Days remaining: {{$l.DaysRemaining}}
{{end}}{{with .CallToAction}}
{{.}}{{end}}`

var messageTmpl = template.Must(template.New("expiry-message").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"company": func(name string) string {
		if strings.TrimSpace(name) == "" {
			return "unspecified"
		}
		return name
	},
	"tag": func(name string) string {
		if strings.TrimSpace(name) == "" {
			return "-"
		}
		return name
	},
	"expiry": func(t time.Time) string {
		if t.IsZero() {
			return "not specified"
		}
		return t.Format("02 Jan 2006")
	},
}).Parse(messageTemplate))

// FormatMessage renders one plain-text message covering every license given.
// The headline window comes from thresholds. The result is not chunked;
// callers keep batches within the channel's size limit.
func FormatMessage(licenses []models.EnrichedLicense, tier models.NotificationTier, thresholds Thresholds) (string, error) {
	if len(licenses) == 0 {
		return "", ErrEmptyBatch
	}

	copyText, ok := tierMessages[tier]
	if !ok {
		copyText = manualCopy
	}

	withinDays, _ := thresholds.UpperBound(tier)

	var buf bytes.Buffer
	err := messageTmpl.Execute(&buf, messageData{
		Icon:         copyText.Icon,
		Headline:     copyText.Headline,
		WithinDays:   withinDays,
		CallToAction: copyText.CallToAction,
		Licenses:     licenses,
	})
	if err != nil {
		return "", errors.Wrap(err, "render expiry message")
	}

	return strings.TrimRightFunc(buf.String(), unicode.IsSpace), nil
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
