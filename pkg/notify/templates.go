package notify

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// TemplatesConfig holds the alert message templates. Placeholders:
// {{patient}}, {{medication}}, {{dosage}}, {{due_time}}.
type TemplatesConfig struct {
	MissedDose   string `yaml:"missed_dose" json:"missed_dose"`
	ContactSMS   string `yaml:"contact_sms" json:"contact_sms"`
	CaregiverSMS string `yaml:"caregiver_sms" json:"caregiver_sms"`
}

type MessageParams struct {
	PatientName    string
	MedicationName string
	Dosage         string
	DueTime        time.Time
}

func LoadTemplates(path string) (TemplatesConfig, error) {
	if path == "" {
		return DefaultTemplates(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultTemplates(), err
	}

	var cfg TemplatesConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return TemplatesConfig{}, err
	}

	if cfg.MissedDose == "" || cfg.ContactSMS == "" || cfg.CaregiverSMS == "" {
		return TemplatesConfig{}, errors.New("incomplete alert templates")
	}

	return cfg, nil
}

func DefaultTemplates() TemplatesConfig {
	return TemplatesConfig{
		MissedDose:   "{{patient}} missed a dose of {{medication}} ({{dosage}}) due at {{due_time}}.",
		ContactSMS:   "CarePulse alert: {{patient}} has missed a scheduled dose of {{medication}} ({{dosage}}) due at {{due_time}}. Please check on them.",
		CaregiverSMS: "CarePulse caregiver alert: your patient {{patient}} missed {{medication}} ({{dosage}}) scheduled for {{due_time}}.",
	}
}

func (c TemplatesConfig) RenderMissedDose(p MessageParams) string {
	return render(c.MissedDose, p)
}

func (c TemplatesConfig) RenderContactSMS(p MessageParams) string {
	return render(c.ContactSMS, p)
}

func (c TemplatesConfig) RenderCaregiverSMS(p MessageParams) string {
	return render(c.CaregiverSMS, p)
}

func render(tpl string, p MessageParams) string {
	r := strings.NewReplacer(
		"{{patient}}", p.PatientName,
		"{{medication}}", p.MedicationName,
		"{{dosage}}", p.Dosage,
		"{{due_time}}", p.DueTime.Format("Mon, 02 Jan 2006 3:04 PM"),
	)
	return r.Replace(tpl)
}
