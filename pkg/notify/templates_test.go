package notify

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultTemplatesRender(t *testing.T) {
	params := MessageParams{
		PatientName:    "Asha Patel",
		MedicationName: "Metformin",
		Dosage:         "500mg",
		DueTime:        time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}

	body := DefaultTemplates().RenderContactSMS(params)
	for _, want := range []string{"Asha Patel", "Metformin", "500mg", "Mon, 02 Mar 2026 9:00 AM"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q, got %q", want, body)
		}
	}
	if strings.Contains(body, "{{") {
		t.Fatalf("unresolved placeholder in %q", body)
	}
}

func TestLoadTemplatesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	content := `missed_dose: "missed {{medication}}"
contact_sms: "contact {{patient}}"
caregiver_sms: "caregiver {{patient}}"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadTemplates(path)
	if err != nil {
		t.Fatalf("failed to load templates: %v", err)
	}
	body := cfg.RenderMissedDose(MessageParams{MedicationName: "Metformin"})
	if body != "missed Metformin" {
		t.Fatalf("unexpected render: %q", body)
	}
}

func TestLoadTemplatesRejectsIncomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	if err := os.WriteFile(path, []byte(`missed_dose: "only this"`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTemplates(path); err == nil {
		t.Fatal("expected error for incomplete templates")
	}
}

func TestLoadTemplatesEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadTemplates("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg != DefaultTemplates() {
		t.Fatal("expected defaults for empty path")
	}
}
