package adherence

import (
	"testing"
	"time"

	"github.com/carepulse/platform/pkg/common/models"
)

func TestGenerateDoseTimesCounts(t *testing.T) {
	start := time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)

	cases := map[string]int{
		models.FrequencyOnceDaily:   30,
		models.FrequencyTwiceDaily:  60,
		models.FrequencyThriceDaily: 90,
	}
	for frequency, want := range cases {
		times, err := GenerateDoseTimes(frequency, start, 30)
		if err != nil {
			t.Fatalf("%s: %v", frequency, err)
		}
		if len(times) != want {
			t.Errorf("%s: expected %d dose times, got %d", frequency, want, len(times))
		}
	}
}

func TestGenerateDoseTimesSlots(t *testing.T) {
	start := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)

	times, err := GenerateDoseTimes(models.FrequencyThriceDaily, start, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(times) != 6 {
		t.Fatalf("expected 6 dose times, got %d", len(times))
	}

	// First day's slots land on the start date regardless of start time.
	wantHours := []int{9, 13, 18}
	for i, h := range wantHours {
		got := times[i]
		if got.Day() != 1 || got.Hour() != h || got.Minute() != 0 {
			t.Errorf("slot %d: expected day 1 hour %d, got %v", i, h, got)
		}
	}
	if times[3].Day() != 2 {
		t.Errorf("expected fourth slot on day 2, got %v", times[3])
	}
}

func TestGenerateDoseTimesUnknownFrequency(t *testing.T) {
	if _, err := GenerateDoseTimes("weekly", time.Now(), 30); err == nil {
		t.Fatal("expected error for unknown frequency")
	}
}

func TestValidFrequency(t *testing.T) {
	for _, frequency := range []string{models.FrequencyOnceDaily, models.FrequencyTwiceDaily, models.FrequencyThriceDaily} {
		if !ValidFrequency(frequency) {
			t.Errorf("expected %q to be valid", frequency)
		}
	}
	if ValidFrequency("hourly") {
		t.Error("expected hourly to be invalid")
	}
}
