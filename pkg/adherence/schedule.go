package adherence

import (
	"errors"
	"time"

	"github.com/carepulse/platform/pkg/common/models"
)

var errUnknownFrequency = errors.New("unknown medication frequency")

// Daily administration slots per frequency, as hours from midnight.
var slotHours = map[string][]int{
	models.FrequencyOnceDaily:   {9},
	models.FrequencyTwiceDaily:  {9, 18},
	models.FrequencyThriceDaily: {9, 13, 18},
}

// GenerateDoseTimes expands a frequency into concrete administration
// instants covering windowDays from the start date. Slots that fall in the
// past are generated too so the missed-dose detector can pick them up.
func GenerateDoseTimes(frequency string, startDate time.Time, windowDays int) ([]time.Time, error) {
	hours, ok := slotHours[frequency]
	if !ok {
		return nil, errUnknownFrequency
	}
	if windowDays <= 0 {
		windowDays = 30
	}

	day := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, startDate.Location())
	times := make([]time.Time, 0, windowDays*len(hours))
	for d := 0; d < windowDays; d++ {
		for _, h := range hours {
			times = append(times, day.AddDate(0, 0, d).Add(time.Duration(h)*time.Hour))
		}
	}
	return times, nil
}

// ValidFrequency reports whether the engine knows how to expand frequency
// into dose slots.
func ValidFrequency(frequency string) bool {
	_, ok := slotHours[frequency]
	return ok
}
