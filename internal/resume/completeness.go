// Package resume scores how complete a job seeker's profile is.
package resume

import (
	"math"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
)

// slots is the number of equally weighted checklist entries.
const slots = 10

// Completeness returns the share of filled checklist slots as a percentage
// in [0, 100], rounded to the nearest integer. Phone and email share one
// slot, as do the two salary bounds.
func Completeness(s *domain.JobSeeker) int {
	if s == nil {
		return 0
	}
	checks := []bool{
		s.DisplayName != "",
		s.Phone != "" || s.Email != "",
		s.Education != "",
		s.Experience != "",
		s.Skills != "",
		s.PreferredArea != "",
		s.ExpectedSalaryMin != nil || s.ExpectedSalaryMax != nil,
		s.ResumeURL != "",
		!s.PreferredJobTypes.IsEmpty(),
		!s.TransitLines.IsEmpty(),
	}
	filled := 0
	for _, ok := range checks {
		if ok {
			filled++
		}
	}
	return int(math.Round(float64(filled) / slots * 100))
}
