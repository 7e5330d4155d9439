// Package matching compares one job seeker against one job posting along four
// independent axes. Every function is pure; missing or malformed input makes
// an axis false rather than producing an error.
package matching

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
)

// Criteria is the boolean match vector rendered as colored dots.
type Criteria struct {
	AreaMatch    bool `json:"areaMatch"`
	SkillsMatch  bool `json:"skillsMatch"`
	JobTypeMatch bool `json:"jobTypeMatch"`
	SalaryMatch  bool `json:"salaryMatch"`
}

// Count returns how many axes matched.
func (c Criteria) Count() int {
	n := 0
	for _, ok := range []bool{c.AreaMatch, c.SkillsMatch, c.JobTypeMatch, c.SalaryMatch} {
		if ok {
			n++
		}
	}
	return n
}

// Match computes the criteria for one (seeker, job) pair. A nil seeker or job
// yields an all-false vector.
func Match(seeker *domain.JobSeeker, job *domain.Job) Criteria {
	if seeker == nil || job == nil {
		return Criteria{}
	}
	return Criteria{
		AreaMatch:    AreaMatch(job.Location, seeker.PreferredArea),
		SkillsMatch:  SkillsMatch(job, seeker),
		JobTypeMatch: JobTypeMatch(job.JobType, seeker.PreferredJobTypes),
		SalaryMatch:  SalaryMatch(job, seeker),
	}
}

// AreaMatch is true when the normalized area equals the normalized location,
// or when any area token of two or more characters occurs in the location.
func AreaMatch(jobLocation, preferredArea string) bool {
	if strings.TrimSpace(preferredArea) == "" {
		return false
	}
	location := normalize(jobLocation)
	area := normalize(preferredArea)
	if location == area {
		return true
	}
	for _, word := range strings.Fields(area) {
		if utf8.RuneCountInString(word) >= 2 && strings.Contains(location, word) {
			return true
		}
	}
	return false
}

// SkillsMatch is true when at least one keyword of the job's requirements and
// description occurs in the seeker's skills and experience.
func SkillsMatch(job *domain.Job, seeker *domain.JobSeeker) bool {
	jobText := joinPresent(job.Requirements, job.Description)
	seekerText := joinPresent(seeker.Skills, seeker.Experience)
	if jobText == "" || seekerText == "" {
		return false
	}
	haystack := normalize(seekerText)
	for _, kw := range ExtractKeywords(jobText) {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

// JobTypeMatch is true when jobType is one of the preferred types.
func JobTypeMatch(jobType domain.JobType, preferred domain.JobTypeSet) bool {
	return preferred.Has(jobType)
}

// SalaryMatch compares the job's salary range with the seeker's expectation.
// A seeker without an expectation is satisfied by any stated job bound; a job
// without bounds never satisfies a stated expectation. Otherwise missing
// bounds default to [0, +inf) and the ranges must overlap.
func SalaryMatch(job *domain.Job, seeker *domain.JobSeeker) bool {
	jobStated := job.SalaryMin != nil || job.SalaryMax != nil
	if seeker.ExpectedSalaryMin == nil && seeker.ExpectedSalaryMax == nil {
		return jobStated
	}
	if !jobStated {
		return false
	}

	jobLow, jobHigh := bounds(job.SalaryMin, job.SalaryMax)
	seekerLow, seekerHigh := bounds(seeker.ExpectedSalaryMin, seeker.ExpectedSalaryMax)
	return jobHigh >= seekerLow && jobLow <= seekerHigh
}

// TransitCompatible reports whether a seeker can reach a job by rail. A job
// that declares no lines is reachable by anyone.
func TransitCompatible(seekerLines, jobLines domain.TransitLineSet) bool {
	if jobLines.IsEmpty() {
		return true
	}
	if seekerLines.IsEmpty() {
		return false
	}
	return jobLines.Intersects(seekerLines)
}

func bounds(low, high *int) (int, int) {
	l, h := 0, math.MaxInt
	if low != nil {
		l = *low
	}
	if high != nil {
		h = *high
	}
	return l, h
}

func joinPresent(parts ...string) string {
	present := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			present = append(present, p)
		}
	}
	return strings.Join(present, " ")
}

// normalize lowercases s and collapses runs of whitespace to one space.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
