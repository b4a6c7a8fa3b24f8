// Package earnings computes the notional money a player "earns" while a
// bathroom timer session runs, derived from their configured salary.
package earnings

// Default salary parameters applied to profiles that never configured one.
const (
	DefaultMonthlySalaryCents = 300_000 // 3000.00 in minor units
	DefaultWorkDaysPerMonth   = 22
	DefaultWorkHoursPerDay    = 8.0
)

// Salary describes the inputs of the per-second rate.
type Salary struct {
	MonthlyCents     int64
	WorkDaysPerMonth int
	WorkHoursPerDay  float64
}

// Normalize substitutes defaults for missing or nonsensical values so a
// session can always be priced.
func (s Salary) Normalize() Salary {
	if s.MonthlyCents <= 0 {
		s.MonthlyCents = DefaultMonthlySalaryCents
	}
	if s.WorkDaysPerMonth <= 0 {
		s.WorkDaysPerMonth = DefaultWorkDaysPerMonth
	}
	if s.WorkHoursPerDay <= 0 {
		s.WorkHoursPerDay = DefaultWorkHoursPerDay
	}
	return s
}

// PerSecondRate returns the salary expressed in cents per worked second.
func PerSecondRate(s Salary) float64 {
	s = s.Normalize()
	secondsPerMonth := float64(s.WorkDaysPerMonth) * s.WorkHoursPerDay * 3600
	if secondsPerMonth <= 0 {
		return 0
	}
	return float64(s.MonthlyCents) / secondsPerMonth
}

// ForDuration returns the earnings in cents for a session of the given
// length. Negative durations earn nothing; results are truncated to whole
// cents.
func ForDuration(s Salary, durationSeconds int) int64 {
	if durationSeconds <= 0 {
		return 0
	}
	cents := PerSecondRate(s) * float64(durationSeconds)
	if cents < 0 {
		return 0
	}
	return int64(cents)
}
