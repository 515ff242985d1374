package domain

import "time"

// ProviderStatus is the long-lived operational record for one provider.
// Schedule management mutates the configuration fields; the queue
// coordinator is the only writer of the counters.
type ProviderStatus struct {
	ProviderID              string
	DisplayName             string
	IsOpen                  bool
	DailyPatientLimit       int
	LastTicketNumber        int
	CurrentServingNumber    int
	TotalServedCount        int
	EstimatedServiceMinutes int
	CallTimeoutMinutes      int
	OpeningHour             int
	ClosingHour             int
	Timezone                string
	UpdatedAt               time.Time
}

// CallTimeout returns the no-show grace period.
func (p *ProviderStatus) CallTimeout() time.Duration {
	return time.Duration(p.CallTimeoutMinutes) * time.Minute
}

// Location resolves the provider's timezone, falling back to UTC.
func (p *ProviderStatus) Location() *time.Location {
	if p.Timezone != "" {
		if loc, err := time.LoadLocation(p.Timezone); err == nil {
			return loc
		}
	}
	return time.UTC
}

// DayWindow returns the half-open [startOfDay, endOfDay) interval that
// contains now in the provider's local calendar day. All "today" queries
// are scoped by this window; a new day simply yields an empty result set.
func (p *ProviderStatus) DayWindow(now time.Time) (time.Time, time.Time) {
	local := now.In(p.Location())
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	return start, start.AddDate(0, 0, 1)
}

// RemainingOperatingMinutes returns the whole minutes left until closing
// hour on the current local day. Zero when already past closing.
func (p *ProviderStatus) RemainingOperatingMinutes(now time.Time) int {
	local := now.In(p.Location())
	closing := p.ClosingHour*60 - (local.Hour()*60 + local.Minute())
	if closing < 0 {
		return 0
	}
	return closing
}

// HasTimeFor reports whether the remaining operating window can absorb the
// current waiting backlog plus one more patient.
func (p *ProviderStatus) HasTimeFor(backlog int, now time.Time) bool {
	if p.EstimatedServiceMinutes <= 0 {
		return true
	}
	return (backlog+1)*p.EstimatedServiceMinutes <= p.RemainingOperatingMinutes(now)
}
