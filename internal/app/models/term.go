package models

import "time"

// Term is an academic term (semester) with its registration calendar.
type Term struct {
	ID                int64     `json:"id" db:"id"`
	Code              string    `json:"code" db:"code" example:"2025FA"`
	Name              string    `json:"name" db:"name" example:"Fall 2025"`
	StartDate         time.Time `json:"startDate" db:"start_date"`
	EndDate           time.Time `json:"endDate" db:"end_date"`
	RegistrationStart time.Time `json:"registrationStart" db:"registration_start"`
	RegistrationEnd   time.Time `json:"registrationEnd" db:"registration_end"`
	DropDeadline      time.Time `json:"dropDeadline" db:"drop_deadline"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
}

// RegistrationOpen reports whether now falls inside the registration window.
// Dates are inclusive: the window closes at the end of RegistrationEnd's day.
func (t *Term) RegistrationOpen(now time.Time) bool {
	return !now.Before(t.RegistrationStart) && now.Before(endOfDay(t.RegistrationEnd))
}

// DropAllowed reports whether an enrolled seat can still be dropped at now.
func (t *Term) DropAllowed(now time.Time) bool {
	return now.Before(endOfDay(t.DropDeadline))
}

// Contains reports whether day lies within [StartDate, EndDate].
func (t *Term) Contains(day time.Time) bool {
	return !day.Before(t.StartDate) && day.Before(endOfDay(t.EndDate))
}

func endOfDay(d time.Time) time.Time {
	y, m, dd := d.Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, d.Location()).AddDate(0, 0, 1)
}
