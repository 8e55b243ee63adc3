package task

import "github.com/rpggio/routine/internal/calendar"

// Status filters task listings.
type Status string

const (
	StatusAll      Status = "all"
	StatusPending  Status = "pending"
	StatusDone     Status = "done"
	StatusOverdue  Status = "overdue"
	StatusDueToday Status = "due_today"
	StatusUpcoming Status = "upcoming"
)

// ListOptions provides filtering options for listing tasks.
type ListOptions struct {
	Status Status
	// Today anchors the date-relative statuses; the service fills it in.
	Today  calendar.Date
	Limit  int
	Offset int
}

// ParseStatus maps a query value onto a Status; unknown values list all.
func ParseStatus(s string) Status {
	switch st := Status(s); st {
	case StatusPending, StatusDone, StatusOverdue, StatusDueToday, StatusUpcoming:
		return st
	default:
		return StatusAll
	}
}
