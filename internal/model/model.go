// Package model contains the canonical event shape shared by all sources.
package model

// Event is one entry of the persisted feed. The JSON field names are the
// external contract consumed by the site and must not change.
//
// StartDate and EndDate are naive local strings: "2006-01-02" for all-day
// events, "2006-01-02T15:04" when a time is known. No timezone offset is
// stored. The fixed zero-padded layout means lexicographic order on
// StartDate is chronological order.
type Event struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
	Location       string `json:"location"`
	Description    string `json:"description"`
	Organizer      string `json:"organizer"`
	OrganizerLink  string `json:"organizerLink"`
	Link           string `json:"link"`
	ForMembersOnly bool   `json:"forMembersOnly"`
}
