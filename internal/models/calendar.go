package models

// CalendarOption is one bookable (mentor, subject, slot) combination
type CalendarOption struct {
	MentorID    string            `json:"mentorId"`
	MentorName  string            `json:"mentorName"`
	SubjectID   string            `json:"subjectId"`
	SubjectName string            `json:"subjectName"`
	Slot        *AvailabilitySlot `json:"slot"`
}

// CalendarDay aggregates availability for one date
type CalendarDay struct {
	Date string `json:"date"`
	// PairCount is the number of distinct (mentor, subject) pairs bookable that day
	PairCount int              `json:"pairCount"`
	Options   []CalendarOption `json:"options"`
}

// Calendar is the projected availability for a date range
type Calendar struct {
	From string        `json:"from"`
	To   string        `json:"to"`
	Days []CalendarDay `json:"days"`
}
