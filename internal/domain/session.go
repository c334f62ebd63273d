package domain

import "time"

// Session is the logical day that groups records and names rotated log files.
// It is a calendar date in the location of the timestamp it was taken from.
type Session struct {
	Year  int
	Month time.Month
	Day   int
}

// SessionOf returns the session that t falls in.
func SessionOf(t time.Time) Session {
	y, m, d := t.Date()
	return Session{Year: y, Month: m, Day: d}
}

// Time returns midnight UTC of the session date, the form stored in DATE columns.
func (s Session) Time() time.Time {
	return time.Date(s.Year, s.Month, s.Day, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether s is the zero Session.
func (s Session) IsZero() bool {
	return s == Session{}
}

// String formats the session as "2006-01-02".
func (s Session) String() string {
	return s.Time().Format(time.DateOnly)
}

// FileTag formats the session as "01.02.06", the form used in text log file names.
func (s Session) FileTag() string {
	return s.Time().Format("01.02.06")
}
