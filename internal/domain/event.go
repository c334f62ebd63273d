package domain

import "time"

// RawEvent is one received message exactly as it arrived, whether or not it
// parsed as a station observation. Raw events form the audit trail and are
// never updated or deleted.
type RawEvent struct {
	Time    time.Time
	Session Session
	Message string
}

// LogTimeLayout is the timestamp prefix of every text log line.
const LogTimeLayout = "2006-01-02 15:04:05"

// LogLineSeparator separates the timestamp from the message in a text log line.
const LogLineSeparator = " - "
