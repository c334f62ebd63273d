package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// BadgeIDLength is the fixed length of a badge identifier.
const BadgeIDLength = 8

// observationPattern matches a whole payload of the form "<station> <badge>".
// It is anchored at both ends so any leading or trailing byte turns the
// payload into an unmatched note.
var observationPattern = regexp.MustCompile(fmt.Sprintf(`^([%s]) ([A-Za-z0-9]{%d})$`, stationCodes(), BadgeIDLength))

func stationCodes() string {
	var b strings.Builder
	for _, st := range Stations {
		b.WriteString(string(st))
	}
	return b.String()
}

// Message is the classification of one decoded payload. Exactly one of the
// two shapes applies: Matched is true for a station observation (Station and
// BadgeID set), false for free text (Text set).
type Message struct {
	Matched bool
	Station Station
	BadgeID string
	Text    string
}

// ParseMessage classifies a decoded payload. It never fails: anything that
// is not exactly a station observation is returned as unmatched text.
func ParseMessage(payload string) Message {
	m := observationPattern.FindStringSubmatch(payload)
	if m == nil {
		return Message{Text: payload}
	}
	return Message{Matched: true, Station: Station(m[1]), BadgeID: m[2], Text: payload}
}
