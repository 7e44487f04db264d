package dateparse

import (
	"strings"
	"time"
)

// Deadline phrases come out of the analysis in whatever form was spoken:
// absolute dates, weekday words, or vague phrases. Resolve turns the
// unambiguous ones into absolute dates anchored at the meeting date and
// reports everything else as unresolved so the caller can keep the raw text
// instead of guessing.

var absoluteLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"2.1.2006",
	"02/01/2006",
}

// weekday words, English and German (the analysis output is bilingual)
var weekdays = map[string]time.Weekday{
	"monday":     time.Monday,
	"tuesday":    time.Tuesday,
	"wednesday":  time.Wednesday,
	"thursday":   time.Thursday,
	"friday":     time.Friday,
	"saturday":   time.Saturday,
	"sunday":     time.Sunday,
	"montag":     time.Monday,
	"dienstag":   time.Tuesday,
	"mittwoch":   time.Wednesday,
	"donnerstag": time.Thursday,
	"freitag":    time.Friday,
	"samstag":    time.Saturday,
	"sonntag":    time.Sunday,
}

// phrases that explicitly mean "no deadline"
var undefinedPhrases = map[string]bool{
	"":                true,
	"nicht definiert": true,
	"not defined":     true,
	"none":            true,
	"tbd":             true,
}

// Undefined reports whether the phrase explicitly states there is no
// deadline. These phrases are not ambiguous and must not be kept as raw
// text for review.
func Undefined(raw string) bool {
	return undefinedPhrases[strings.ToLower(strings.TrimSpace(raw))]
}

var strippedPrefixes = []string{
	"by ", "until ", "on ", "bis ", "am ", "next ", "nächsten ", "naechsten ", "kommenden ",
}

// Resolve parses a deadline phrase against an anchor date (the meeting
// date). The second return value is false when the phrase is empty,
// explicitly undefined, or too ambiguous to resolve without guessing.
func Resolve(raw string, anchor time.Time) (time.Time, bool) {
	phrase := strings.ToLower(strings.TrimSpace(raw))
	if undefinedPhrases[phrase] {
		return time.Time{}, false
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, phrase); err == nil {
			return t, true
		}
	}

	for _, prefix := range strippedPrefixes {
		phrase = strings.TrimPrefix(phrase, prefix)
	}

	switch phrase {
	case "today", "heute":
		return truncate(anchor), true
	case "tomorrow", "morgen":
		return truncate(anchor).AddDate(0, 0, 1), true
	}

	if wd, ok := weekdays[phrase]; ok {
		return nextWeekday(anchor, wd), true
	}

	// "next week", "soon", "asap" and the like stay raw
	return time.Time{}, false
}

// nextWeekday returns the first occurrence of wd strictly after the anchor
func nextWeekday(anchor time.Time, wd time.Weekday) time.Time {
	d := int(wd) - int(anchor.Weekday())
	if d <= 0 {
		d += 7
	}
	return truncate(anchor).AddDate(0, 0, d)
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
