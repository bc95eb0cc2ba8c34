package scheduling

import (
	"fmt"
	"iter"
	"time"
)

// WorkingHours bounds the slots offered for booking. End is exclusive.
type WorkingHours struct {
	Start Clock
	End   Clock
}

// DefaultWorkingHours is the practice's usual day, 09:00 to 20:00.
var DefaultWorkingHours = WorkingHours{Start: NewClock(9, 0), End: NewClock(20, 0)}

// IsBookable reports whether candidate overlaps none of existing.
func IsBookable(candidate TimeRange, existing []TimeRange) bool {
	_, clash := firstOverlap(candidate, existing)
	return !clash
}

// CheckBookable returns an error wrapping ErrSlotConflict naming the first range candidate overlaps.
func CheckBookable(candidate TimeRange, existing []TimeRange) error {
	if err := candidate.Validate(); err != nil {
		return err
	}
	if taken, clash := firstOverlap(candidate, existing); clash {
		return fmt.Errorf("%w: %s overlaps %s", ErrSlotConflict, candidate, taken)
	}
	return nil
}

func firstOverlap(candidate TimeRange, existing []TimeRange) (TimeRange, bool) {
	for _, e := range existing {
		if candidate.Overlaps(e) {
			return e, true
		}
	}
	return TimeRange{}, false
}

// SuggestSlots yields, in ascending order, every slotMinutes-long slot inside hours that
// does not overlap existing. A non-positive slotMinutes falls back to DefaultSlotMinutes.
// The sequence can be ranged over any number of times.
func SuggestSlots(existing []TimeRange, hours WorkingHours, slotMinutes int) iter.Seq[TimeRange] {
	if slotMinutes <= 0 {
		slotMinutes = DefaultSlotMinutes
	}
	taken := append([]TimeRange(nil), existing...)
	step := Clock(slotMinutes)
	return func(yield func(TimeRange) bool) {
		for start := hours.Start; start+step <= hours.End && start+step < minutesPerDay; start += step {
			candidate := TimeRange{Start: start, End: start + step}
			if !IsBookable(candidate, taken) {
				continue
			}
			if !yield(candidate) {
				return
			}
		}
	}
}

// CandidateFromSelection turns a region picked on the calendar into a range of the given
// length. A non-positive minutes falls back to DefaultSlotMinutes.
func CandidateFromSelection(start time.Time, minutes int) (TimeRange, error) {
	if minutes <= 0 {
		minutes = DefaultSlotMinutes
	}
	label, err := Encode(start, minutes)
	if err != nil {
		return TimeRange{}, err
	}
	return ParseTimeRange(label)
}

// BookedRanges parses the labels of the appointments already on a day. Labels that do not
// parse are skipped and returned separately so callers can report them.
func BookedRanges(labels []string) (ranges []TimeRange, invalid []string) {
	for _, label := range labels {
		tr, err := ParseTimeRange(label)
		if err != nil {
			invalid = append(invalid, label)
			continue
		}
		ranges = append(ranges, tr)
	}
	return ranges, invalid
}
