package timeslot

import (
	"sort"
	"time"
)

// Work-hour defaults for slot discovery. The office schedule runs
// 09:00-20:00 JST; explicit busy intervals are the only other constraint
// (no implicit lunch break).
const (
	DefaultWorkStartHour = 9
	DefaultWorkEndHour   = 20

	// slotStride is the increment between candidate slot starts.
	slotStride = 30 * time.Minute
)

// FindFreeSlots computes candidate meeting slots of exactly duration within
// [rangeStart, rangeEnd), clamped to [workStartHour, workEndHour) on the
// range's calendar day, avoiding all busy intervals.
//
// The algorithm sorts busy intervals by start and sweeps left to right,
// emitting a slot every 30 minutes wherever the requested duration fits
// before the next busy interval (or the window end). The cursor only ever
// moves forward, so overlapping or unsorted busy input is handled.
// Returned slots are non-overlapping with every busy interval, exactly
// duration long, and ordered by start time.
func FindFreeSlots(busy []Interval, rangeStart, rangeEnd time.Time, duration time.Duration, workStartHour, workEndHour int) []Interval {
	day := rangeStart.In(JST)
	windowStart := time.Date(day.Year(), day.Month(), day.Day(), workStartHour, 0, 0, 0, JST)
	windowEnd := time.Date(day.Year(), day.Month(), day.Day(), workEndHour, 0, 0, 0, JST)

	if rangeStart.After(windowStart) {
		windowStart = rangeStart
	}
	if rangeEnd.Before(windowEnd) {
		windowEnd = rangeEnd
	}
	if !windowStart.Before(windowEnd) {
		return nil
	}

	sorted := make([]Interval, len(busy))
	copy(sorted, busy)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	var slots []Interval
	cursor := windowStart

	for _, b := range sorted {
		// Emit slots in the gap before this busy interval.
		if !cursor.Add(duration).After(b.Start) {
			for start := cursor; !start.Add(duration).After(b.Start) && !start.Add(duration).After(windowEnd); start = start.Add(slotStride) {
				slots = append(slots, Interval{Start: start, End: start.Add(duration)})
			}
		}

		// Advance past the busy interval, never backward.
		if b.End.After(cursor) {
			cursor = b.End
		}
	}

	// Remaining gap after the last busy interval.
	for start := cursor; !start.Add(duration).After(windowEnd); start = start.Add(slotStride) {
		slots = append(slots, Interval{Start: start, End: start.Add(duration)})
	}

	return slots
}
