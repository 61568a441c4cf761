// Package timeslot provides pure time arithmetic for the scheduling
// assistant: JST date parsing, business-day logic for the Japanese
// calendar, and free-slot discovery from busy intervals.
//
// The package has no dependencies on the calendar provider or any store;
// all functions are deterministic given their inputs, which keeps the
// slot-finding algorithm testable without network access.
package timeslot
