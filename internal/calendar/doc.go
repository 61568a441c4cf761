// Package calendar provides a client for the Google Calendar API scoped to
// one authorized user's primary calendar.
//
// It covers the operations the scheduling assistant needs: freebusy queries
// across attendee calendars, event creation and rescheduling with attendee
// notification, and title-based search over upcoming events. Event times are
// always written with the Asia/Tokyo time zone.
package calendar
