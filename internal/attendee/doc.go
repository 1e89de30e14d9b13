// Package attendee renders the attendees of an event as tags carrying their
// participation status and color.
package attendee
