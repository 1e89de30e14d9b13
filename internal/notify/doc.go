// Package notify polls the server for upcoming event reminders and displays
// them once their timer elapses.
//
// A Poller asks for due reminders right away and then every interval. Each
// reminder is scheduled with a one-shot timer unless a notification with the
// same tag ("eid_<event id>") is already shown; the check is repeated when the
// timer fires. Aborted requests are ignored, every other poll error is handed
// to an ErrorReporter.
//
// Notifications carry their actions: Open loads the event form action,
// Recall closes the notification and Acknowledge closes it and tells the
// server in the background.
package notify
