// Package calendar wraps the calendar module operations of an Odoo-style server.
//
// It covers the favorite calendars of a user (calendar.contacts), event
// notification polling and acknowledgement, attendee details for the tag
// widget and client action loading.
//
// Example usage:
//
//	rpcClient, err := rpc.NewClient(cfg.URL)
//	if err != nil {
//	    return err
//	}
//	sess, err := rpcClient.Authenticate(ctx, cfg.DB, cfg.Login, cfg.Password)
//	if err != nil {
//	    return err
//	}
//
//	cal := calendar.NewClient(rpcClient)
//	contacts, err := cal.Favorites(ctx, sess.UID)
package calendar
