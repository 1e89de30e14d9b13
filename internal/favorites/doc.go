// Package favorites keeps the calendar filter sidebar in sync with the
// user's favorite calendars stored on the server.
//
// The filter set always holds the current user (checked, not removable) and
// the "everybody" entry (value -1, unchecked, not removable), plus one
// removable entry per favorite contact. Every successful mutation reloads the
// set, resets the partner picker so that present filters cannot be chosen
// again, and notifies the view that filters changed. Mutations of one
// Synchronizer run one at a time.
//
// Example usage:
//
//	sync, err := favorites.New(favorites.Config{
//	    Session:   *sess,
//	    Store:     calendar.NewClient(rpcClient),
//	    Confirmer: favorites.AlwaysConfirm,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := sync.Init(ctx); err != nil {
//	    return err
//	}
//	for _, f := range sync.Ordered() {
//	    fmt.Println(f.Label)
//	}
package favorites
