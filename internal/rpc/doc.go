// Package rpc provides a JSON-RPC 2.0 client for an Odoo-style calendar server.
//
// Every request is a POST of
//
//	{"jsonrpc": "2.0", "method": "call", "params": {...}, "id": "<uuid>"}
//
// to a server route. Model methods go through /web/dataset/call_kw/<model>/<method>
// via CallKW; any other route through Call.
//
// Calls are foreground by default: they toggle the configured LoadingIndicator
// and count in the rpc_requests_in_flight gauge. Background work passes
// WithShadow() to stay invisible.
//
// Server errors are returned as *Error with the server's code. A call abandoned
// locally, because its context was cancelled or timed out before the response
// arrived, is returned as *Error with Code CodeLocalAbort (-32098); use
// IsLocalAbort to test for it.
//
// Example usage:
//
//	client, err := rpc.NewClient("https://odoo.example.com")
//	if err != nil {
//	    return err
//	}
//	sess, err := client.Authenticate(ctx, "prod", "admin@example.com", password)
//	if err != nil {
//	    return err
//	}
//	var ids []int64
//	err = client.CallKW(ctx, "calendar.contacts", "search", []any{[]any{}}, nil, &ids)
package rpc
