// Package batch provides helpers for tools that act on several records at
// once.
//
// Ids may be passed as a single number, a numeric string or an array of
// either. Each id is processed independently and the tool answers with one
// result per id, so a failing record does not hide the others.
package batch
