// Package vty owns the management endpoint.
//
// Ownership boundary:
// - accepting management clients on the loopback port
//
// - decoding line-delimited JSON requests
//
// - handing each request to the loop goroutine and writing its reply
//
// Runtime state is read and changed only through Controller, always on the
// loop goroutine.
package vty
