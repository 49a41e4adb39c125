// Package loop owns cooperative scheduling.
//
// Ownership boundary:
// - the single suspension point (Dispatcher.Wait)
//
// - loop timers
//
// - supervision of source goroutines
//
// Everything posted to a Dispatcher runs to completion on the goroutine that
// calls Wait. Sources block on I/O in their own goroutines and hand results
// to the loop with Post.
package loop
