// Package host owns the process lifecycle.
//
// Ownership boundary:
// - bootstrap order (entity, transports, data links, application, capture, vty)
//
// - the main loop: work tick, then the single wait
//
// - signal policy and the busy exit handshake
//
// - cleanup and the exit status
//
// Lifecycle order:
// - bootstrapping -> running -> shutting_down -> terminated
//
// - a failed bootstrap goes straight to terminated; no work tick runs.
//
// Shutdown is a value returned to Main. Nothing below Main exits the process.
package host
