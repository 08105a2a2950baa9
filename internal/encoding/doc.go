// Package encoding orchestrates one conversion job end to end: validate the
// requested output settings, probe the input, build the engine command,
// estimate a time budget, and supervise the invocation with a no-progress
// watchdog. All failures terminate in a classified JobOutcome; nothing
// escapes the supervisor as a fault.
package encoding
