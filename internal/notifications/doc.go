// Package notifications delivers completion and failure notices over ntfy.
// With no topic configured the service degrades to a noop.
package notifications
