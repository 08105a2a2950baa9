// Package services defines the shared error taxonomy used to classify job
// failures. Components wrap failures with a sentinel marker; callers classify
// with errors.Is instead of inspecting message text.
package services
