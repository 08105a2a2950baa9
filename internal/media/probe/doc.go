// Package probe inspects input media with ffprobe and reduces the result to
// the handful of fields the conversion pipeline needs: picture dimensions,
// container duration, and frame rate.
package probe
