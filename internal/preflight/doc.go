// Package preflight provides readiness checks for the external binaries and
// filesystem paths reframe depends on. The CLI "reframe check" command runs
// all of them; convert and diagnose run them before touching the engine so a
// doomed run fails in milliseconds instead of minutes.
package preflight
