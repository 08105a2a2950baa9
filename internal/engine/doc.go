// Package engine wraps the external transcoding engine. The engine is opaque:
// it is initialized once, holds named inputs and outputs in its own storage,
// and executes one argv command at a time while streaming progress and log
// events. Manager enforces that contract on top of any Engine implementation.
package engine
