// Package compiler contains the stage combination core. It picks, for each
// stage family, the longest chain of stages compatible with an anchor stage,
// links that chain for sequential application, and derives the configuration
// that results once every discarded stage has been switched off.
package compiler
