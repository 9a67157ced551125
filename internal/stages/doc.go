// Package stages provides the built-in optimization stages and registers them
// with a stage.Registry. Each stage declares which kinds may follow it, which
// conditions must hold for it to apply, and which strategy option it owns.
package stages
