// Package composer is the overlay editing engine.
//
// An [Engine] scans an embedded page for structural markers, creates a
// container widget for each through its own [widget.Registry], connects the
// containers to a headless drag-and-drop surface and exchanges tagged
// messages with the hosting shell over a [channel.Channel].
//
// The engine is single-threaded: every method must run on the engine's
// [Loop]. [Engine.Serve] pumps inbound messages from a channel into the loop
// and runs it; other goroutines (REST callbacks, tests) use [Engine.Post] or
// [Engine.Call].
package composer
