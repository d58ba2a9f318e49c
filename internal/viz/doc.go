// Package viz renders secant runs in the terminal.
//
//   - [Plane]: Braille canvas mapped onto a rectangle of the complex plane
//   - [RenderReport], [RenderSearch], [RenderScan]: lipgloss panels with
//     asciigraph error charts
//   - [Model]: Bubble Tea replay of a run's trajectory
//
// # Key Bindings
//
//	Space - Pause/Resume replay
//	R     - Restart from the seeds
//	[ ]   - Step backward/forward
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
