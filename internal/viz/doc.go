// Package viz is the live terminal view of a simulated balancer, built on
// Bubble Tea.
//
//   - [Model]: steps the simulation in real time and draws the chassis
//   - [Canvas]: Braille-based pixel canvas
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Reset chassis and gains
//	N / B - Push the chassis forward / back
//	Tab   - Select gain
//	Up/K  - Increase gain
//	Down/J- Decrease gain
//	?     - Show help overlay
package viz
