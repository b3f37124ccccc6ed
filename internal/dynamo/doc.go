// Package dynamo provides the core types shared by the balancing loop.
//
// The package defines the data flowing through one control cycle and the
// capabilities that connect its stages:
//
//   - [Vector3]: accelerometer sample (direction matters, magnitude does not)
//   - [MotorCommand]: signed left/right duty produced by a controller
//   - [Telemetry]: read-only controller state for inspection
//   - [Controller]: step/state capability the control task depends on
//   - [System], [Integrator]: plant dynamics used by the simulated board
//
// # Example
//
//	ctrl := control.NewAttitude(control.DefaultParams(), control.NewSystemClock())
//	cmd := ctrl.Step(dynamo.Vector3{X: 0, Y: -0.1, Z: 1})
//	fmt.Println(cmd.Left, cmd.Right)
//
// # Thread Safety
//
// Controllers are NOT thread-safe. A controller is owned by exactly one
// control task; other goroutines may only observe it through snapshots the
// task publishes.
package dynamo
