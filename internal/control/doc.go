// Package control provides the attitude controllers of the balancing loop.
//
// Controllers implement [dynamo.Controller]: each Step turns one
// accelerometer sample into a signed left/right duty pair.
//
//   - [Attitude]: dual low-pass filtered PD law with deadband
//   - [PID]: PID law backed by github.com/felixge/pidctrl
//   - [Off]: always commands zero duty
//
// # Usage
//
//	clock := control.NewSystemClock()
//	ctrl := control.NewAttitude(control.DefaultParams(), clock)
//	cmd := ctrl.Step(sample)
//
// Controllers read time from a [Clock]. Simulations drive a [VirtualClock]
// so the controller sees exactly the simulated sample interval.
//
// Controllers implementing [dynamo.Configurable] support live tuning.
package control
