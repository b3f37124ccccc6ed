// Package task runs the two periodic activities of the vehicle.
//
// [ControlTask] samples the accelerometer, steps the controller and commands
// the motors every control period. A failed sensor read skips the cycle: the
// controller is not stepped and the motors keep their previous command.
// Motor errors are logged and never stop the loop.
//
// [DisplayTask] refreshes the status panel on its own period. It shares
// nothing with the control task except the peripheral bus, which both reach
// through [bus.Bus].
package task
