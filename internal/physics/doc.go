// Package physics models the plant the balancing controller acts on.
//
// [Balancer] implements [dynamo.System] and also maps motor duty to wheel
// force and plant state to an accelerometer reading, which is all a
// simulated board needs.
package physics
