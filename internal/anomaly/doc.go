// Package anomaly flags physically implausible wind tunnel measurements.
//
// Detection is a pure function of a state snapshot: no I/O, no retained
// state, at most one advisory alert per evaluation. The hub broadcasts alerts
// to control clients; they never gate persistence or telemetry.
package anomaly
