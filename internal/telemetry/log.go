// Package telemetry wraps glog for the trace lines the lowering driver
// emits (the demo binary calls glog directly). It is strictly for humans
// watching a terminal — never a substitute for the loop.Diagnostics/error
// taxonomy, and pkg/loop, pkg/instruction, and pkg/lowering's public
// contracts never depend on it being called.
package telemetry

import "github.com/golang/glog"

// Tracef logs at V(2), the level the lowering driver uses to narrate
// channel-split decisions.
func Tracef(format string, args ...interface{}) {
	if glog.V(2) {
		glog.Infof(format, args...)
	}
}

// Infof logs at the default verbosity.
func Infof(format string, args ...interface{}) {
	glog.Infof(format, args...)
}

// Errorf logs an error-level line. It does not itself return or wrap an
// error; callers still propagate their own error value normally.
func Errorf(format string, args ...interface{}) {
	glog.Errorf(format, args...)
}
