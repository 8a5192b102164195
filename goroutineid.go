package reactor

import "runtime"

// currentGoroutineID returns the calling goroutine's runtime ID, used to
// detect nested ExecuteBatch calls (spec.md invariant: a Frame must never
// reenter its own batch on the same goroutine, nor execute two Frames on
// one goroutine at once). Adapted from the teacher's getGoroutineID
// (eventloop/loop.go), which parses runtime.Stack's "goroutine N [...]"
// header rather than pulling in a separate dependency for a handful of
// bytes of parsing - the teacher does the same despite a goroutineid
// package existing elsewhere in the pack, so we follow suit.
func currentGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
