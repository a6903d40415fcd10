package util

import "time"

// TimeOperationMicroseconds runs op and reports how long it took.
func TimeOperationMicroseconds(op func()) int64 {
	start := time.Now()
	op()
	return time.Since(start).Microseconds()
}

// BoolToInt maps success to a counter field value.
func BoolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
