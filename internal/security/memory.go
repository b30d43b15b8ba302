// Package security provides low-level constant-time and secret-wiping
// primitives shared by the packages that hold key material directly.
package security

import (
	"crypto/subtle"
	"runtime"
)

// SecureZero overwrites data with zeros in a way the compiler cannot
// optimize away. Call before a secret byte slice is discarded.
func SecureZero(data []byte) {
	if len(data) == 0 {
		return
	}
	zeros := make([]byte, len(data))
	subtle.ConstantTimeCopy(1, data, zeros)
	runtime.KeepAlive(data)
}

// ConstantTimeCompare reports whether a and b are equal, in constant time.
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// ConstantTimeSelectBytes returns x if v == 1 and y if v == 0, in constant
// time. v must be 0 or 1 and x, y must have equal length.
func ConstantTimeSelectBytes(v int, x, y []byte) []byte {
	if len(x) != len(y) {
		panic("ConstantTimeSelectBytes: slices must have equal length")
	}
	result := make([]byte, len(x))
	subtle.ConstantTimeCopy(v, result, x)
	subtle.ConstantTimeCopy(1-v, result, y)
	return result
}

// ConstantTimeByteEq returns 1 if a == b and 0 otherwise.
func ConstantTimeByteEq(a, b uint8) int {
	return subtle.ConstantTimeByteEq(a, b)
}

// ConstantTimeEq returns 1 if x == y and 0 otherwise.
func ConstantTimeEq(x, y int32) int {
	return subtle.ConstantTimeEq(x, y)
}
