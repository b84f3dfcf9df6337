/*
Package bitint provides bit manipulation helpers for FFT and buffer sizing.
All operations are O(1), allocation-free, and safe to call from real-time
audio code.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size.
// The size-1 subtraction keeps exact powers of 2 unchanged:
// for 8, bits.Len(7)=3 and 1<<3=8, whereas bits.Len(8)=4 would double it.
//
// Examples:
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}

	// 64-bit platforms (where int is 64-bit)
	if ^uint(0)>>63 == 0 {
		return int(1 << (bits.Len64(uint64(size - 1))))
	}

	// 32-bit platforms
	return int(1 << (bits.Len32(uint32(size - 1))))
}

// IsPowerOfTwo checks if n is a power of 2 using bit manipulation.
// Powers of 2 have exactly one bit set, so n & (n-1) is zero only
// for them.
//
// Examples:
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false   Not positive
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
