package util

import "log"

// Debug is the highest DPrintf level that gets logged; 0 silences
// everything but level-0 messages.
var Debug uint64 = 0

func DPrintf(level uint64, format string, a ...interface{}) {
	if level <= Debug {
		log.Printf(format, a...)
	}
}

// RoundUp returns the number of sz-sized units needed to hold n. sz must
// not be 0.
func RoundUp(n uint64, sz uint64) uint64 {
	r := n / sz
	if n%sz != 0 {
		r++
	}
	return r
}

func Min(n uint64, m uint64) uint64 {
	if n < m {
		return n
	}
	return m
}

func Max(n uint64, m uint64) uint64 {
	if n > m {
		return n
	}
	return m
}

func SumOverflows(n uint64, m uint64) bool {
	return n+m < n
}
