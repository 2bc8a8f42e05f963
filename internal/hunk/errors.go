package hunk

import (
	"fmt"
	"math"
)

// ArithmeticError reports a line computation that would leave the range of
// its integer type.
type ArithmeticError struct {
	Op string
	A  int64
	B  int64
}

func (e *ArithmeticError) Error() string {
	return fmt.Sprintf("line arithmetic out of range: %d %s %d", e.A, e.Op, e.B)
}

// SubOrErr returns a-b, or an *ArithmeticError when the result would be
// negative.
func SubOrErr(a, b uint32) (uint32, error) {
	if b > a {
		return 0, &ArithmeticError{Op: "-", A: int64(a), B: int64(b)}
	}
	return a - b, nil
}

// AddOrErr returns a+b, or an *ArithmeticError when the sum overflows.
func AddOrErr(a, b uint32) (uint32, error) {
	sum := uint64(a) + uint64(b)
	if sum > math.MaxUint32 {
		return 0, &ArithmeticError{Op: "+", A: int64(a), B: int64(b)}
	}
	return uint32(sum), nil
}

// AddSigned adds a signed shift to an unsigned line number.
func AddSigned(a uint32, shift int32) (uint32, error) {
	sum := int64(a) + int64(shift)
	if sum < 0 || sum > math.MaxUint32 {
		return 0, &ArithmeticError{Op: "+", A: int64(a), B: int64(shift)}
	}
	return uint32(sum), nil
}

// lastLine is start+lines-1 for non-empty spans.
func lastLine(start, lines uint32) (uint32, error) {
	end := uint64(start) + uint64(lines)
	if end == 0 {
		return 0, &ArithmeticError{Op: "-", A: 0, B: 1}
	}
	if end-1 > math.MaxUint32 {
		return 0, &ArithmeticError{Op: "+", A: int64(start), B: int64(lines)}
	}
	return uint32(end - 1), nil
}
