package datalog

import (
	"strings"
)

// CompareValues compares two values and returns:
//
//	-1 if left < right
//	 0 if left == right
//	 1 if left > right
//
// Values of different types order by their ValueType tag, which keeps
// CompareValues consistent with the byte order of encoded row keys.
// nil sorts before everything.
func CompareValues(left, right Value) int {
	if left == nil && right == nil {
		return 0
	}
	if left == nil {
		return -1
	}
	if right == nil {
		return 1
	}

	if ptr, ok := left.(*Keyword); ok {
		left = *ptr
	}
	if ptr, ok := right.(*Keyword); ok {
		right = *ptr
	}

	lt, rt := Type(left), Type(right)
	if lt != rt {
		if lt < rt {
			return -1
		}
		return 1
	}

	switch l := left.(type) {
	case string:
		return strings.Compare(l, right.(string))
	case Keyword:
		return l.Compare(right.(Keyword))
	case int64:
		return compareInt64s(l, right.(int64))
	case float64:
		return compareFloats(l, right.(float64))
	case bool:
		r := right.(bool)
		if !l && r {
			return -1
		} else if l && !r {
			return 1
		}
		return 0
	}
	return 0
}

// compareInt64s compares two int64 values
func compareInt64s(a, b int64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

// compareFloats compares two float64 values
func compareFloats(a, b float64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

// ValuesEqual checks if two values are equal. Values of different types
// are never equal, so int64(1) and 1.0 are distinct constants.
func ValuesEqual(a, b Value) bool {
	if ptr, ok := a.(*Keyword); ok {
		a = *ptr
	}
	if ptr, ok := b.(*Keyword); ok {
		b = *ptr
	}
	return a == b
}
