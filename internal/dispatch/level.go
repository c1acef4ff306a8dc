package dispatch

import "math"

// ParseLevel reads a brightness payload: optional leading whitespace, an
// optional sign, then decimal digits up to the first non-digit. A payload
// without digits is 0. Values beyond the int32 range saturate.
func ParseLevel(text string) int {
	i := 0
	for i < len(text) && isSpace(text[i]) {
		i++
	}

	neg := false
	if i < len(text) && (text[i] == '+' || text[i] == '-') {
		neg = text[i] == '-'
		i++
	}

	var n int64
	for ; i < len(text) && text[i] >= '0' && text[i] <= '9'; i++ {
		n = n*10 + int64(text[i]-'0')
		if n > math.MaxInt32 {
			n = math.MaxInt32 + 1
		}
	}

	if neg {
		n = -n
	}
	if n > math.MaxInt32 {
		n = math.MaxInt32
	}
	if n < math.MinInt32 {
		n = math.MinInt32
	}
	return int(n)
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
