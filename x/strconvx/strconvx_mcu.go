//go:build rp2040

package strconvx

// Allocation-light versions of the strconv subset the firmware uses.
// Parse* accept decimal or a 0x/0b/0o prefix.

type parseError struct{}

func (parseError) Error() string { return "invalid syntax" }

type rangeError struct{}

func (rangeError) Error() string { return "value out of range" }

func Itoa(i int) string { return FormatInt(int64(i), 10) }

func Atoi(s string) (int, error) {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c < '0' || c > '9' {
			if i != 0 || (c != '-' && c != '+') || len(s) == 1 {
				return 0, parseError{}
			}
		}
	}
	v, err := ParseInt(s, 0)
	return int(v), err
}

func FormatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func FormatInt(i int64, base int) string {
	if i < 0 {
		return "-" + formatUint(uint64(-i), base)
	}
	return formatUint(uint64(i), base)
}

func FormatUint(u uint64, base int) string { return formatUint(u, base) }

func formatUint(u uint64, base int) string {
	if base < 2 || base > 36 {
		base = 10
	}
	if u == 0 {
		return "0"
	}
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	var buf [64]byte
	i := len(buf)
	b := uint64(base)
	for u > 0 {
		i--
		buf[i] = digits[u%b]
		u /= b
	}
	return string(buf[i:])
}

// ParseInt parses a signed value that fits bitSize (0 means 64).
func ParseInt(s string, bitSize int) (int64, error) {
	neg := false
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if bitSize == 0 {
		bitSize = 64
	}
	u, err := ParseUint(s, 64)
	if err != nil {
		return 0, err
	}
	limit := uint64(1) << (bitSize - 1)
	if neg {
		if u > limit {
			return 0, rangeError{}
		}
		return -int64(u), nil
	}
	if u >= limit {
		return 0, rangeError{}
	}
	return int64(u), nil
}

// ParseUint parses an unsigned value that fits bitSize (0 means 64).
func ParseUint(s string, bitSize int) (uint64, error) {
	base := 10
	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			base, s = 16, s[2:]
		case 'b', 'B':
			base, s = 2, s[2:]
		case 'o', 'O':
			base, s = 8, s[2:]
		}
	}
	if len(s) == 0 {
		return 0, parseError{}
	}
	if bitSize == 0 {
		bitSize = 64
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		var d byte
		switch {
		case '0' <= c && c <= '9':
			d = c - '0'
		case 'a' <= c && c <= 'z':
			d = c - 'a' + 10
		case 'A' <= c && c <= 'Z':
			d = c - 'A' + 10
		default:
			return 0, parseError{}
		}
		if int(d) >= base {
			return 0, parseError{}
		}
		next := v*uint64(base) + uint64(d)
		if next/uint64(base) != v {
			return 0, rangeError{}
		}
		v = next
	}
	if bitSize < 64 && v >= 1<<bitSize {
		return 0, rangeError{}
	}
	return v, nil
}
