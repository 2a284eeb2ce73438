//go:build !rp2040

package strconvx

import "strconv"

// Off target these delegate to strconv.

func Itoa(i int) string                    { return strconv.Itoa(i) }
func Atoi(s string) (int, error)           { return strconv.Atoi(s) }
func FormatInt(i int64, base int) string   { return strconv.FormatInt(i, base) }
func FormatUint(u uint64, base int) string { return strconv.FormatUint(u, base) }
func FormatBool(b bool) string             { return strconv.FormatBool(b) }
func ParseInt(s string, bitSize int) (int64, error) {
	return strconv.ParseInt(s, 0, bitSize)
}
func ParseUint(s string, bitSize int) (uint64, error) {
	return strconv.ParseUint(s, 0, bitSize)
}
