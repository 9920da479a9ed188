package dylink

import "strings"

const rtldNoload = 0x10

// isMissing: dyld lists every path it tried, a dependency failure is reported as "Library not loaded".
func isMissing(path, msg string) bool {
	if strings.Contains(msg, "Library not loaded") || strings.Contains(msg, "incompatible architecture") {
		return false
	}
	return strings.Contains(msg, "no such file") || strings.Contains(msg, "image not found")
}
