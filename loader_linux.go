package dylink

import "strings"

const rtldNoload = 0x00004

// isMissing tells an absent library from a present one that failed to load.
// glibc prefixes the message with the object it could not find, which is a dependency
// when our own file exists. musl names the object after "Error loading shared library"
// and marks dependencies with "(needed by".
func isMissing(path, msg string) bool {
	if !strings.Contains(msg, "No such file or directory") {
		return false
	}
	if strings.HasPrefix(msg, path+":") {
		return true
	}
	return strings.HasPrefix(msg, "Error loading shared library "+path+":") && !strings.Contains(msg, "(needed by")
}
