package dylink

import "strings"

const rtldNoload = 0x02000

func isMissing(path, msg string) bool {
	return strings.Contains(msg, "\""+path+"\" not found") || strings.HasPrefix(msg, "Cannot open \""+path+"\"")
}
