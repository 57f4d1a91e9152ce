package tailqueue

import (
	"fmt"
	"strings"
)

// typeName derives a log name from the type of v: pointer stars, the package
// qualifier and generic arguments are dropped ("*app.Event[int]" becomes "Event").
func typeName(v any) string {
	if v == nil {
		return ""
	}
	s := fmt.Sprintf("%T", v)
	s = strings.TrimLeft(s, "*")
	if i := strings.IndexByte(s, '['); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	return s
}

func positionKey(name, consumerID string) string {
	if consumerID == "" {
		return name
	}
	return name + ":" + consumerID
}
