package cache

import (
	"fmt"
	"strings"
)

// Key joins a resource kind and its parameters into a cache key.
func Key(kind string, params ...interface{}) string {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, kind)
	for _, p := range params {
		parts = append(parts, fmt.Sprint(p))
	}
	return strings.Join(parts, ":")
}
