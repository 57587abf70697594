package cache

import "fmt"

// RateLimitKey is the fixed-window counter key for one API key prefix.
func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
