package utils

import (
	"crypto/md5"
	"fmt"
)

// HashText returns a stable hex digest used as a cache key for text.
func HashText(input string) string {
	sum := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", sum)
}
