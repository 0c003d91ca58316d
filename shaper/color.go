package shaper

import (
	"fmt"
	"unicode/utf16"
)

// StringToColor derives a stable chart color from s. The hash runs over
// UTF-16 code units with 32-bit wraparound so a key keeps the same color
// in every renderer.
func StringToColor(s string) string {
	var hash int32
	for _, c := range utf16.Encode([]rune(s)) {
		hash = int32(c) + (hash<<5 - hash)
	}
	h := int64(hash)
	if h < 0 {
		h = -h
	}
	return fmt.Sprintf("hsl(%d, 70%%, 50%%)", h%360)
}
