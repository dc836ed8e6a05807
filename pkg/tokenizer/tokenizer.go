package tokenizer

import (
	"strings"
)

// CountTokens estimates the token count of text at roughly four tokens per
// three words. Blank text counts as zero.
func CountTokens(text string) int {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}
	return max(len(words)*4/3, 1)
}
