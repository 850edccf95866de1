package fieldcipher

import "strings"

// MaskMode selects how much of a value masking hides.
type MaskMode string

const (
	// MaskPartial keeps the last four characters visible, unless the value
	// is four characters or shorter, in which case it is fully masked.
	MaskPartial MaskMode = "partial"

	// MaskFull replaces every character.
	MaskFull MaskMode = "full"
)

// Mask obfuscates a value for display to an unauthorized viewer. It is pure
// and deterministic, and works even when the value would fail to decrypt.
func Mask(value string, mode MaskMode) string {
	runes := []rune(value)
	n := len(runes)

	switch mode {
	case MaskFull:
		return strings.Repeat("*", n)
	case MaskPartial:
		if n <= 4 {
			return strings.Repeat("*", n)
		}
		return strings.Repeat("*", n-4) + string(runes[n-4:])
	}
	return value
}
