package wire

import (
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// sanitizer drops invalid UTF-8 runes (encoding's U+FFFD replacement
// character) and normalizes to NFC, so a peer that sends the legacy
// "ASCII" framing noted in spec §9 ("String encoding inconsistency") still
// decodes to a well-formed Go string instead of propagating mojibake into
// channel names and validation prompts.
var sanitizer = transform.Chain(norm.NFC, runes.Remove(replacementCharacterOnly{}))

type replacementCharacterOnly struct{}

func (replacementCharacterOnly) Contains(r rune) bool {
	return r == 0xFFFD
}

// SanitizeUTF8 normalizes s to NFC and strips any U+FFFD replacement
// characters introduced by decoding invalid byte sequences as UTF-8. It
// never errors: if the transform fails, s is returned unchanged.
func SanitizeUTF8(s string) string {
	out, _, err := transform.String(sanitizer, s)
	if err != nil {
		return s
	}
	return out
}
