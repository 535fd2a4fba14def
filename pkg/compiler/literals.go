package compiler

import "strconv"

// parseIntLiteral parses a decimal, 0x, 0b, or 0o integer lexeme into its
// 64-bit value. Go's strconv.ParseInt with base 0 already understands all
// three prefixes.
func parseIntLiteral(lexeme string) (int64, bool) {
	v, err := strconv.ParseInt(lexeme, 0, 64)
	if err != nil {
		// Values above the signed range (but within uint64) still lex as
		// valid integer literals; wrap rather than reject.
		uv, uerr := strconv.ParseUint(lexeme, 0, 64)
		if uerr != nil {
			return 0, false
		}
		return int64(uv), true
	}
	return v, true
}

func parseFloatLiteral(lexeme string) (float64, bool) {
	v, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
