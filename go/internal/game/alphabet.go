package game

import "unicode"

// Alphabet returns the symbols eligible for a draw after roundCount cleared
// rounds. The result only ever grows with roundCount.
func (v Variant) Alphabet(roundCount int) []rune {
	symbols := []rune(v.BaseAlphabet)
	extended := []rune(v.ExtendedAlphabet)

	unlocked := 0
	for _, step := range v.Growth {
		if roundCount < step.Round {
			break
		}
		unlocked = step.Extended
		if unlocked < 0 || unlocked > len(extended) {
			unlocked = len(extended)
		}
	}
	return append(symbols, extended[:unlocked]...)
}

// acceptsSymbol reports whether a key press carries a printable symbol.
func acceptsSymbol(r rune) bool {
	return r != NoSymbol && unicode.IsGraphic(r) && !unicode.IsSpace(r)
}
