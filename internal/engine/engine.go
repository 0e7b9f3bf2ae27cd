package engine

// Mark is the symbol occupying a single board cell.
type Mark string

const (
	MarkEmpty Mark = ""
	MarkX     Mark = "X"
	MarkO     Mark = "O"
)

// Other returns the opposing player mark. Only meaningful for MarkX/MarkO.
func (m Mark) Other() Mark {
	if m == MarkX {
		return MarkO
	}
	return MarkX
}

// Board is the 3x3 grid in row-major order: cells 0-2 are the top row,
// 3-5 the middle row, 6-8 the bottom row.
type Board [9]Mark

// winLines lists every winning triple. EvaluateWin scans them in exactly
// this order (rows top to bottom, then columns left to right, then the
// two diagonals), so a board that somehow holds more than one completed
// line always resolves to the same winner.
var winLines = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// NewBoard returns an all-empty board.
func NewBoard() Board {
	return Board{}
}

// IsLegalMove reports whether index names an empty cell on the board.
func IsLegalMove(b Board, index int) bool {
	return index >= 0 && index < len(b) && b[index] == MarkEmpty
}

// EvaluateWin returns the first completed line in winLines order, together
// with the mark that owns it. ok is false when no line is complete.
func EvaluateWin(b Board) (winner Mark, line [3]int, ok bool) {
	for _, l := range winLines {
		m := b[l[0]]
		if m != MarkEmpty && m == b[l[1]] && m == b[l[2]] {
			return m, l, true
		}
	}
	return MarkEmpty, [3]int{}, false
}

// IsDraw reports whether the board is full with no completed line.
func IsDraw(b Board) bool {
	for _, cell := range b {
		if cell == MarkEmpty {
			return false
		}
	}
	_, _, won := EvaluateWin(b)
	return !won
}
