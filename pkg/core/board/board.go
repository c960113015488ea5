// Package board provides the immutable Sudoku board value consumed by the
// search engine.
//
// A Board is a plain value: Place returns a new Board and never mutates its
// receiver. That immutability is what lets the concurrent solver share board
// states across goroutines without any synchronization.
package board

import (
	"fmt"
	"strings"
)

// Size is the number of cells spanning the grid, and the number of digits.
const Size = 9

// boxSize is the number of cells spanning each 3x3 box.
const boxSize = 3

// Board is a partially filled 9x9 Sudoku grid. Cells hold 1-9 for clues and
// placements, 0 for empty. The zero Board is a fully empty grid.
type Board struct {
	cells [Size * Size]uint8
}

// Parse builds a Board from a puzzle description. The digits 1-9 are clues,
// and 0 or . denote empty cells; all other characters (spaces, newlines,
// separators) are ignored. It returns an error unless the description
// contains exactly 81 significant characters.
func Parse(s string) (Board, error) {
	var b Board
	n := 0
	for _, r := range s {
		switch {
		case r == '0', r == '.':
			if n < len(b.cells) {
				b.cells[n] = 0
			}
			n++
		case r >= '1' && r <= '9':
			if n < len(b.cells) {
				b.cells[n] = uint8(r - '0')
			}
			n++
		}
	}
	if n != Size*Size {
		return Board{}, fmt.Errorf("board: puzzle has %d cells, want %d", n, Size*Size)
	}
	return b, nil
}

// Cell returns the digit at (row, col), or 0 if the cell is empty.
func (b Board) Cell(row, col int) int {
	return int(b.cells[row*Size+col])
}

// Complete reports whether every cell is filled.
func (b Board) Complete() bool {
	for _, c := range b.cells {
		if c == 0 {
			return false
		}
	}
	return true
}

// NextEmpty returns the first empty cell in row-major order. The scan order is
// deterministic so that identical boards always expand the same cell, which
// the solver's reproducibility guarantees depend on. It must only be called
// when Complete is false.
func (b Board) NextEmpty() (row, col int) {
	for i, c := range b.cells {
		if c == 0 {
			return i / Size, i % Size
		}
	}
	panic("board: NextEmpty on complete board")
}

// CanPlace reports whether digit may be placed at (row, col) without
// duplicating it in the cell's row, column, or 3x3 box.
func (b Board) CanPlace(row, col, digit int) bool {
	d := uint8(digit)
	for i := 0; i < Size; i++ {
		if b.cells[row*Size+i] == d || b.cells[i*Size+col] == d {
			return false
		}
	}
	br, bc := row/boxSize*boxSize, col/boxSize*boxSize
	for r := br; r < br+boxSize; r++ {
		for c := bc; c < bc+boxSize; c++ {
			if b.cells[r*Size+c] == d {
				return false
			}
		}
	}
	return true
}

// Place returns a copy of b with digit written at (row, col). The receiver is
// unchanged. Callers are expected to have checked CanPlace first.
func (b Board) Place(row, col, digit int) Board {
	b.cells[row*Size+col] = uint8(digit)
	return b
}

// Valid reports whether the board violates no Sudoku constraint: every filled
// cell's digit is unique in its row, column, and box. An empty board is valid.
// Drivers use Valid to reject malformed puzzles before they reach the solver,
// and tests use it as an independent solution checker.
func (b Board) Valid() bool {
	var rows, cols, boxes [Size]uint16
	for i, c := range b.cells {
		if c == 0 {
			continue
		}
		bit := uint16(1) << (c - 1)
		r, cl := i/Size, i%Size
		bx := r/boxSize*boxSize + cl/boxSize
		if rows[r]&bit != 0 || cols[cl]&bit != 0 || boxes[bx]&bit != 0 {
			return false
		}
		rows[r] |= bit
		cols[cl] |= bit
		boxes[bx] |= bit
	}
	return true
}

// String returns the canonical 81-character form of the board, with 0 for
// empty cells. Parse(b.String()) reproduces b.
func (b Board) String() string {
	var sb strings.Builder
	sb.Grow(Size * Size)
	for _, c := range b.cells {
		sb.WriteByte('0' + c)
	}
	return sb.String()
}

// Grid returns a human-readable rendering with box separators, using . for
// empty cells.
func (b Board) Grid() string {
	var sb strings.Builder
	for r := 0; r < Size; r++ {
		if r > 0 && r%boxSize == 0 {
			sb.WriteString("------+-------+------\n")
		}
		for c := 0; c < Size; c++ {
			if c > 0 && c%boxSize == 0 {
				sb.WriteString("| ")
			}
			if d := b.cells[r*Size+c]; d == 0 {
				sb.WriteString(". ")
			} else {
				sb.WriteByte('0' + d)
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
