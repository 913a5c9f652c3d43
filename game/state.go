package game

import "fmt"

const (
	RowNum  = 8
	ColNum  = 8
	Squares = RowNum * ColNum

	// Planes is the number of 64 square blocks in a feature vector:
	// 6 piece kinds * 2 colours + 1 side to move plane.
	Planes      = 13
	FeatureSize = Planes * Squares

	// ActionSpace is the flattened 64x64 (from, to) grid.
	ActionSpace = Squares * Squares
)

// Color of a piece or of the side to move.
type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) String() string {
	switch c {
	case White:
		return "White"
	case Black:
		return "Black"
	}
	return fmt.Sprintf("Color(%d)", uint8(c))
}

// Kind is a piece type. The order of the constants is the plane order of the encoding.
type Kind uint8

const (
	NoKind Kind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

func (k Kind) String() string {
	switch k {
	case NoKind:
		return "NoKind"
	case Pawn:
		return "Pawn"
	case Knight:
		return "Knight"
	case Bishop:
		return "Bishop"
	case Rook:
		return "Rook"
	case Queen:
		return "Queen"
	case King:
		return "King"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Piece is what occupies a square. The zero value is an empty square.
type Piece struct {
	Color Color
	Kind  Kind
}

// NoPiece is an empty square.
var NoPiece = Piece{}

func (p Piece) String() string {
	if p.Kind == NoKind {
		return "NoPiece"
	}
	return p.Color.String() + " " + p.Kind.String()
}

// plane returns the index of the 64 square block for the piece.
func (p Piece) plane() int {
	return int(p.Color)*6 + int(p.Kind) - 1
}

// Move is a (from, to) square pair. Squares are numbered a1=0, b1=1 ... h8=63.
type Move struct {
	From, To int
}

// Index flattens the move into the 0..4095 action space.
func (m Move) Index() int { return m.From*Squares + m.To }

func (m Move) String() string {
	if !validSquare(m.From) || !validSquare(m.To) {
		return fmt.Sprintf("(%d,%d)", m.From, m.To)
	}
	return squareName(m.From) + squareName(m.To)
}

// MoveFromIndex is the inverse of Move.Index.
func MoveFromIndex(idx int) Move {
	return Move{From: idx / Squares, To: idx % Squares}
}

// Position is the read-only view of a board the encoder needs.
type Position interface {
	PieceAt(sq int) Piece // piece on the square, NoPiece if empty
	Turn() Color          // side to move
	LegalMoves() []Move   // every legal move in the position
}

func validSquare(sq int) bool { return sq >= 0 && sq < Squares }

func squareName(sq int) string {
	return string([]byte{byte('a' + sq%ColNum), byte('1' + sq/ColNum)})
}
