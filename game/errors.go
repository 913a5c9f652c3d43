package game

import "fmt"

// EncodingError is returned when a position cannot be encoded because it reports
// something that is not a chess piece or not a square.
type EncodingError struct {
	Square int
	Piece  Piece
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding: square %d (%v): %s", e.Square, e.Piece, e.Reason)
}

// DecodingError is returned when a mask holds a value other than 0 or 1.
type DecodingError struct {
	Index int
	Value float32
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("decoding: mask[%d] = %v, want 0 or 1", e.Index, e.Value)
}

// ShapeError is returned when a board, mask or policy vector does not have the expected width.
// The network reports its own tensor shape mismatches with dual.ShapeError.
type ShapeError struct {
	What      string
	Want, Got int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: expected width %d, got %d", e.What, e.Want, e.Got)
}
