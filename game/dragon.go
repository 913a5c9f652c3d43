package game

import (
	"github.com/dylhunn/dragontoothmg"
	"github.com/notnil/chess"
	"github.com/pkg/errors"
)

// Dragon is a bitboard Position backed by github.com/dylhunn/dragontoothmg.
// It shares the a1=0 ... h8=63 square numbering with Chess.
type Dragon struct {
	b dragontoothmg.Board
}

// DragonFromFEN returns the position described by fen.
func DragonFromFEN(fen string) (*Dragon, error) {
	// dragontoothmg does not report malformed FEN, so validate it first.
	if _, err := chess.FEN(fen); err != nil {
		return nil, errors.Wrapf(err, "parse FEN %q", fen)
	}
	return &Dragon{b: dragontoothmg.ParseFen(fen)}, nil
}

func (d *Dragon) PieceAt(sq int) Piece {
	if !validSquare(sq) {
		return NoPiece
	}
	bit := uint64(1) << uint(sq)
	switch {
	case d.b.White.All&bit != 0:
		return Piece{Color: White, Kind: bitboardKind(&d.b.White, bit)}
	case d.b.Black.All&bit != 0:
		return Piece{Color: Black, Kind: bitboardKind(&d.b.Black, bit)}
	}
	return NoPiece
}

func (d *Dragon) Turn() Color {
	if d.b.Wtomove {
		return White
	}
	return Black
}

func (d *Dragon) LegalMoves() []Move {
	b := d.b // move generation works on a copy
	gen := b.GenerateLegalMoves()
	moves := make([]Move, 0, len(gen))
	for _, m := range gen {
		moves = append(moves, Move{From: int(m.From()), To: int(m.To())})
	}
	return moves
}

func bitboardKind(bb *dragontoothmg.Bitboards, bit uint64) Kind {
	switch {
	case bb.Pawns&bit != 0:
		return Pawn
	case bb.Knights&bit != 0:
		return Knight
	case bb.Bishops&bit != 0:
		return Bishop
	case bb.Rooks&bit != 0:
		return Rook
	case bb.Queens&bit != 0:
		return Queen
	case bb.Kings&bit != 0:
		return King
	}
	// set in All but in none of the piece boards
	return invalidKind
}
