package game

import (
	"github.com/notnil/chess"
	"github.com/pkg/errors"
)

// Values outside the encoding range, rejected by EncodeBoard.
const (
	invalidColor Color = 0xff
	invalidKind  Kind  = 0xff
)

// Chess is a Position backed by github.com/notnil/chess.
type Chess struct {
	g *chess.Game
}

// NewChess returns the standard starting position.
func NewChess() *Chess {
	return &Chess{g: chess.NewGame()}
}

// ChessFromFEN returns the position described by fen.
func ChessFromFEN(fen string) (*Chess, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, errors.Wrapf(err, "parse FEN %q", fen)
	}
	return &Chess{g: chess.NewGame(opt)}, nil
}

// Apply plays a move given in UCI notation, e.g. "e2e4" or "e7e8q".
func (c *Chess) Apply(uci string) error {
	m, err := chess.UCINotation{}.Decode(c.g.Position(), uci)
	if err != nil {
		return errors.Wrapf(err, "decode move %q", uci)
	}
	return errors.WithStack(c.g.Move(m))
}

// Game returns the underlying game.
func (c *Chess) Game() *chess.Game { return c.g }

func (c *Chess) PieceAt(sq int) Piece {
	p := c.g.Position().Board().Piece(chess.Square(sq))
	if p == chess.NoPiece {
		return NoPiece
	}
	return Piece{Color: fromChessColor(p.Color()), Kind: fromChessType(p.Type())}
}

func (c *Chess) Turn() Color { return fromChessColor(c.g.Position().Turn()) }

func (c *Chess) LegalMoves() []Move {
	valid := c.g.ValidMoves()
	moves := make([]Move, 0, len(valid))
	for _, m := range valid {
		moves = append(moves, Move{From: int(m.S1()), To: int(m.S2())})
	}
	return moves
}

func (c *Chess) String() string { return c.g.Position().String() }

func fromChessColor(c chess.Color) Color {
	switch c {
	case chess.White:
		return White
	case chess.Black:
		return Black
	}
	return invalidColor
}

func fromChessType(t chess.PieceType) Kind {
	switch t {
	case chess.Pawn:
		return Pawn
	case chess.Knight:
		return Knight
	case chess.Bishop:
		return Bishop
	case chess.Rook:
		return Rook
	case chess.Queen:
		return Queen
	case chess.King:
		return King
	}
	return invalidKind
}
