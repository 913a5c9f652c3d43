package game

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gorgonia.org/tensor"
)

// EncodeBoard encodes a position into 13 binary planes of 64 squares.
// Planes 0-5 are the white pawn, knight, bishop, rook, queen and king, planes 6-11 the
// black ones in the same order, and plane 12 is all ones when White is to move.
func EncodeBoard(p Position) ([]float32, error) {
	board := make([]float32, FeatureSize)
	for sq := 0; sq < Squares; sq++ {
		piece := p.PieceAt(sq)
		if piece == NoPiece {
			continue
		}
		if piece.Kind < Pawn || piece.Kind > King {
			return nil, &EncodingError{Square: sq, Piece: piece, Reason: "invalid piece kind"}
		}
		if piece.Color != White && piece.Color != Black {
			return nil, &EncodingError{Square: sq, Piece: piece, Reason: "invalid piece colour"}
		}
		board[piece.plane()*Squares+sq] = 1
	}

	switch p.Turn() {
	case White:
		turnLayer := board[(Planes-1)*Squares:]
		for i := range turnLayer {
			turnLayer[i] = 1
		}
	case Black:
	default:
		return nil, &EncodingError{Square: -1, Reason: "invalid side to move " + p.Turn().String()}
	}
	return board, nil
}

// EncodeLegalMoves returns the 64x64 legal move grid flattened row major by from square.
// A position without legal moves yields an all zero mask.
func EncodeLegalMoves(p Position) ([]float32, error) {
	mask := make([]float32, ActionSpace)
	for _, m := range p.LegalMoves() {
		if !validSquare(m.From) {
			return nil, &EncodingError{Square: m.From, Reason: "move from square out of range"}
		}
		if !validSquare(m.To) {
			return nil, &EncodingError{Square: m.To, Reason: "move to square out of range"}
		}
		mask[m.Index()] = 1
	}
	return mask, nil
}

// DecodeMoves returns the moves set in a 4096 wide mask, in ascending index order.
func DecodeMoves(mask []float32) ([]Move, error) {
	if len(mask) != ActionSpace {
		return nil, &ShapeError{What: "move mask", Want: ActionSpace, Got: len(mask)}
	}
	var moves []Move
	for i, v := range mask {
		switch v {
		case 0:
		case 1:
			moves = append(moves, MoveFromIndex(i))
		default:
			return nil, &DecodingError{Index: i, Value: v}
		}
	}
	return moves, nil
}

// EncodeBatch encodes the positions into a single [len(ps), FeatureSize] tensor.
// Positions are encoded concurrently; the first failure cancels the rest.
func EncodeBatch(ctx context.Context, ps []Position) (*tensor.Dense, error) {
	if len(ps) == 0 {
		return nil, errors.New("EncodeBatch: no positions")
	}
	backing := make([]float32, len(ps)*FeatureSize)

	g, ctx := errgroup.WithContext(ctx)
	idx := make(chan int)
	g.Go(func() error {
		defer close(idx)
		for i := range ps {
			select {
			case idx <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < runtime.NumCPU(); w++ {
		g.Go(func() error {
			for i := range idx {
				board, err := EncodeBoard(ps[i])
				if err != nil {
					return errors.WithMessagef(err, "position %d", i)
				}
				copy(backing[i*FeatureSize:], board)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tensor.New(tensor.WithBacking(backing), tensor.WithShape(len(ps), FeatureSize)), nil
}
