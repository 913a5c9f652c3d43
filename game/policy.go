package game

import (
	"github.com/chewxy/math32"
	"gorgonia.org/vecf32"
)

// MaskPolicy keeps the policy mass of legal moves only and renormalises it.
// When the network puts no mass on any legal move the result is uniform over the legal moves.
// The input policy is not modified.
func MaskPolicy(policy, mask []float32) ([]float32, error) {
	if len(policy) != ActionSpace {
		return nil, &ShapeError{What: "policy", Want: ActionSpace, Got: len(policy)}
	}
	if len(mask) != ActionSpace {
		return nil, &ShapeError{What: "move mask", Want: ActionSpace, Got: len(mask)}
	}

	retVal := make([]float32, ActionSpace)
	copy(retVal, policy)
	vecf32.Mul(retVal, mask)

	legalSum := vecf32.Sum(retVal)
	if legalSum > math32.SmallestNonzeroFloat32 {
		vecf32.Scale(retVal, 1/legalSum)
		return retVal, nil
	}

	legal := vecf32.Sum(mask)
	if legal == 0 {
		return retVal, nil
	}
	copy(retVal, mask)
	vecf32.Scale(retVal, 1/legal)
	return retVal, nil
}

// BestMove returns the legal move with the highest policy value.
// ok is false if the mask has no legal move.
func BestMove(policy, mask []float32) (m Move, ok bool, err error) {
	masked, err := MaskPolicy(policy, mask)
	if err != nil {
		return Move{}, false, err
	}
	if vecf32.Sum(mask) == 0 {
		return Move{}, false, nil
	}
	return MoveFromIndex(vecf32.Argmax(masked)), true, nil
}
