package dual

import "fmt"

// ShapeError is returned when an input, example or parameter set does not have the shape the
// network was configured with. Shapes are full tensor shapes; game.ShapeError covers the
// encoder's flat vectors.
type ShapeError struct {
	What string
	Want []int
	Got  []int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: expected shape %v, got %v", e.What, e.Want, e.Got)
}
