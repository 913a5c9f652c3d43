package dual

// Config configures the neural network. It is a value type; nothing in this package mutates it.
type Config struct {
	Features     int     `json:"features"`      // input width
	Hidden       int     `json:"hidden"`        // fc layer width
	HiddenLayers int     `json:"hidden_layers"` // number of fc layers before the heads
	ActionSpace  int     `json:"action_space"`  // policy head width
	LearnRate    float64 `json:"learn_rate"`    // fixed learning rate of the optimiser
}

// DefaultConf is the 832 -> 3x1024 -> (4096, 1) network.
func DefaultConf() Config {
	return Config{
		Features:     13 * 64,
		Hidden:       1024,
		HiddenLayers: 3,
		ActionSpace:  64 * 64,
		LearnRate:    0.001,
	}
}

func (conf Config) IsValid() bool {
	return conf.Features > 0 &&
		conf.Hidden > 0 &&
		conf.HiddenLayers >= 0 &&
		conf.ActionSpace >= 1 &&
		conf.LearnRate > 0
}

// layerShapes returns the (in, out) shape of every fully connected layer, in the order
// hidden layers, policy head, value head.
func (conf Config) layerShapes() [][2]int {
	shapes := make([][2]int, 0, conf.HiddenLayers+2)
	in := conf.Features
	for i := 0; i < conf.HiddenLayers; i++ {
		shapes = append(shapes, [2]int{in, conf.Hidden})
		in = conf.Hidden
	}
	shapes = append(shapes, [2]int{in, conf.ActionSpace}, [2]int{in, 1})
	return shapes
}
