package protocol

// =============================================================================
// Vehicle → operator telemetry
// =============================================================================

// EstimatedState is the navigation estimate published by the vehicle.
// Angles are radians, linear velocities m/s, depth and height metres.
type EstimatedState struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
	Alt    float64 `json:"alt"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Phi    float64 `json:"phi"`
	Theta  float64 `json:"theta"`
	Psi    float64 `json:"psi"`
	U      float64 `json:"u"`
	V      float64 `json:"v"`
	W      float64 `json:"w"`
}

// SimulatedState is published by the simulator in place of sensor data.
type SimulatedState struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Height float64 `json:"height"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Phi    float64 `json:"phi"`
	Theta  float64 `json:"theta"`
	Psi    float64 `json:"psi"`
	U      float64 `json:"u"`
	V      float64 `json:"v"`
	W      float64 `json:"w"`
}

// GetEstimatedState extracts the navigation estimate from a frame.
func (m Message) GetEstimatedState() (*EstimatedState, error) {
	var data EstimatedState
	if err := m.Decode(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSimulatedState extracts simulator state from a frame.
func (m Message) GetSimulatedState() (*SimulatedState, error) {
	var data SimulatedState
	if err := m.Decode(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
