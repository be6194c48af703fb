package sim

// MeasurementKind tags the payload layout of a Measurement.
type MeasurementKind string

const (
	// MeasurePosition carries a world-frame position fix: Values = [x, y].
	MeasurePosition MeasurementKind = "position"
	// MeasureRange carries a distance to the nearest obstacle: Values = [d].
	MeasureRange MeasurementKind = "range"
)

// Measurement is the non-empty output of a sensor model.
type Measurement struct {
	Kind   MeasurementKind
	Sensor string    // name of the sensor instance that produced it
	Time   float64   // simulation time in seconds
	Values []float64 // payload, layout defined by Kind
	Noise  []float64 // per-value variance; optional
}
