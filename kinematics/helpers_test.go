package kinematics

import (
	"math"

	"github.com/mastercactapus/motioncore/coord"
)

func coordPoint(x, y, z float64) coord.Point {
	return coord.Point{X: x, Y: y, Z: z}
}

func testDeltaParams() DeltaParams {
	return DeltaParams{
		Height:            250,
		Radius:            100,
		DiagonalRod:       250,
		PrintableRadius:   90,
		CalibrationRadius: 80,
		SegmentsPerSecond: 200,
	}
}

// discSamples returns points on a polar grid inside radius r.
func discSamples(r float64) []coord.Point {
	pts := []coord.Point{{}}
	for ring := 1; ring <= 6; ring++ {
		rr := r * float64(ring) / 6
		for step := 0; step < 24; step++ {
			a := float64(step) * 15
			pts = append(pts, coord.Point{X: rr * cosd(a), Y: rr * sind(a)})
		}
	}
	return pts
}

func cosd(deg float64) float64 { return math.Cos(radians(deg)) }
func sind(deg float64) float64 { return math.Sin(radians(deg)) }
