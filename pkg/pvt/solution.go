package pvt

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/de-bkg/gopvt/pkg/gnss"
)

// PVTSolution is a per-epoch solution, always expressed as the
// correction to apply to the apriori position.
type PVTSolution struct {
	// P is the X, Y, Z position correction [m] ECEF.
	P Coord
	// V is the absolute velocity [m/s] ECEF. Zero filled when the
	// solver does not estimate velocity.
	V Coord
	// Dt is the receiver clock bias [s].
	Dt float64
	// GDOP is the geometric dilution of precision.
	GDOP float64
	// PDOP is the position dilution of precision.
	PDOP float64
	// TDOP is the time dilution of precision [s].
	TDOP float64

	sv map[gnss.SV]SVData
	q  *mat.Dense // 4x4 cofactor, retained for frame rotated DOP queries
}

// newPVTSolution resolves the linearized navigation system: g is the
// geometry matrix, y the observation vector, w an optional diagonal
// weight matrix (nil resolves unweighted), svData the per-SV
// diagnostics the solution takes ownership of.
func newPVTSolution(g *mat.Dense, w *mat.DiagDense, y *mat.VecDense, svData map[gnss.SV]SVData) (*PVTSolution, error) {
	var n mat.Dense
	if w != nil {
		n.Product(g.T(), w, g)
	} else {
		n.Mul(g.T(), g)
	}

	var q mat.Dense
	if err := q.Inverse(&n); err != nil {
		return nil, ErrMatrixInversion
	}

	var gty mat.VecDense
	if w != nil {
		var wy mat.VecDense
		wy.MulVec(w, y)
		gty.MulVec(g.T(), &wy)
	} else {
		gty.MulVec(g.T(), y)
	}

	var x mat.VecDense
	x.MulVec(&q, &gty)

	dt := x.AtVec(3) / SpeedOfLight
	if math.IsNaN(dt) || math.IsInf(dt, 0) {
		return nil, ErrTimeIsNan
	}

	return &PVTSolution{
		P:    Coord{X: x.AtVec(0), Y: x.AtVec(1), Z: x.AtVec(2)},
		Dt:   dt,
		TDOP: math.Sqrt(q.At(3, 3)),
		PDOP: math.Sqrt(q.At(0, 0) + q.At(1, 1) + q.At(2, 2)),
		GDOP: math.Sqrt(q.At(0, 0) + q.At(1, 1) + q.At(2, 2) + q.At(3, 3)),
		sv:   svData,
		q:    &q,
	}, nil
}

// SV returns the space vehicles that helped form this solution.
func (sol *PVTSolution) SV() []gnss.SV {
	svs := make([]gnss.SV, 0, len(sol.sv))
	for sv := range sol.sv {
		svs = append(svs, sv)
	}
	return svs
}

// SVData returns the diagnostic data of one contributing SV.
func (sol *PVTSolution) SVData(sv gnss.SV) (SVData, bool) {
	data, ok := sol.sv[sv]
	return data, ok
}

// Q returns a copy of the 4x4 cofactor matrix (GᵀG)⁻¹.
func (sol *PVTSolution) Q() *mat.Dense {
	var cp mat.Dense
	cp.CloneFrom(sol.q)
	return &cp
}

// qENU rotates the position block of the cofactor matrix into the
// local East North Up frame at latitude/longitude [deg].
func (sol *PVTSolution) qENU(latDeg, lonDeg float64) *mat.Dense {
	lat := latDeg * deg2rad
	lon := lonDeg * deg2rad

	r := mat.NewDense(3, 3, []float64{
		-math.Sin(lon), -math.Sin(lat) * math.Cos(lon), math.Cos(lat) * math.Cos(lon),
		math.Cos(lon), -math.Sin(lat) * math.Sin(lon), math.Cos(lat) * math.Sin(lon),
		0.0, math.Cos(lat), math.Sin(lon),
	})

	q3 := mat.NewDense(3, 3, []float64{
		sol.q.At(0, 0), sol.q.At(0, 1), sol.q.At(0, 2),
		sol.q.At(1, 0), sol.q.At(1, 1), sol.q.At(1, 2),
		sol.q.At(2, 0), sol.q.At(2, 1), sol.q.At(2, 2),
	})

	var enu mat.Dense
	enu.Product(r.T(), q3, r)
	return &enu
}

// HDOP is the horizontal dilution of precision in the local tangent
// frame at latitude/longitude [deg].
func (sol *PVTSolution) HDOP(latDeg, lonDeg float64) float64 {
	q := sol.qENU(latDeg, lonDeg)
	return math.Sqrt(q.At(0, 0) + q.At(1, 1))
}

// VDOP is the vertical dilution of precision in the local tangent
// frame at latitude/longitude [deg].
func (sol *PVTSolution) VDOP(latDeg, lonDeg float64) float64 {
	return math.Sqrt(sol.qENU(latDeg, lonDeg).At(2, 2))
}
