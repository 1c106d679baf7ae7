package pvt

import (
	"math"
)

// WGS84 ellipsoid.
const (
	reWGS84 = 6378137.0           // earth semimajor axis [m]
	feWGS84 = 1.0 / 298.257223563 // earth flattening
)

const (
	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi
)

// Coord defines a XYZ coordinate.
type Coord struct {
	X, Y, Z float64
}

// CoordNEU defines a North-, East-, Up-coordinate or eccentrity.
type CoordNEU struct {
	N, E, Up float64
}

// AprioriPosition is the static reference position solutions are
// resolved against.
type AprioriPosition struct {
	// ECEF is the apriori position [m].
	ECEF Coord
	// Geodetic holds the derived latitude [deg], longitude [deg] and
	// ellipsoidal height [m].
	Geodetic [3]float64
}

// NewAprioriPosition builds an apriori position from ECEF coordinates
// and derives the geodetic components.
func NewAprioriPosition(ecef Coord) (AprioriPosition, error) {
	if ecef.X == 0 && ecef.Y == 0 && ecef.Z == 0 {
		return AprioriPosition{}, ErrUndefinedAprioriPosition
	}
	lat, lon, hgt := ecefToGeodetic(ecef)
	return AprioriPosition{
		ECEF:     ecef,
		Geodetic: [3]float64{lat * rad2deg, lon * rad2deg, hgt},
	}, nil
}

// ecefToGeodetic transforms ECEF [m] to geodetic latitude, longitude
// [rad] and ellipsoidal height [m], iteratively on the WGS84 ellipsoid.
func ecefToGeodetic(ecef Coord) (lat, lon, hgt float64) {
	e2 := feWGS84 * (2.0 - feWGS84)
	r2 := ecef.X*ecef.X + ecef.Y*ecef.Y
	v := reWGS84
	z := ecef.Z
	zk := 0.0

	for math.Abs(z-zk) >= 1e-4 {
		zk = z
		sinp := z / math.Sqrt(r2+z*z)
		v = reWGS84 / math.Sqrt(1.0-e2*sinp*sinp)
		z = ecef.Z + v*e2*sinp
	}

	if r2 > 1e-12 {
		lat = math.Atan(z / math.Sqrt(r2))
		lon = math.Atan2(ecef.Y, ecef.X)
	} else {
		if ecef.Z > 0.0 {
			lat = math.Pi / 2.0
		} else {
			lat = -math.Pi / 2.0
		}
		lon = 0.0
	}
	hgt = math.Sqrt(r2+z*z) - v
	return lat, lon, hgt
}

// enuShift rotates a local (E, N, Up) offset at the given geodetic
// latitude/longitude [deg] into an ECEF shift.
func enuShift(offset CoordNEU, latDeg, lonDeg float64) Coord {
	sinp, cosp := math.Sincos(latDeg * deg2rad)
	sinl, cosl := math.Sincos(lonDeg * deg2rad)

	return Coord{
		X: -sinl*offset.E - sinp*cosl*offset.N + cosp*cosl*offset.Up,
		Y: cosl*offset.E - sinp*sinl*offset.N + cosp*sinl*offset.Up,
		Z: cosp*offset.N + sinp*offset.Up,
	}
}

// AzimuthElevation returns the azimuth and elevation [deg] of an ECEF
// satellite position [m] seen from the apriori position.
func AzimuthElevation(apriori AprioriPosition, svPos Coord) (az, el float64) {
	sinp, cosp := math.Sincos(apriori.Geodetic[0] * deg2rad)
	sinl, cosl := math.Sincos(apriori.Geodetic[1] * deg2rad)

	dx := svPos.X - apriori.ECEF.X
	dy := svPos.Y - apriori.ECEF.Y
	dz := svPos.Z - apriori.ECEF.Z

	// local tangent components
	e := -sinl*dx + cosl*dy
	n := -sinp*cosl*dx - sinp*sinl*dy + cosp*dz
	u := cosp*cosl*dx + cosp*sinl*dy + sinp*dz

	r := distance(dx, dy, dz)
	az = math.Atan2(e, n) * rad2deg
	if az < 0 {
		az += 360.0
	}
	el = math.Asin(u/r) * rad2deg
	return az, el
}

func distance(dx, dy, dz float64) float64 {
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
