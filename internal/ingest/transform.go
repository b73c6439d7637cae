package ingest

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

func r3Vec(x, y, z float64) r3.Vec {
	return r3.Vec{X: x, Y: y, Z: z}
}

func quatNumber(w, x, y, z float64) quat.Number {
	return quat.Number{Real: w, Imag: x, Jmag: y, Kmag: z}
}
