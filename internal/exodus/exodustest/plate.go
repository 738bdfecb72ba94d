package exodustest

// Plate dimensions in elements.
const (
	PlateElemsX = 4
	PlateElemsY = 2

	PlateNodes = (PlateElemsX + 1) * (PlateElemsY + 1)
)

// Plate returns a 2D plate under uniaxial load: two blocks of quads, four
// side sets, two nodal, two element and two global variables. Field values
// scale linearly with load and time.
//
// The output deliberately has partial data: no z axis, the left side set
// has no node list, the right one no element list, and strain_yy exists in
// block 1 only.
func Plate(numTime int, load float64) Fixture {
	const width, height = 2.0, 1.0
	nx, ny := PlateElemsX, PlateElemsY

	node := func(i, j int) int32 { return int32(j*(nx+1) + i + 1) }

	f := Fixture{
		Time: make([]float64, numTime),
		X:    make([]float64, PlateNodes),
		Y:    make([]float64, PlateNodes),
	}
	for t := range f.Time {
		f.Time[t] = float64(t)
	}
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			n := node(i, j) - 1
			f.X[n] = width * float64(i) / float64(nx)
			f.Y[n] = height * float64(j) / float64(ny)
		}
	}

	// Elements are numbered block by block; block 1 is the left half.
	elemID := make(map[[2]int]int32)
	var next int32 = 1
	f.Blocks = make([][][]int32, 2)
	for b := 0; b < 2; b++ {
		for ey := 0; ey < ny; ey++ {
			for ex := b * nx / 2; ex < (b+1)*nx/2; ex++ {
				f.Blocks[b] = append(f.Blocks[b], []int32{node(ex, ey), node(ex+1, ey), node(ex+1, ey+1), node(ex, ey+1)})
				elemID[[2]int{ex, ey}] = next
				next++
			}
		}
	}

	var bottom, top SideSet
	bottom.Name, top.Name = "bottom", "top"
	for i := 0; i <= nx; i++ {
		bottom.Nodes = append(bottom.Nodes, node(i, 0))
		top.Nodes = append(top.Nodes, node(i, ny))
	}
	for ex := 0; ex < nx; ex++ {
		bottom.Elems = append(bottom.Elems, elemID[[2]int{ex, 0}])
		top.Elems = append(top.Elems, elemID[[2]int{ex, ny - 1}])
	}
	left := SideSet{Name: "left"}
	right := SideSet{Name: "right"}
	for ey := 0; ey < ny; ey++ {
		left.Elems = append(left.Elems, elemID[[2]int{0, ey}])
	}
	for j := 0; j <= ny; j++ {
		right.Nodes = append(right.Nodes, node(nx, j))
	}
	f.SideSets = []SideSet{bottom, top, left, right}

	dispX := NodeVar{Name: "disp_x", Values: make([][]float64, numTime)}
	dispY := NodeVar{Name: "disp_y", Values: make([][]float64, numTime)}
	for t := range f.Time {
		dispX.Values[t] = make([]float64, PlateNodes)
		dispY.Values[t] = make([]float64, PlateNodes)
		for n := 0; n < PlateNodes; n++ {
			dispX.Values[t][n] = -0.3 * load * f.Time[t] * f.X[n]
			dispY.Values[t][n] = load * f.Time[t] * f.Y[n]
		}
	}
	f.NodeVars = []NodeVar{dispX, dispY}

	f.ElemVarNames = []string{"strain_yy", "stress_yy"}
	for b, table := range f.Blocks {
		stress := ElemVar{Name: "stress_yy", Block: b + 1, Values: make([][]float64, numTime)}
		strain := ElemVar{Name: "strain_yy", Block: b + 1, Values: make([][]float64, numTime)}
		for t := range f.Time {
			stress.Values[t] = make([]float64, len(table))
			strain.Values[t] = make([]float64, len(table))
			for e := range table {
				stress.Values[t][e] = 1e3 * load * f.Time[t]
				strain.Values[t][e] = load * f.Time[t]
			}
		}
		f.ElemVars = append(f.ElemVars, stress)
		if b == 0 {
			f.ElemVars = append(f.ElemVars, strain)
		}
	}

	react := GlobVar{Name: "react_y", Values: make([]float64, numTime)}
	maxDisp := GlobVar{Name: "max_disp_y", Values: make([]float64, numTime)}
	for t := range f.Time {
		react.Values[t] = -1e3 * load * f.Time[t] * width
		maxDisp.Values[t] = load * f.Time[t] * height
	}
	f.GlobVars = []GlobVar{react, maxDisp}
	return f
}
