package gtfs

import (
	"math"
	"sort"
	"strconv"
)

type shapePoint struct {
	lat, lon float64
	seq      int
}

// loadShapes collects shapes.txt and stores each shape sorted by
// shape_pt_sequence. Points with unparseable coordinates or sequence are skipped.
func (rl *regionLoad) loadShapes() {
	tmp := map[string][]shapePoint{}
	var order []string
	rl.each("shapes.txt", func(t *table, rec []string) {
		id := t.get(rec, "shape_id")
		lat, err1 := strconv.ParseFloat(t.get(rec, "shape_pt_lat"), 64)
		lon, err2 := strconv.ParseFloat(t.get(rec, "shape_pt_lon"), 64)
		seq, err3 := strconv.Atoi(t.get(rec, "shape_pt_sequence"))
		if id == "" || err1 != nil || err2 != nil || err3 != nil || math.IsNaN(lat) || math.IsNaN(lon) {
			t.skip()
			return
		}
		full := rl.prefix + id
		if _, ok := tmp[full]; !ok {
			order = append(order, full)
		}
		tmp[full] = append(tmp[full], shapePoint{lat: lat, lon: lon, seq: seq})
	})
	for _, id := range order {
		if _, exists := rl.idx.shapes[id]; exists {
			continue
		}
		rl.idx.shapes[id] = sortShape(tmp[id])
		rl.sum.Shapes++
	}
}

func sortShape(arr []shapePoint) []Point {
	sort.SliceStable(arr, func(i, j int) bool { return arr[i].seq < arr[j].seq })
	pts := make([]Point, len(arr))
	for i, p := range arr {
		pts[i] = Point{p.lat, p.lon}
	}
	return pts
}
