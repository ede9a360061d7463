package model

// Partition is an ordered list of (feature vector, label) pairs.
type Partition struct {
	X [][]float64
	Y []int
}

// Len returns the number of rows in the partition.
func (p Partition) Len() int {
	return len(p.Y)
}

// Classes counts rows per label.
func (p Partition) Classes() map[int]int {
	counts := make(map[int]int, 2)
	for _, y := range p.Y {
		counts[y]++
	}
	return counts
}

// Subset returns the rows at the given indexes, in index order.
func (p Partition) Subset(idx []int) Partition {
	out := Partition{
		X: make([][]float64, len(idx)),
		Y: make([]int, len(idx)),
	}
	for i, j := range idx {
		out.X[i] = p.X[j]
		out.Y[i] = p.Y[j]
	}
	return out
}
