package word2vec

import "sort"

type entry struct {
	word  string
	count int
	first int
}

// buildVocab counts tokens and keeps those seen at least minCount times,
// ordered by descending count with ties in first-occurrence order.
func buildVocab(sentences [][]string, minCount int) ([]entry, int) {
	byWord := make(map[string]*entry)
	var order []*entry
	for _, s := range sentences {
		for _, w := range s {
			e, ok := byWord[w]
			if !ok {
				e = &entry{word: w, first: len(order)}
				byWord[w] = e
				order = append(order, e)
			}
			e.count++
		}
	}

	kept := make([]entry, 0, len(order))
	retained := 0
	for _, e := range order {
		if e.count >= minCount {
			kept = append(kept, *e)
			retained += e.count
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].count > kept[j].count })
	return kept, retained
}
