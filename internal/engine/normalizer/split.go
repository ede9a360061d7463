package normalizer

// Multi-word forms that a Treebank word tokenizer separates even after
// apostrophes are gone.
var compounds = map[string][2]string{
	"cannot": {"can", "not"},
	"gimme":  {"gim", "me"},
	"gonna":  {"gon", "na"},
	"gotta":  {"got", "ta"},
	"lemme":  {"lem", "me"},
	"wanna":  {"wan", "na"},
}

func splitWord(word string) []string {
	if parts, ok := compounds[word]; ok {
		return parts[:]
	}
	return []string{word}
}
