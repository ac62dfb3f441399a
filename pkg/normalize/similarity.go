package normalize

// Levenshtein returns the edit distance between two strings.
func Levenshtein(s1, s2 string) int {
	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) < len(r2) {
		r1, r2 = r2, r1
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i, c1 := range r1 {
		curr[0] = i + 1
		for j, c2 := range r2 {
			cost := 0
			if c1 != c2 {
				cost = 1
			}
			curr[j+1] = min(prev[j+1]+1, curr[j]+1, prev[j]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}

// NameSimilarity scores two display names on a 0..1 scale after
// normalization. Empty names score 0.
func NameSimilarity(a, b string) float64 {
	n1, n2 := Name(a), Name(b)
	if n1 == "" || n2 == "" {
		return 0
	}
	maxLen := max(len([]rune(n1)), len([]rune(n2)))
	d := Levenshtein(n1, n2)
	sim := 1.0 - float64(d)/float64(maxLen)
	if sim < 0 {
		return 0
	}
	return sim
}
