package query

import "strings"

// Similarity is the normalized Levenshtein similarity of a and b in [0, 1].
// When either string carries upper-case letters the score is averaged with
// the similarity of the lower-cased forms, so a pure case difference costs
// half as much as a real edit. The result is symmetric.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	raw := normalized(a, b)
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la == a && lb == b {
		return raw
	}
	return (raw + normalized(la, lb)) / 2
}

func normalized(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longer := len(ra)
	if len(rb) > longer {
		longer = len(rb)
	}
	if longer == 0 {
		return 1
	}
	return float64(longer-editDistance(ra, rb)) / float64(longer)
}

// editDistance is the Levenshtein distance using two rolling rows.
func editDistance(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
