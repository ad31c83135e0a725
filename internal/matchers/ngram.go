package matchers

// bigrams counts the character bigrams of s.
func bigrams(s string) map[string]int {
	r := []rune(s)
	out := make(map[string]int, len(r))
	for i := 0; i+1 < len(r); i++ {
		out[string(r[i:i+2])]++
	}
	return out
}

// gramDice is the Dice coefficient of two bigram multisets, 0 when either
// is empty.
func gramDice(a, b map[string]int) float64 {
	na, nb := 0, 0
	for _, c := range a {
		na += c
	}
	for _, c := range b {
		nb += c
	}
	if na == 0 || nb == 0 {
		return 0
	}
	common := 0
	for g, c := range a {
		common += min(c, b[g])
	}
	return 2 * float64(common) / float64(na+nb)
}

// StringSimilarity is the bigram Dice coefficient of two strings. Equal
// strings score 1 even when too short for a bigram.
func StringSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	return gramDice(bigrams(a), bigrams(b))
}
