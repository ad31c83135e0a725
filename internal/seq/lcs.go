// Package seq has sequence alignment helpers shared by the matchers and
// the script generator.
package seq

// LCS returns the index pairs of a longest common subsequence of a and b
// under eq, in order. Ties prefer earlier elements of a.
func LCS[T, U any](a []T, b []U, eq func(x T, y U) bool) [][2]int {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return nil
	}
	match := matches(a, b, eq)
	suf := suffixTable(match, n, m)
	out := make([][2]int, 0, suf[0][0])
	for i, j := 0, 0; i < n && j < m; {
		switch {
		case match[i][j]:
			out = append(out, [2]int{i, j})
			i++
			j++
		case suf[i+1][j] >= suf[i][j+1]:
			i++
		default:
			j++
		}
	}
	return out
}

// Forced returns the index pairs that every longest common subsequence of
// a and b under eq contains, in order. Unlike LCS it has no tie-break, so
// Forced(b, a) is Forced(a, b) with each pair swapped.
func Forced[T, U any](a []T, b []U, eq func(x T, y U) bool) [][2]int {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return nil
	}
	match := matches(a, b, eq)
	suf := suffixTable(match, n, m)
	total := suf[0][0]
	if total == 0 {
		return nil
	}

	// pre[i][j] is the LCS length of a[:i] and b[:j].
	pre := table(n+1, m+1)
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if match[i-1][j-1] {
				pre[i][j] = pre[i-1][j-1] + 1
			} else {
				pre[i][j] = max(pre[i-1][j], pre[i][j-1])
			}
		}
	}

	// A match on some longest subsequence is its k-th element in every
	// subsequence containing it, k = pre+1. It is in all of them iff it
	// is the only such match for its k.
	count := make([]int, total+1)
	at := make([][2]int, total+1)
	for i := range n {
		for j := range m {
			if !match[i][j] || pre[i][j]+1+suf[i+1][j+1] != total {
				continue
			}
			k := pre[i][j] + 1
			count[k]++
			at[k] = [2]int{i, j}
		}
	}
	var out [][2]int
	for k := 1; k <= total; k++ {
		if count[k] == 1 {
			out = append(out, at[k])
		}
	}
	return out
}

func matches[T, U any](a []T, b []U, eq func(x T, y U) bool) [][]bool {
	out := make([][]bool, len(a))
	for i := range a {
		out[i] = make([]bool, len(b))
		for j := range b {
			out[i][j] = eq(a[i], b[j])
		}
	}
	return out
}

// suffixTable's [i][j] is the LCS length of a[i:] and b[j:].
func suffixTable(match [][]bool, n, m int) [][]int {
	suf := table(n+1, m+1)
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if match[i][j] {
				suf[i][j] = suf[i+1][j+1] + 1
			} else {
				suf[i][j] = max(suf[i+1][j], suf[i][j+1])
			}
		}
	}
	return suf
}

func table(n, m int) [][]int {
	t := make([][]int, n)
	for i := range t {
		t[i] = make([]int, m)
	}
	return t
}
