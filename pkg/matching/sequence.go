package matching

// sequenceRatio computes the classic diff-style similarity ratio between two
// strings: 2*M/T where M is the total length of the longest matching blocks
// and T the combined length of both inputs.
func sequenceRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}

	b2j := make(map[rune][]int, len(rb))
	for j, r := range rb {
		b2j[r] = append(b2j[r], j)
	}

	matched := matchingBlocksTotal(ra, rb, b2j, 0, len(ra), 0, len(rb))
	return 2.0 * float64(matched) / float64(total)
}

// matchingBlocksTotal sums the sizes of the matching blocks found by
// recursively splitting around the longest common block of each region.
func matchingBlocksTotal(a, b []rune, b2j map[rune][]int, alo, ahi, blo, bhi int) int {
	i, j, size := longestMatch(a, b2j, alo, ahi, blo, bhi)
	if size == 0 {
		return 0
	}

	sum := size
	sum += matchingBlocksTotal(a, b, b2j, alo, i, blo, j)
	sum += matchingBlocksTotal(a, b, b2j, i+size, ahi, j+size, bhi)
	return sum
}

func longestMatch(a []rune, b2j map[rune][]int, alo, ahi, blo, bhi int) (besti, bestj, bestsize int) {
	besti, bestj = alo, blo
	j2len := map[int]int{}

	for i := alo; i < ahi; i++ {
		newJ2len := map[int]int{}
		for _, j := range b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			newJ2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newJ2len
	}

	return besti, bestj, bestsize
}
