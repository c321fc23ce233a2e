package detection

// forEachCombination calls fn with every k-subset of [0, n) as ascending
// indices, in lexicographic order. The slice is reused between calls. fn
// returns false to stop early. Iterative, so stack depth does not grow
// with k.
func forEachCombination(n, k int, fn func(idx []int) bool) {
	if k <= 0 || k > n {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		if !fn(idx) {
			return
		}
		// rightmost index that can still advance
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

const maxInt = int(^uint(0) >> 1)

// addSaturating returns a + b for non-negative operands, capped at maxInt.
func addSaturating(a, b int) int {
	if a > maxInt-b {
		return maxInt
	}
	return a + b
}

// binomial returns C(n, k), saturating at maxInt.
func binomial(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	result := 1
	for i := 1; i <= k; i++ {
		next := result * (n - k + i)
		if next/(n-k+i) != result {
			return maxInt
		}
		result = next / i
	}
	return result
}
