package service

// windowStart returns the skip for a k-wide window over count ranked listings.
// With more than k candidates the start is uniform in [0, count) and pulled back
// so the window stays full; otherwise every candidate is shown from 0.
func windowStart(count, k int64, int64n func(int64) int64) int64 {
	if count <= k {
		return 0
	}
	start := int64n(count)
	if count-start < k {
		start = count - k
	}
	return start
}
