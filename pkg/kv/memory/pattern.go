package memory

// globMatch implements the subset of Redis glob matching the dispatcher
// relies on: '*' matches any run of characters, '?' matches exactly one,
// everything else matches literally.
func globMatch(pattern, s string) bool {
	// Iterative matching with single-star backtracking
	var starPattern, starMatch = -1, 0
	p, i := 0, 0

	for i < len(s) {
		switch {
		case p < len(pattern) && (pattern[p] == '?' || pattern[p] == s[i]):
			p++
			i++
		case p < len(pattern) && pattern[p] == '*':
			starPattern = p
			starMatch = i
			p++
		case starPattern != -1:
			p = starPattern + 1
			starMatch++
			i = starMatch
		default:
			return false
		}
	}

	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}
