package match

// Distance returns the optimal string alignment distance between a and b:
// insertions, deletions, substitutions and transpositions of adjacent runes
// each cost 1, and no substring is edited twice.
func Distance(a, b string) int {
	source, target := []rune(a), []rune(b)
	rows, cols := len(source)+1, len(target)+1

	grid := make([][]int, rows)
	for i := range grid {
		grid[i] = make([]int, cols)
		grid[i][0] = i
	}

	for j := range cols {
		grid[0][j] = j
	}

	for i := 1; i < rows; i++ {
		for j := 1; j < cols; j++ {
			cost := 1
			if source[i-1] == target[j-1] {
				cost = 0
			}

			grid[i][j] = min(
				grid[i-1][j]+1,
				grid[i][j-1]+1,
				grid[i-1][j-1]+cost,
			)

			if i > 1 && j > 1 && source[i-1] == target[j-2] && source[i-2] == target[j-1] {
				grid[i][j] = min(grid[i][j], grid[i-2][j-2]+1)
			}
		}
	}

	return grid[rows-1][cols-1]
}
