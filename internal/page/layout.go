package page

import "math"

// Layout returns the grid for n cards: as square as possible, never more than
// maxRows rows, extra cards go into additional columns.
func Layout(n, maxRows int) (rows, columns int) {
	if n <= 0 || maxRows <= 0 {
		return 0, 0
	}
	rows = int(math.Sqrt(float64(n)))
	for rows*rows < n {
		rows++
	}
	rows = min(rows, maxRows)
	columns = (n + rows - 1) / rows
	return rows, columns
}

// IDAllocator hands out slot ids for cards placed on a page.
type IDAllocator interface {
	SlotID(pageNumber, index int) int
}

// PageScheme numbers slots pageNumber*100 + index, the numbering TTS expects
// for CustomDeck entries. Ids stay unique while pages hold fewer than 100
// cards.
type PageScheme struct{}

func (PageScheme) SlotID(pageNumber, index int) int {
	return pageNumber*100 + index
}
