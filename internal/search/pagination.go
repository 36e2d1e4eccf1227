package search

// PageSize is the fixed number of events per page.
const PageSize = 30

// Window describes one page of an ordered result sequence.
type Window struct {
	Page  int // 1-based, clamped to at least 1
	Size  int
	Total int
	Pages int // ceil(Total/Size), 0 when there are no matches
	Start int // inclusive offset into the sequence
	End   int // exclusive offset; Start == End for an out-of-range page
}

// Paginate computes the window of page over total items. Pages below 1 are
// clamped to 1; pages past the end yield an empty window.
func Paginate(total, page, size int) Window {
	if size < 1 {
		size = PageSize
	}
	if page < 1 {
		page = 1
	}
	if total < 0 {
		total = 0
	}

	w := Window{
		Page:  page,
		Size:  size,
		Total: total,
		Pages: (total + size - 1) / size,
	}

	// page-1 is compared before multiplying so huge page numbers cannot overflow
	if page-1 >= w.Pages {
		w.Start, w.End = total, total
		return w
	}
	w.Start = (page - 1) * size
	w.End = min(w.Start+size, total)
	return w
}

// Slice returns the window's part of items.
func Slice[T any](w Window, items []T) []T {
	if w.Start >= len(items) {
		return items[:0:0]
	}
	return items[w.Start:min(w.End, len(items))]
}
