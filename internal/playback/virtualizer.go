package playback

// Virtualizer decides which queue indices keep a mounted embed: the active
// index plus Radius neighbours on each side.
type Virtualizer struct {
	Radius int
}

// Window returns the inclusive range of hot indices. It is empty (hi < lo)
// when there is nothing to show.
func (v Virtualizer) Window(active, length int) (lo, hi int) {
	if length <= 0 || active < 0 {
		return 0, -1
	}
	lo = active - v.Radius
	if lo < 0 {
		lo = 0
	}
	hi = active + v.Radius
	if hi > length-1 {
		hi = length - 1
	}
	return lo, hi
}

// Hot reports whether index is inside the window.
func (v Virtualizer) Hot(index, active, length int) bool {
	lo, hi := v.Window(active, length)
	return index >= lo && index <= hi
}
