package feed

// Queue is the ordered, append-only list of videos for one session. It drops
// ids it has already delivered during the same session.
type Queue struct {
	items []VideoItem
	seen  map[string]struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		items: make([]VideoItem, 0),
		seen:  make(map[string]struct{}),
	}
}

// Len returns the number of queued videos.
func (q *Queue) Len() int {
	return len(q.items)
}

// At returns the video at index i.
func (q *Queue) At(i int) (VideoItem, bool) {
	if i < 0 || i >= len(q.items) {
		return VideoItem{}, false
	}
	return q.items[i], true
}

// Items returns a copy of the queued videos.
func (q *Queue) Items() []VideoItem {
	out := make([]VideoItem, len(q.items))
	copy(out, q.items)
	return out
}

// Append adds items in order, skipping ids already in the queue, and returns
// the ones actually added.
func (q *Queue) Append(items []VideoItem) []VideoItem {
	added := make([]VideoItem, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		if _, dup := q.seen[item.ID]; dup {
			continue
		}
		q.seen[item.ID] = struct{}{}
		q.items = append(q.items, item)
		added = append(added, item)
	}
	return added
}

// Clear empties the queue and forgets delivered ids.
func (q *Queue) Clear() {
	q.items = make([]VideoItem, 0)
	q.seen = make(map[string]struct{})
}
