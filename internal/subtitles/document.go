package subtitles

import "sync"

// Document is the mutable, ordered segment sequence shared between an
// optimization run and its readers. Segments are never inserted or removed
// after construction; writers only overwrite text or timing by index.
type Document struct {
	mu       sync.RWMutex
	segments []Segment
	position map[string]int
}

// NewDocument copies segments into a new document.
func NewDocument(segments []Segment) *Document {
	doc := &Document{
		segments: append([]Segment(nil), segments...),
		position: make(map[string]int, len(segments)),
	}
	for i, seg := range doc.segments {
		if _, dup := doc.position[seg.Index]; !dup {
			doc.position[seg.Index] = i
		}
	}
	return doc
}

// ParseDocument parses raw SRT text into a document.
func ParseDocument(raw string) *Document {
	return NewDocument(Parse(raw))
}

// Len reports the number of segments.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.segments)
}

// Snapshot returns a copy of the current segments.
func (d *Document) Snapshot() []Segment {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Segment(nil), d.segments...)
}

// Serialize renders the current state as SRT text.
func (d *Document) Serialize() string {
	return Serialize(d.Snapshot())
}

// Lookup returns the segment with the given index label and its position.
func (d *Document) Lookup(index string) (Segment, int, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	pos, ok := d.position[index]
	if !ok {
		return Segment{}, -1, false
	}
	return d.segments[pos], pos, true
}

// Window returns up to before segments ahead of position and after segments
// behind it, excluding the segment at position itself.
func (d *Document) Window(position, before, after int) []Segment {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if position < 0 || position >= len(d.segments) {
		return nil
	}
	lo := max(position-before, 0)
	hi := min(position+after, len(d.segments)-1)
	out := make([]Segment, 0, hi-lo)
	for i := lo; i <= hi; i++ {
		if i == position {
			continue
		}
		out = append(out, d.segments[i])
	}
	return out
}

// Replace overwrites the translated text and timing of the segment with the
// given index. An empty timestamp leaves the timing untouched. It reports
// whether the index was found.
func (d *Document) Replace(index, text, timestamp string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	pos, ok := d.position[index]
	if !ok {
		return false
	}
	d.segments[pos].TranslatedText = text
	if timestamp != "" {
		d.segments[pos].Timestamp = timestamp
	}
	return true
}

// SetTranslation overwrites only the translated text.
func (d *Document) SetTranslation(index, text string) bool {
	return d.Replace(index, text, "")
}

// SetEnd rewrites the end half of the timing line at position, keeping the
// start half verbatim.
func (d *Document) SetEnd(position int, endMS int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if position < 0 || position >= len(d.segments) {
		return false
	}
	start, _ := d.segments[position].Range()
	d.segments[position].Timestamp = FormatRange(start, endMS)
	return true
}

// Update hands fn the live segment slice under the write lock so a pass can
// read neighbors while it edits. Only TranslatedText and Timestamp changes
// survive; Index and OriginalText are restored afterwards.
func (d *Document) Update(fn func(segments []Segment)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	type identity struct{ index, original string }
	saved := make([]identity, len(d.segments))
	for i, seg := range d.segments {
		saved[i] = identity{seg.Index, seg.OriginalText}
	}
	fn(d.segments)
	for i := range d.segments {
		d.segments[i].Index = saved[i].index
		d.segments[i].OriginalText = saved[i].original
	}
}
