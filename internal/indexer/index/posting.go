package index

// Document is one corpus entry. Ids are dense and start at 1.
type Document struct {
	ID        int64
	Reference string
}

// Term is one normalised vocabulary entry. Ids are dense and start at 1.
type Term struct {
	ID      int64
	Surface string
}

// ForwardPosting records every 1-based position of one term in one document.
type ForwardPosting struct {
	DocID     int64
	TermID    int64
	Positions []int
}

// DirectoryEntry locates a term's postings record and carries its corpus
// statistics.
type DirectoryEntry struct {
	TermID            int64
	Offset            int64
	CorpusFrequency   int64
	DocumentFrequency int64
}

// Posting is one decoded postings entry. Positions is nil when the list was
// decoded in frequency-only mode.
type Posting struct {
	DocID     int64
	Frequency int
	Positions []int
}

type PostingList []Posting

// Frequencies returns the posting list as a docID to frequency map.
func (pl PostingList) Frequencies() map[int64]int {
	out := make(map[int64]int, len(pl))
	for _, p := range pl {
		out[p.DocID] = p.Frequency
	}
	return out
}
