package index

type Posting struct {
	DocID     string `json:"id"`
	Frequency int    `json:"f"`
	Positions []int  `json:"p,omitempty"`
}

type PostingList []Posting

// TotalFrequency is the collection frequency of the term within the list.
func (pl PostingList) TotalFrequency() int64 {
	var total int64
	for _, p := range pl {
		total += int64(p.Frequency)
	}
	return total
}

type TermEntry struct {
	Term     string
	Postings PostingList
}

// DocEntry records the analysed length of one document.
type DocEntry struct {
	DocID  string `json:"id"`
	Length int    `json:"len"`
}
