package index

// Posting is one (document, term-frequency) pair of a term's postings list.
type Posting struct {
	DocID     string `json:"d"`
	Frequency int    `json:"f"`
}

type PostingList []Posting

// TermEntry is a term with its postings sorted by DocID; it is the unit the
// snapshot codecs read and write.
type TermEntry struct {
	Term     string
	Postings PostingList
}
