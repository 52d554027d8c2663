package segment

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io/fs"
	"os"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/errors"
)

// Reader gives random access to a snapshot file. The checksum is verified
// when the file is opened.
type Reader struct {
	file     *os.File
	filePath string
	header   SegmentHeader
	dict     []DictEntry
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("opening snapshot %s: %w", path, apperrors.ErrSnapshotNotFound)
		}
		return nil, fmt.Errorf("opening snapshot %s: %w", path, err)
	}
	r, err := open(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func open(f *os.File, path string) (*Reader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}
	if info.Size() < int64(HeaderSize+FooterSize) {
		return nil, corrupt("file too short (%d bytes)", info.Size())
	}
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	header := decodeHeader(headerBytes)
	if header.Magic != MagicBytes {
		return nil, corrupt("bad magic bytes %x", header.Magic)
	}
	if header.Version != FormatVersion {
		return nil, corrupt("unsupported format version %d", header.Version)
	}
	if header.PostSize < 0 || header.DictSize < 0 {
		return nil, corrupt("negative section size")
	}
	bodySize := header.PostSize + header.DictSize
	if header.PostOffset != int64(HeaderSize) ||
		header.DictOffset != header.PostOffset+header.PostSize ||
		header.PostOffset+bodySize+int64(FooterSize) != info.Size() {
		return nil, corrupt("section offsets do not match file size %d", info.Size())
	}

	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, info.Size()-int64(FooterSize)); err != nil {
		return nil, fmt.Errorf("reading footer: %w", err)
	}
	if binary.LittleEndian.Uint32(footer[4:8]) != header.DocCount ||
		int64(binary.LittleEndian.Uint64(footer[8:16])) != header.DictOffset ||
		int64(binary.LittleEndian.Uint64(footer[16:24])) != header.DictSize ||
		int64(binary.LittleEndian.Uint64(footer[24:32])) != header.PostSize {
		return nil, corrupt("footer disagrees with header")
	}

	body := make([]byte, bodySize)
	if _, err := f.ReadAt(body, header.PostOffset); err != nil {
		return nil, fmt.Errorf("reading snapshot body: %w", err)
	}
	if sum := crc32.ChecksumIEEE(body); sum != binary.LittleEndian.Uint32(footer[0:4]) {
		return nil, corrupt("checksum mismatch")
	}

	var dict []DictEntry
	if err := json.Unmarshal(body[header.PostSize:], &dict); err != nil {
		return nil, corrupt("parsing dictionary: %v", err)
	}
	if len(dict) != int(header.TermCount) {
		return nil, corrupt("dictionary has %d terms, header says %d", len(dict), header.TermCount)
	}
	for i, d := range dict {
		if d.PostOffset < 0 || d.PostLen < 0 || d.PostOffset > header.PostSize ||
			int64(d.PostLen) > header.PostSize-d.PostOffset {
			return nil, corrupt("postings for %q lie outside the postings section", d.Term)
		}
		if i > 0 && dict[i-1].Term >= d.Term {
			return nil, corrupt("dictionary not strictly sorted at %q", d.Term)
		}
	}
	return &Reader{
		file:     f,
		filePath: path,
		header:   header,
		dict:     dict,
	}, nil
}

// Search returns the postings of term, or nil if the term is absent.
func (r *Reader) Search(term string) (index.PostingList, error) {
	idx := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Term >= term
	})
	if idx >= len(r.dict) || r.dict[idx].Term != term {
		return nil, nil
	}
	return r.readPostings(r.dict[idx])
}

// Load decodes the whole snapshot into a postings store.
func (r *Reader) Load() (*index.Postings, error) {
	entries := make([]index.TermEntry, 0, len(r.dict))
	for _, d := range r.dict {
		postings, err := r.readPostings(d)
		if err != nil {
			return nil, err
		}
		entries = append(entries, index.TermEntry{Term: d.Term, Postings: postings})
	}
	store, err := index.FromEntries(entries)
	if err != nil {
		return nil, fmt.Errorf("rebuilding postings from %s: %w", r.filePath, err)
	}
	if store.DocumentCount() != int(r.header.DocCount) {
		return nil, corrupt("decoded %d documents, header says %d", store.DocumentCount(), r.header.DocCount)
	}
	return store, nil
}

func (r *Reader) readPostings(d DictEntry) (index.PostingList, error) {
	buf := make([]byte, d.PostLen)
	if _, err := r.file.ReadAt(buf, r.header.PostOffset+d.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings for %q: %w", d.Term, err)
	}
	var postings index.PostingList
	if err := json.Unmarshal(buf, &postings); err != nil {
		return nil, corrupt("parsing postings for %q: %v", d.Term, err)
	}
	if len(postings) != d.DocFreq {
		return nil, corrupt("term %q has %d postings, dictionary says %d", d.Term, len(postings), d.DocFreq)
	}
	return postings, nil
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) DocCount() uint32 {
	return r.header.DocCount
}

func (r *Reader) Header() SegmentHeader {
	return r.header
}

func (r *Reader) Close() error {
	return r.file.Close()
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), apperrors.ErrCorruptSnapshot)
}
