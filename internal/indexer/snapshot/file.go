package snapshot

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer/segment"
)

// FileStore keeps the snapshot in a single segment file under dataDir.
type FileStore struct {
	writer *segment.Writer
	name   string
}

func NewFileStore(dataDir, name string) *FileStore {
	return &FileStore{writer: segment.NewWriter(dataDir), name: name}
}

func (s *FileStore) Save(ctx context.Context, p *index.Postings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.writer.Write(s.name, p); err != nil {
		return fmt.Errorf("saving snapshot %q: %w", s.name, err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context) (*index.Postings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := segment.OpenReader(s.writer.Path(s.name))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Load()
}

func (s *FileStore) Backend() string { return "file" }

func (s *FileStore) Location() string { return s.writer.Path(s.name) }
