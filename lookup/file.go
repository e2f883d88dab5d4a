package lookup

// FileBackend holds a parsed table in memory and scans it linearly on every
// lookup, exactly as spec.md §4.16 describes the "file" backend.
type FileBackend struct {
	records []Record
}

func init() {
	_ = Register("file", func(path string) (Backend, error) {
		records, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		return &FileBackend{records: records}, nil
	})
}

// NewFileBackend wraps an already-parsed record set, for callers that load
// the table themselves (e.g. an embedded table, or a reconfigure that
// re-reads an already-open file descriptor).
func NewFileBackend(records []Record) *FileBackend {
	return &FileBackend{records: records}
}

func (b *FileBackend) Lookup(key string) ([]string, bool) {
	for _, r := range b.records {
		if r.Key == key {
			return r.Values, true
		}
	}
	return nil, false
}

func (b *FileBackend) Close() error { return nil }
