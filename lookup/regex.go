package lookup

import "regexp"

// RegexEntry is one compiled-key row of a RegexBackend.
type RegexEntry struct {
	Pattern *regexp.Regexp
	Values  []string
}

// RegexBackend is the "regex" backend: same file format as "file", but the
// key column is a regular expression matched against the lookup argument
// rather than compared for equality.
type RegexBackend struct {
	entries []RegexEntry
}

func init() {
	_ = Register("regex", func(path string) (Backend, error) {
		records, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		return NewRegexBackend(records)
	})
}

// NewRegexBackend compiles every record's key as a regular expression.
func NewRegexBackend(records []Record) (*RegexBackend, error) {
	entries := make([]RegexEntry, 0, len(records))
	for _, r := range records {
		re, err := regexp.Compile(r.Key)
		if err != nil {
			return nil, CodeInvalidRegex.Error(err)
		}
		entries = append(entries, RegexEntry{Pattern: re, Values: r.Values})
	}
	return &RegexBackend{entries: entries}, nil
}

// Lookup returns the first entry whose pattern matches key.
func (b *RegexBackend) Lookup(key string) ([]string, bool) {
	for _, e := range b.entries {
		if e.Pattern.MatchString(key) {
			return e.Values, true
		}
	}
	return nil, false
}

func (b *RegexBackend) Close() error { return nil }
