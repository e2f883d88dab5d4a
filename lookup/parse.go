// Package lookup implements the lookup-table core: the file/hash/regex
// backends spec.md §4.16 names as sufficient for the core, plus a plugin
// registry so every other backend (Berkeley DB, LMDB, LDAP, memcached) can
// be an external, separately built implementation registered by name
// instead of a core dependency.
package lookup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/icap-oss/icapd/command"
)

// Record is one parsed lookup-table row: a key and its associated value
// list (empty when the file records the key alone).
type Record struct {
	Key    string
	Values []string
}

// ParseFile reads a lookup-table file in the spec's line format: one
// record per line, "key: v1, v2, ..." or "key" alone, "#" introduces a
// comment, backslash quoting follows the config-file tokenizer shared
// with the command bus.
func ParseFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, CodeOpenFile.Error(err)
	}
	defer f.Close()
	return ParseReader(f)
}

// ParseReader is ParseFile without the filesystem dependency, so tests and
// embedded tables can feed it directly.
func ParseReader(r io.Reader) ([]Record, error) {
	var records []Record

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rec, err := parseLine(line)
		if err != nil {
			return nil, CodeParseLine.Error(fmt.Errorf("line %d: %w", lineNo, err))
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, CodeParseLine.Error(err)
	}
	return records, nil
}

func parseLine(line string) (Record, error) {
	key, rest, hasColon := strings.Cut(line, ":")
	key = strings.TrimSpace(key)
	if key == "" {
		return Record{}, fmt.Errorf("empty key")
	}
	if !hasColon {
		toks := command.Tokenize(key)
		if len(toks) == 0 {
			return Record{}, fmt.Errorf("empty key")
		}
		return Record{Key: toks[0]}, nil
	}
	return Record{Key: key, Values: command.Tokenize(rest)}, nil
}
