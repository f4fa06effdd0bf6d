package replay

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// ErrFormat is returned for logs that do not parse.
var ErrFormat = errors.New("replay: bad log format")

// maxLine bounds one JSON line; a tick with a full event burst stays far below.
const maxLine = 4 << 20

// Read decodes a complete log from r.
func Read(r io.Reader) (*Log, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("replay: cannot create decoder: %w", err)
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	var log Log
	haveHeader := false
	line := 0
	for sc.Scan() {
		line++
		var e entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrFormat, line, err)
		}
		switch {
		case e.Type == entryHeader && e.Header != nil && !haveHeader && line == 1:
			if e.Header.Version != FormatVersion {
				return nil, fmt.Errorf("%w: version %d", ErrFormat, e.Header.Version)
			}
			log.Header = *e.Header
			haveHeader = true
		case e.Type == entryTick && e.Tick != nil && haveHeader && log.End == nil:
			log.Ticks = append(log.Ticks, *e.Tick)
		case e.Type == entryEnd && e.End != nil && haveHeader && log.End == nil:
			log.End = e.End
		default:
			return nil, fmt.Errorf("%w: line %d: unexpected %q entry", ErrFormat, line, e.Type)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if !haveHeader {
		return nil, fmt.Errorf("%w: missing header", ErrFormat)
	}
	return &log, nil
}

// Open reads a log file.
func Open(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replay: cannot open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}
