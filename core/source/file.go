package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"asset-tracker/core/dispatch"
	"asset-tracker/core/tracking"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// maxLineSize bounds a single replay line.
const maxLineSize = 1 << 20

// File replays detections from a file. Each line is either a JSON encoded
// tracking.DetectionEvent or "tag,room[,reader_id]". Blank lines and lines
// starting with '#' are ignored; malformed lines are logged and skipped.
type File struct {
	path     string
	readerID string
	logger   *zap.Logger
	open     func() (io.ReadCloser, error)
}

// NewFile returns a source replaying path. readerID is used for lines that
// do not carry one.
func NewFile(path, readerID string, logger *zap.Logger) *File {
	return &File{
		path:     path,
		readerID: readerID,
		logger:   logger,
		open:     func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// NewReader returns a source replaying r. name identifies it in logs. The
// source is single-use: r is consumed by the first Stream call.
func NewReader(name string, r io.Reader, readerID string, logger *zap.Logger) *File {
	return &File{
		path:     name,
		readerID: readerID,
		logger:   logger,
		open:     func() (io.ReadCloser, error) { return io.NopCloser(r), nil },
	}
}

// Name implements dispatch.Source.
func (f *File) Name() string {
	return "file:" + f.path
}

// Stream implements dispatch.Source. It returns nil at end of input. Lines
// longer than maxLineSize are logged and skipped. Open and read failures are
// permanent: a restart would replay the log from its first line.
func (f *File) Stream(ctx context.Context, emit func(tracking.DetectionEvent)) error {
	rc, err := f.open()
	if err != nil {
		return dispatch.Permanent(fmt.Errorf("open %s: %w", f.path, err))
	}
	defer rc.Close()

	br := bufio.NewReaderSize(rc, 64*1024)
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, tooLong, err := readLine(br, maxLineSize)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return dispatch.Permanent(fmt.Errorf("read %s line %d: %w", f.path, line, err))
		}
		if tooLong {
			f.logger.Warn("Skipping oversized detection line",
				zap.String("file", f.path),
				zap.Int("line", line),
				zap.Int("limit", maxLineSize),
			)
			continue
		}

		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}
		ev, err := f.parse(raw)
		if err != nil {
			f.logger.Warn("Skipping malformed detection line",
				zap.String("file", f.path),
				zap.Int("line", line),
				zap.Error(err),
			)
			continue
		}
		emit(ev)
	}
}

// readLine returns the next line without its terminator. A line longer than
// limit is consumed entirely and reported with tooLong set.
func readLine(br *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && (len(line) > 0 || tooLong) {
				return line, tooLong, nil
			}
			return line, tooLong, err
		}
		if !tooLong {
			if len(line)+len(chunk) > limit {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if !isPrefix {
			return line, tooLong, nil
		}
	}
}

func (f *File) parse(raw []byte) (tracking.DetectionEvent, error) {
	var ev tracking.DetectionEvent
	if raw[0] == '{' {
		if err := json.Unmarshal(raw, &ev); err != nil {
			return ev, err
		}
	} else {
		parts := strings.Split(string(raw), ",")
		if len(parts) < 2 || len(parts) > 3 {
			return ev, fmt.Errorf("want tag,room[,reader_id], got %d fields", len(parts))
		}
		ev.Tag = strings.TrimSpace(parts[0])
		ev.Room = tracking.RoomID(strings.TrimSpace(parts[1]))
		if len(parts) == 3 {
			ev.ReaderID = strings.TrimSpace(parts[2])
		}
	}
	if ev.ReaderID == "" {
		ev.ReaderID = f.readerID
	}
	return ev, nil
}
