// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package answer

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// MaxChunkSize is the maximum allowed size for a single SSE event (64KB).
const MaxChunkSize = 64 * 1024

// ErrChunkTooLarge is returned when an SSE event exceeds MaxChunkSize.
var ErrChunkTooLarge = errors.New("sse event exceeds maximum size")

// sseReader parses Server-Sent Events from a stream.
type sseReader struct {
	reader *bufio.Reader
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{reader: bufio.NewReader(r)}
}

// ReadEvent reads the next event. It returns the event type, the joined data
// lines, and io.EOF once the stream is exhausted.
func (s *sseReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte
	size := 0

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				if len(dataLines) > 0 {
					return eventType, bytes.Join(dataLines, []byte("\n")), nil
				}
				return "", nil, io.EOF
			}
			return "", nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line terminates the event
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			eventType = ""
			continue
		}

		switch {
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(bytes.TrimSpace(line[6:]))
		case bytes.HasPrefix(line, []byte("data:")):
			data := bytes.TrimPrefix(line[5:], []byte(" "))
			size += len(data)
			if size > MaxChunkSize {
				return "", nil, ErrChunkTooLarge
			}
			dataLines = append(dataLines, data)
		}
		// id:, retry: and ":" comments are ignored
	}
}
