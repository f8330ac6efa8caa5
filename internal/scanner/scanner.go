// Package scanner turns camera frames, uploaded images or typed input into
// barcode strings for the catalog. Decoding itself happens outside the
// process; this package only defines the boundary.
package scanner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// MinCodeLength is the shortest code accepted from a scanner.
const MinCodeLength = 8

var (
	ErrCodeTooShort = errors.New("code too short")
	ErrClosed       = errors.New("scanner closed")
)

// Scanner yields one decoded code per call.
type Scanner interface {
	Scan(ctx context.Context) (string, error)
}

// Accept trims code and rejects anything shorter than MinCodeLength.
func Accept(code string) (string, error) {
	code = strings.TrimSpace(code)
	if len([]rune(code)) < MinCodeLength {
		return "", fmt.Errorf("%w: %q", ErrCodeTooShort, code)
	}
	return code, nil
}

// Consume hands every accepted code to fn until the scanner is exhausted or
// ctx is done. Short codes are skipped.
func Consume(ctx context.Context, s Scanner, fn func(code string)) error {
	for {
		raw, err := s.Scan(ctx)
		if errors.Is(err, io.EOF) || errors.Is(err, ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}

		code, err := Accept(raw)
		if err != nil {
			continue
		}
		fn(code)
	}
}

// StreamScanner reads codes from a live decoder feeding a channel.
type StreamScanner struct {
	codes <-chan string
}

func NewStreamScanner(codes <-chan string) *StreamScanner {
	return &StreamScanner{codes: codes}
}

func (s *StreamScanner) Scan(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case code, ok := <-s.codes:
		if !ok {
			return "", ErrClosed
		}
		return code, nil
	}
}

// ImageDecoder extracts a barcode from a still image.
type ImageDecoder interface {
	Decode(ctx context.Context, image io.Reader) (string, error)
}

// ImageScanner decodes a single uploaded image. The second Scan reports
// io.EOF.
type ImageScanner struct {
	decoder ImageDecoder
	image   io.Reader
	once    sync.Once
}

func NewImageScanner(decoder ImageDecoder, image io.Reader) *ImageScanner {
	return &ImageScanner{decoder: decoder, image: image}
}

func (s *ImageScanner) Scan(ctx context.Context) (string, error) {
	first := false
	s.once.Do(func() { first = true })
	if !first {
		return "", io.EOF
	}
	code, err := s.decoder.Decode(ctx, s.image)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	return code, nil
}

// ManualScanner reads one code per line, as typed by the user.
type ManualScanner struct {
	lines *bufio.Scanner
}

func NewManualScanner(r io.Reader) *ManualScanner {
	return &ManualScanner{lines: bufio.NewScanner(r)}
}

func (s *ManualScanner) Scan(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !s.lines.Scan() {
		if err := s.lines.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.lines.Text(), nil
}
