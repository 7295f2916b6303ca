package vm

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Load reads a raw program image. There is no header; the whole content is
// the image that goes to ProgramStart.
func Load(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	// one byte more than fits, enough to tell a too large image apart
	n, err := io.Copy(&buf, io.LimitReader(r, MaxProgramSize+1))
	if err != nil {
		return nil, fmt.Errorf("unable to read program: %w", err)
	}

	if n > MaxProgramSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrProgramTooLarge, MaxProgramSize)
	}

	return buf.Bytes(), nil
}

func LoadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load file %q: %w", path, err)
	}
	defer f.Close()

	program, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("unable to load file %q: %w", path, err)
	}
	return program, nil
}
