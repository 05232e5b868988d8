package gamelog

import (
	"bufio"
	"os"

	"github.com/klauspost/compress/zstd"
)

// WriteArchive saves the retained entries to path as a zstd-compressed
// transcript, one line per entry. The on-screen buffer only keeps the
// last MaxEntries lines; the archive is how a session's tail survives.
func (b *Buffer) WriteArchive(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	for _, e := range b.Entries() {
		if _, err := zw.Write([]byte(e + "\n")); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return f.Close()
}

// ReadArchive loads a transcript written by WriteArchive.
func ReadArchive(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var lines []string
	sc := bufio.NewScanner(zr)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}
