package violation

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode writes reports to w as a single msgpack array.
func Encode(w io.Writer, reports []*Report) error {
	if reports == nil {
		reports = []*Report{}
	}
	if err := msgpack.NewEncoder(w).Encode(reports); err != nil {
		return fmt.Errorf("encode violation reports: %w", err)
	}
	return nil
}

// Decode reads reports written by Encode.
func Decode(r io.Reader) ([]*Report, error) {
	var reports []*Report
	if err := msgpack.NewDecoder(r).Decode(&reports); err != nil {
		return nil, fmt.Errorf("decode violation reports: %w", err)
	}
	return reports, nil
}
