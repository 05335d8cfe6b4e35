package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/mezonai/ethash/ethash"
	"github.com/mezonai/ethash/events"
	"github.com/mezonai/ethash/jsonx"
	"github.com/mezonai/ethash/types"
)

func newEngine(bus *events.EventBus) (*ethash.Ethash, error) {
	cfg, params, err := loadConfiguration()
	if err != nil {
		return nil, err
	}
	return ethash.New(cfg, params, bus), nil
}

// readHeaders loads a JSON file holding one header or an array of headers.
func readHeaders(path string) ([]*types.Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var headers []*types.Header
		if err := jsonx.Unmarshal(data, &headers); err != nil {
			return nil, fmt.Errorf("decode headers %s: %w", path, err)
		}
		for i, h := range headers {
			if h == nil {
				return nil, fmt.Errorf("decode headers %s: entry %d is null", path, i)
			}
		}
		return headers, nil
	}
	var header types.Header
	if err := jsonx.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("decode header %s: %w", path, err)
	}
	return []*types.Header{&header}, nil
}

func readHeader(path string) (*types.Header, error) {
	headers, err := readHeaders(path)
	if err != nil {
		return nil, err
	}
	if len(headers) != 1 {
		return nil, fmt.Errorf("%s: expected one header, found %d", path, len(headers))
	}
	return headers[0], nil
}

func printJSON(w io.Writer, v interface{}) error {
	out, err := jsonx.MarshalIndent(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
