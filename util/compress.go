// util/compress.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// CompressZstd compresses the given bytes with zstd; it is used for the
// diagnostics dumps of the vehicle state store, which compress extremely
// well since successive snapshots mostly repeat each other.
func CompressZstd(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}

	if _, err := zw.Write(b); err != nil {
		zw.Close()
		return nil, fmt.Errorf("zstd write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zstd close: %w", err)
	}

	return buf.Bytes(), nil
}

// DecompressZstd decompresses bytes that were compressed with
// CompressZstd.
func DecompressZstd(b []byte) ([]byte, error) {
	zr, err := zstd.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer zr.Close()

	d, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return d, nil
}
