// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package persistence

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/someonegg/transfermatch/constraint"
)

// FileVersion is the only snapshot file layout this package reads.
const FileVersion = 1

var ErrUnsupportedVersion = errors.New("unsupported snapshot file version")

// FileHeader is stored as the first line of a snapshot file so it can be
// inspected without decoding the whole snapshot.
type FileHeader struct {
	Version int       `json:"version"`
	Save    string    `json:"save"`
	Written time.Time `json:"written"`
}

// WriteFile stores snap as a zstd compressed stream of a JSON header line
// followed by the JSON snapshot.
func WriteFile(path string, h FileHeader, snap constraint.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	h.Version = FileVersion
	if h.Written.IsZero() {
		h.Written = time.Now().UTC()
	}

	if err := writeSnapshot(f, h, snap); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeSnapshot(w io.Writer, h FileHeader, snap constraint.Snapshot) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 64*1024)
	je := json.NewEncoder(bw)
	if err := je.Encode(h); err != nil {
		enc.Close()
		return fmt.Errorf("json encode header: %w", err)
	}
	if err := je.Encode(snap); err != nil {
		enc.Close()
		return fmt.Errorf("json encode snapshot: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadFile loads a snapshot written by WriteFile.
func ReadFile(path string) (FileHeader, constraint.Snapshot, error) {
	var (
		h    FileHeader
		snap constraint.Snapshot
	)
	f, err := os.Open(path)
	if err != nil {
		return h, snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, snap, err
	}
	defer dec.Close()

	jd := json.NewDecoder(bufio.NewReaderSize(dec, 64*1024))
	if err := jd.Decode(&h); err != nil {
		return h, snap, fmt.Errorf("json decode header: %w", err)
	}
	if h.Version != FileVersion {
		return h, snap, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if err := jd.Decode(&snap); err != nil {
		return h, snap, fmt.Errorf("json decode snapshot: %w", err)
	}
	return h, snap, nil
}
