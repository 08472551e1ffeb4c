// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// memObjects is an in-memory ObjectReader.
type memObjects struct {
	data map[string][]byte
}

func newMemObjects() *memObjects {
	return &memObjects{data: make(map[string][]byte)}
}

func (m *memObjects) put(key string, b []byte) { m.data[key] = b }

func (m *memObjects) Open(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memObjects) DownloadToFile(_ context.Context, key, path string) error {
	b, ok := m.data[key]
	if !ok {
		return fmt.Errorf("object %s not found", key)
	}
	return os.WriteFile(path, b, 0o600)
}

// writeFakeFFProbe writes an executable shell script standing in for
// ffprobe and returns its path.
func writeFakeFFProbe(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffprobe")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ffprobe: %v", err)
	}
	return path
}

// ffprobeJSON returns a script body that prints out as ffprobe's output.
func ffprobeJSON(out string) string {
	return "cat <<'JSON'\n" + out + "\nJSON"
}
