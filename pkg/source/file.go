// Copyright 2026 The Certattest Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileSource reads certificates from a local directory. Keys are slash
// separated paths relative to the directory.
type FileSource struct {
	dir string
}

func NewFileSource(dir string) (*FileSource, error) {
	if dir == "" {
		return nil, errors.New("file source requires a directory")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	return &FileSource{dir: abs}, nil
}

func (f *FileSource) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := f.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("failed to read certificate file %s: %w", p, err)
	}
	return data, nil
}

func (f *FileSource) Name() string {
	return "file-" + f.dir
}

func (f *FileSource) resolve(key string) (string, error) {
	if strings.Trim(key, "/") == "" {
		return "", errors.New("empty key")
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("key %q escapes source directory", key)
		}
	}
	return filepath.Join(f.dir, filepath.FromSlash(key)), nil
}
