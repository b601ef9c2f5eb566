/*
Copyright 2026 Dima Krasner

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cfg

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/dimkr/fedcore/fsx"
)

// ParamsFile is the name of the instance parameters file, relative to the base directory.
const ParamsFile = "config.json"

var paramsLock sync.Mutex

func loadParams(path string) (map[string]any, error) {
	buf, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	} else if err != nil {
		return nil, err
	}

	params := map[string]any{}
	if len(buf) == 0 {
		return params, nil
	}

	if err := json.Unmarshal(buf, &params); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return params, nil
}

// GetParam returns an instance parameter stored in the base directory.
func GetParam(baseDir, name string) (any, bool, error) {
	params, err := loadParams(filepath.Join(baseDir, ParamsFile))
	if err != nil {
		return nil, false, err
	}

	v, ok := params[name]
	return v, ok, nil
}

// GetBoolParam returns a boolean instance parameter, or false if unset.
func GetBoolParam(baseDir, name string) (bool, error) {
	v, ok, err := GetParam(baseDir, name)
	if err != nil || !ok {
		return false, err
	}

	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%s is not a boolean", name)
	}

	return b, nil
}

// SetParam updates an instance parameter, preserving all others.
func SetParam(baseDir, name string, value any) error {
	paramsLock.Lock()
	defer paramsLock.Unlock()

	path := filepath.Join(baseDir, ParamsFile)

	params, err := loadParams(path)
	if err != nil {
		return err
	}

	params[name] = value

	buf, err := json.MarshalIndent(params, "", "    ")
	if err != nil {
		return err
	}

	return fsx.WriteFileAtomic(path, buf, 0o644)
}
