// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package json

import (
	j "encoding/json"
	"fmt"
	"os"
	"path/filepath"

	bos "github.com/ekmixon/dcos-cli/internal/os"
)

func MarshalIndent(data any) ([]byte, error) {
	return j.MarshalIndent(data, "", "  ")
}

func FromFile[T any](filePath string) (*T, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("could not read file '%s': %w", filePath, err)
	}

	var v T
	if err := j.Unmarshal(content, &v); err != nil {
		return nil, fmt.Errorf("could not unmarshal file '%s': %w", filePath, err)
	}
	return &v, nil
}

// ToFile writes the data as JSON, creating missing parent dirs
func ToFile(filePath string, data any) error {
	if err := bos.CreateDirIfNotExisting(filepath.Dir(filePath)); err != nil {
		return err
	}

	content, err := j.Marshal(data)
	if err != nil {
		return fmt.Errorf("could not marshal data for '%s': %w", filePath, err)
	}

	if err := os.WriteFile(filePath, content, 0644); err != nil {
		return fmt.Errorf("could not write file '%s': %w", filePath, err)
	}
	return nil
}
