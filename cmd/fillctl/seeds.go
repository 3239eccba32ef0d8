package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/docfill-backend/internal/services"
)

// loadSeeds reads an intake file. .json files are decoded as JSON, anything
// else as YAML.
func loadSeeds(path string) (services.CreateSessionInput, error) {
	var in services.CreateSessionInput
	raw, err := os.ReadFile(path)
	if err != nil {
		return in, fmt.Errorf("read seeds: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(raw, &in)
	} else {
		err = yaml.Unmarshal(raw, &in)
	}
	if err != nil {
		return in, fmt.Errorf("parse seeds %s: %w", path, err)
	}
	if len(in.Placeholders) == 0 {
		return in, fmt.Errorf("seeds %s: no placeholders", path)
	}
	return in, nil
}
