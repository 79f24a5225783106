package moderation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadRules reads a YAML rules file and overlays its non-zero fields onto base.
func LoadRules(path string, base Rules) (Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read moderation rules %s: %w", path, err)
	}

	var file Rules
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return base, fmt.Errorf("parse moderation rules %s: %w", path, err)
	}

	if file.MaxLength > 0 {
		base.MaxLength = file.MaxLength
	}
	if file.CapsRatio > 0 {
		base.CapsRatio = file.CapsRatio
	}
	if file.CapsMinLength > 0 {
		base.CapsMinLength = file.CapsMinLength
	}
	if file.MaxRepeat > 0 {
		base.MaxRepeat = file.MaxRepeat
	}
	if file.Denylist != nil {
		base.Denylist = file.Denylist
	}
	return base, nil
}
