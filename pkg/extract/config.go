package extract

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Keywords are the case-sensitive markers the field extractor looks for.
// Listed in match priority order.
type Keywords struct {
	Name   string `yaml:"name" json:"name"`
	Age    string `yaml:"age" json:"age"`
	Gender string `yaml:"gender" json:"gender"`
}

func DefaultKeywords() Keywords {
	return Keywords{Name: "Name", Age: "Age", Gender: "Gender"}
}

// LoadKeywords reads a keyword override file, falling back to the
// defaults when no path is configured.
func LoadKeywords(path string) (Keywords, error) {
	if path == "" {
		return DefaultKeywords(), nil
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultKeywords(), err
	}

	var kw Keywords
	if err := yaml.Unmarshal(content, &kw); err != nil {
		return Keywords{}, err
	}

	if kw.Name == "" || kw.Age == "" || kw.Gender == "" {
		return Keywords{}, errors.New("keyword file must set name, age and gender")
	}

	return kw, nil
}
