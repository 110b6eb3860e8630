package tuning

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/rftune/core/model"
	"github.com/YuminosukeSato/rftune/pkg/errors"
)

// LoadParamGrid decodes a YAML mapping of parameter names to candidate lists:
//
//	n_estimators: [100, 500]
//	max_depth: [null, 8]
//	max_features: [sqrt]
func LoadParamGrid(r io.Reader) (model.ParamGrid, error) {
	var raw map[string][]interface{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode parameter grid")
	}
	grid := model.ParamGrid(raw)
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	return grid, nil
}

// LoadParamGridFile reads a YAML parameter grid from path.
func LoadParamGridFile(path string) (model.ParamGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open parameter grid %s", path)
	}
	defer f.Close()
	return LoadParamGrid(f)
}
