// Package workspace prepares the directory shared between the driver and the
// optimizer: the optimizer's search-space description and an empty results file.
package workspace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/signalnine/tuneloop/internal/config"
)

var logger = logrus.WithFields(logrus.Fields{
	"app":       "tuneloop",
	"component": "workspace",
})

// variable is one entry of the optimizer's config.json.
type variable struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Size    int      `json:"size"`
	Options []string `json:"options,omitempty"`
}

// OptimizerConfig renders the search space as a JSON object keyed by parameter
// name. Keys keep the order of params, which the optimizer uses as column order.
func OptimizerConfig(params []config.Parameter) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range params {
		if i > 0 {
			buf.WriteString(", ")
		}
		key, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		v := variable{Name: p.Name, Type: p.Type, Size: p.Size}
		if p.Type == "enum" {
			v.Options = p.Options
		} else {
			lo, hi := p.Min, p.Max
			v.Min, v.Max = &lo, &hi
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding parameter %q: %w", p.Name, err)
		}
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Init creates the workspace directory, writes the optimizer config and
// creates an empty results file when none exists. An existing results file is
// left untouched so a workspace can be re-initialized mid-search.
func Init(cfg *config.Config) error {
	if err := os.MkdirAll(cfg.Workspace.Dir, 0o755); err != nil {
		return fmt.Errorf("creating workspace: %w", err)
	}

	data, err := OptimizerConfig(cfg.Parameters)
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfg.OptimizerConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("writing optimizer config: %w", err)
	}

	f, err := os.OpenFile(cfg.ResultsPath(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	switch {
	case err == nil:
		f.Close()
		logger.WithField("path", cfg.ResultsPath()).Info("Created empty results file.")
	case errors.Is(err, os.ErrExist):
	default:
		return fmt.Errorf("creating results file: %w", err)
	}
	return nil
}
