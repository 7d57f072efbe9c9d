package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalnine/tuneloop/internal/record"
)

type Config struct {
	Workspace  Workspace   `yaml:"workspace"`
	Signal     Signal      `yaml:"signal"`
	Parameters []Parameter `yaml:"parameters"`
	Objective  Objective   `yaml:"objective"`
	Optimizer  Optimizer   `yaml:"optimizer"`
	Driver     Driver      `yaml:"driver"`
	Results    Results     `yaml:"results"`
	Logging    Logging     `yaml:"logging"`
}

// Workspace is the directory shared with the optimizer.
type Workspace struct {
	Dir             string `yaml:"dir"`
	ResultsFile     string `yaml:"results_file"`
	SignalFile      string `yaml:"signal_file"`
	OptimizerConfig string `yaml:"optimizer_config"`
}

type Signal struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
	NoWatch      bool          `yaml:"no_watch"`
}

// Parameter is one dimension of the search space, written to the optimizer's
// config file.
type Parameter struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"`
	Min     float64  `yaml:"min"`
	Max     float64  `yaml:"max"`
	Size    int      `yaml:"size"`
	Options []string `yaml:"options"`
}

// Objective is the command that evaluates one parameter vector and prints a score.
type Objective struct {
	Command []string          `yaml:"command"`
	Env     map[string]string `yaml:"env"`
	Timeout time.Duration     `yaml:"timeout"`
}

// Optimizer optionally runs the optimizer in a container next to the driver.
type Optimizer struct {
	Image       string            `yaml:"image"`
	Command     []string          `yaml:"command"`
	Env         map[string]string `yaml:"env"`
	CPULimit    float64           `yaml:"cpu_limit"`
	MemoryLimit int64             `yaml:"memory_limit"`
}

type Driver struct {
	Iterations     int    `yaml:"iterations"`
	Parallel       int    `yaml:"parallel"`
	MaxEmptyRounds int    `yaml:"max_empty_rounds"`
	Duration       string `yaml:"duration"`
}

type Results struct {
	Dir string `yaml:"dir"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// ResultsPath is the results file shared with the optimizer.
func (c *Config) ResultsPath() string {
	return filepath.Join(c.Workspace.Dir, c.Workspace.ResultsFile)
}

// SignalPath is the marker file used to request suggestions.
func (c *Config) SignalPath() string {
	return filepath.Join(c.Workspace.Dir, c.Workspace.SignalFile)
}

func (c *Config) OptimizerConfigPath() string {
	return filepath.Join(c.Workspace.Dir, c.Workspace.OptimizerConfig)
}

func validate(cfg *Config) error {
	w := &cfg.Workspace
	if w.Dir == "" {
		return fmt.Errorf("workspace.dir is required")
	}
	if w.ResultsFile == "" {
		w.ResultsFile = "results.dat"
	}
	if w.SignalFile == "" {
		w.SignalFile = ".suggest"
	}
	if w.OptimizerConfig == "" {
		w.OptimizerConfig = "config.json"
	}
	if w.SignalFile == w.ResultsFile {
		return fmt.Errorf("workspace.signal_file must differ from workspace.results_file")
	}

	if cfg.Signal.PollInterval <= 0 {
		cfg.Signal.PollInterval = 100 * time.Millisecond
	}
	if cfg.Signal.Timeout < 0 {
		return fmt.Errorf("signal.timeout must not be negative")
	}

	if len(cfg.Parameters) == 0 {
		return fmt.Errorf("no parameters defined")
	}
	seen := make(map[string]bool)
	for i := range cfg.Parameters {
		p := &cfg.Parameters[i]
		if p.Name == "" {
			return fmt.Errorf("parameter %d: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("parameter %q: defined twice", p.Name)
		}
		seen[p.Name] = true
		if p.Type == "" {
			p.Type = "float"
		}
		if p.Size == 0 {
			p.Size = 1
		}
		if p.Size < 0 {
			return fmt.Errorf("parameter %q: size must be positive", p.Name)
		}
		switch p.Type {
		case "int", "float":
			if p.Min > p.Max {
				return fmt.Errorf("parameter %q: min %v is greater than max %v", p.Name, p.Min, p.Max)
			}
		case "enum":
			if len(p.Options) == 0 {
				return fmt.Errorf("parameter %q: enum needs options", p.Name)
			}
		default:
			return fmt.Errorf("parameter %q: unknown type %q", p.Name, p.Type)
		}
	}

	if cfg.Objective.Timeout <= 0 {
		cfg.Objective.Timeout = 10 * time.Minute
	}

	d := &cfg.Driver
	if d.Iterations < 0 {
		return fmt.Errorf("driver.iterations must not be negative")
	}
	if d.Parallel < 1 {
		d.Parallel = 1
	}
	if d.MaxEmptyRounds < 1 {
		d.MaxEmptyRounds = 3
	}
	if d.Duration == "" {
		d.Duration = "1"
	}
	if err := record.CheckNumber(d.Duration); err != nil {
		return fmt.Errorf("driver.duration: %w", err)
	}

	if cfg.Results.Dir == "" {
		cfg.Results.Dir = "results"
	}
	// reset clears every subdirectory of the workspace.
	inside, err := within(w.Dir, cfg.Results.Dir)
	if err != nil {
		return err
	}
	if inside {
		return fmt.Errorf("results.dir %q must not be inside workspace.dir %q", cfg.Results.Dir, w.Dir)
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	return nil
}

// within reports whether path is dir or lies below it.
func within(dir, path string) (bool, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false, fmt.Errorf("resolving %s: %w", dir, err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("resolving %s: %w", path, err)
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false, nil
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)), nil
}
