package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	WorkspacesDir string `mapstructure:"workspaces_dir" yaml:"workspaces_dir"`

	// Charts
	ChartWidth  int    `mapstructure:"chart_width" yaml:"chart_width"`
	ChartHeight int    `mapstructure:"chart_height" yaml:"chart_height"`
	ChartTheme  string `mapstructure:"chart_theme" yaml:"chart_theme"`

	// Pipelines
	TopN        int `mapstructure:"top_n" yaml:"top_n"`
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`

	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// Sources. Empty separators mean auto-detect.
	Delimiter          string `mapstructure:"delimiter" yaml:"delimiter"`
	DecimalSeparator   string `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	ThousandsSeparator string `mapstructure:"thousands_separator" yaml:"thousands_separator"`
	XLSXSheet          string `mapstructure:"xlsx_sheet" yaml:"xlsx_sheet"`
	SQLiteTable        string `mapstructure:"sqlite_table" yaml:"sqlite_table"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"workspaces_dir", "chart_width", "chart_height", "chart_theme", "top_n",
	"concurrency", "log_format", "delimiter", "decimal_separator",
	"thousands_separator", "xlsx_sheet", "sqlite_table",
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".healthlens"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.healthlens/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Defaults returns the configuration used when no file or env value is set.
func Defaults() *Global {
	c := &Global{
		ChartWidth:  1200,
		ChartHeight: 600,
		ChartTheme:  "light",
		TopN:        10,
		Concurrency: 4,
		LogFormat:   "text",
		SQLiteTable: "observations",
	}
	if dir, err := configDir(); err == nil {
		c.WorkspacesDir = filepath.Join(dir, "workspaces")
	}
	return c
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults; command flags are applied by the caller.
// A missing config file is not an error; an unreadable or malformed one is.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("HEALTHLENS")
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("workspaces_dir", d.WorkspacesDir)
	v.SetDefault("chart_width", d.ChartWidth)
	v.SetDefault("chart_height", d.ChartHeight)
	v.SetDefault("chart_theme", d.ChartTheme)
	v.SetDefault("top_n", d.TopN)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("delimiter", d.Delimiter)
	v.SetDefault("decimal_separator", d.DecimalSeparator)
	v.SetDefault("thousands_separator", d.ThousandsSeparator)
	v.SetDefault("xlsx_sheet", d.XLSXSheet)
	v.SetDefault("sqlite_table", d.SQLiteTable)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.WorkspacesDir == "" {
		c.WorkspacesDir = d.WorkspacesDir
	}
	return &c, nil
}

// Set assigns one key from its string form, validating the value.
func (c *Global) Set(key, val string) error {
	positive := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return 0, fmt.Errorf("invalid positive int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "workspaces_dir":
		c.WorkspacesDir = val
	case "chart_width":
		c.ChartWidth, err = positive()
	case "chart_height":
		c.ChartHeight, err = positive()
	case "chart_theme":
		switch strings.ToLower(val) {
		case "light", "dark", "grafana", "ant":
			c.ChartTheme = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid chart_theme: %s (use light, dark, grafana or ant)", val)
		}
	case "top_n":
		c.TopN, err = positive()
	case "concurrency":
		c.Concurrency, err = positive()
	case "log_format":
		switch strings.ToLower(val) {
		case "text", "json":
			c.LogFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_format: %s (use text or json)", val)
		}
	case "delimiter":
		if _, err := Delimiter(val); err != nil {
			return err
		}
		c.Delimiter = val
	case "decimal_separator":
		if _, err := Separator(val); err != nil {
			return err
		}
		c.DecimalSeparator = val
	case "thousands_separator":
		if _, err := Separator(val); err != nil {
			return err
		}
		c.ThousandsSeparator = val
	case "xlsx_sheet":
		c.XLSXSheet = val
	case "sqlite_table":
		c.SQLiteTable = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

// Get returns the string form of one key.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "workspaces_dir":
		return c.WorkspacesDir, nil
	case "chart_width":
		return strconv.Itoa(c.ChartWidth), nil
	case "chart_height":
		return strconv.Itoa(c.ChartHeight), nil
	case "chart_theme":
		return c.ChartTheme, nil
	case "top_n":
		return strconv.Itoa(c.TopN), nil
	case "concurrency":
		return strconv.Itoa(c.Concurrency), nil
	case "log_format":
		return c.LogFormat, nil
	case "delimiter":
		return c.Delimiter, nil
	case "decimal_separator":
		return c.DecimalSeparator, nil
	case "thousands_separator":
		return c.ThousandsSeparator, nil
	case "xlsx_sheet":
		return c.XLSXSheet, nil
	case "sqlite_table":
		return c.SQLiteTable, nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

// Delimiter parses a CSV delimiter setting. Empty means auto-detect.
func Delimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	case "|", "pipe":
		return '|', nil
	}
	return 0, fmt.Errorf("unsupported delimiter: %s (use ',' | ';' | 'tab' | 'pipe')", s)
}

// Separator parses a decimal or thousands separator setting. Empty means auto-detect.
func Separator(s string) (rune, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		if s == " " {
			return ' ', nil
		}
		return 0, nil
	case ",", "comma":
		return ',', nil
	case ".", "dot":
		return '.', nil
	case "space":
		return ' ', nil
	case "'", "apostrophe":
		return '\'', nil
	}
	return 0, fmt.Errorf("unsupported separator: %s (use '.' | 'comma' | 'space')", s)
}
