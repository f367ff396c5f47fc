// Package config resolves server settings from defaults, isoserve.yaml and flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read from the working directory when -config is not given.
const DefaultConfigFile = "isoserve.yaml"

// Config contains every tunable server parameter.
// Zero-flag, zero-file startup yields the fixed contract: all interfaces, port 3000, ./dist.
type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Root string `yaml:"root"`

	IndexFiles     []string          `yaml:"indexFiles"`
	ListDirs       bool              `yaml:"listDirectories"`
	NotFoundPage   string            `yaml:"notFoundPage"`
	TestPage       string            `yaml:"testPage"`
	Compress       bool              `yaml:"compress"`
	Watch          bool              `yaml:"watch"`
	AccessLog      bool              `yaml:"accessLog"`
	ExtraMimeTypes map[string]string `yaml:"mimeTypes"`

	// Timeouts
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout"`
	ReadTimeout       time.Duration `yaml:"readTimeout"`
	WriteTimeout      time.Duration `yaml:"writeTimeout"`
	IdleTimeout       time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`
	DebounceDuration  time.Duration `yaml:"debounceDuration"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host: "",
		Port: 3000,
		Root: "dist",

		IndexFiles:   []string{"index.html", "index.htm"},
		ListDirs:     true,
		NotFoundPage: "404.html",
		TestPage:     "test.html",
		AccessLog:    true,

		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DebounceDuration:  300 * time.Millisecond,
	}
}

// Load builds a Config for the serve command. Flags override the YAML file,
// which overrides defaults. A missing default config file is not an error; a
// missing file named with -config is.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a YAML config file (default ./"+DefaultConfigFile+" if present)")
	host := fs.String("host", "", "The host/IP to bind to (empty binds all interfaces)")
	port := fs.Int("port", 0, "The port to listen on")
	root := fs.String("root", "", "Directory to serve")
	compress := fs.Bool("compress", false, "Gzip compressible responses")
	watch := fs.Bool("watch", false, "Watch the root directory and push reload events")
	noList := fs.Bool("no-list", false, "Disable directory listings")
	quiet := fs.Bool("quiet", false, "Disable the per-request access log")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := Default()

	path := *configPath
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if err := cfg.mergeFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = *host
		case "port":
			cfg.Port = *port
		case "root":
			cfg.Root = *root
		case "compress":
			cfg.Compress = *compress
		case "watch":
			cfg.Watch = *watch
		case "no-list":
			cfg.ListDirs = !*noList
		case "quiet":
			cfg.AccessLog = !*quiet
		}
	})

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BaseURL returns the URL printed in the startup banner.
func (c *Config) BaseURL() string {
	host := c.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Port)
}

// validate rejects unusable values and clamps timeouts into sane bounds.
func (c *Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	c.Root = strings.TrimSpace(c.Root)
	if c.Root == "" {
		return fmt.Errorf("root directory must not be empty")
	}

	index := c.IndexFiles[:0]
	for _, name := range c.IndexFiles {
		name = strings.TrimSpace(name)
		if name == "" || strings.ContainsAny(name, `/\`) {
			continue
		}
		index = append(index, name)
	}
	c.IndexFiles = index

	if c.ReadHeaderTimeout < time.Second {
		c.ReadHeaderTimeout = time.Second
	}
	if c.ReadTimeout < 0 {
		c.ReadTimeout = 0
	}
	if c.WriteTimeout < 0 {
		c.WriteTimeout = 0
	}
	if c.IdleTimeout < 0 {
		c.IdleTimeout = 0
	}
	if c.ShutdownTimeout < time.Second {
		c.ShutdownTimeout = time.Second
	}
	if c.ShutdownTimeout > 60*time.Second {
		c.ShutdownTimeout = 60 * time.Second
	}
	if c.DebounceDuration < 50*time.Millisecond {
		c.DebounceDuration = 50 * time.Millisecond
	}
	if c.DebounceDuration > 5*time.Second {
		c.DebounceDuration = 5 * time.Second
	}
	return nil
}
