package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"ftpsession/protocols"
	"ftpsession/session"
)

const EnvPrefix = "FTPSESSION"

type Config struct {
	Session       Session   `toml:"session"`
	Transport     Transport `toml:"transport"`
	Log           Log       `toml:"log"`
	Verify        Verify    `toml:"verify"`
	RetentionDays int       `toml:"retention_days"` // history older than this is pruned, 0 keeps everything
	Jobs          []Job     `toml:"jobs"`
}

type Session struct {
	Server       string `toml:"server"` // host or host:port
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Scheme       string `toml:"scheme"` // ftp, sftp
	Passive      bool   `toml:"passive"`
	TransferType string `toml:"transfer_type"` // ascii, binary
	Overwrite    bool   `toml:"overwrite"`
	LineEnding   string `toml:"line_ending"` // native, lf, crlf
	ChunkSize    int64  `toml:"chunk_size"`
	LocalRoot    string `toml:"local_root"`
}

type Transport struct {
	DialTimeoutSeconds int  `toml:"dial_timeout_seconds"`
	DisableEPSV        bool `toml:"disable_epsv"`
	Debug              bool `toml:"debug"`
}

type Log struct {
	Path  string `toml:"path"`
	Level string `toml:"level"`
}

// Verify drives the smoke check run by -verify.
type Verify struct {
	ExistingDir  string `toml:"existing_dir"`
	MissingDir   string `toml:"missing_dir"`
	File         string `toml:"file"`
	LocalDir     string `toml:"local_dir"`
	ASCIISHA256  string `toml:"ascii_sha256"`
	BinarySHA256 string `toml:"binary_sha256"`
}

type Job struct {
	Name         string `toml:"name"`
	Cron         string `toml:"cron"`
	Action       string `toml:"action"` // get, put, delete, mkdir, rmdir, rename
	Source       string `toml:"source"`
	Target       string `toml:"target"`
	SourceRegex  string `toml:"source_regex"` // get only: Source is a directory, fetch matching names
	TransferType string `toml:"transfer_type"`
	Overwrite    *bool  `toml:"overwrite,omitempty"`
	Once         bool   `toml:"once"` // skip files already recorded in history
	Auth         *Auth  `toml:"auth,omitempty"`
}

type Auth struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

func (a *Auth) Address() string {
	if a.Port > 0 {
		return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
	}
	return a.Host
}

var validActions = map[string]bool{
	"get": true, "put": true, "delete": true, "mkdir": true, "rmdir": true, "rename": true,
}

func Default() *Config {
	return &Config{
		Session: Session{
			Scheme:       string(protocols.SchemeFTP),
			Passive:      true,
			TransferType: "ascii",
			Overwrite:    true,
			LineEnding:   "native",
		},
		Transport: Transport{DialTimeoutSeconds: 30},
		Log:       Log{Level: "info"},
	}
}

// LoadConfig reads the TOML file at path over the defaults, then applies
// FTPSESSION_* environment overrides, then validates.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if s := v.GetString("server"); s != "" {
		cfg.Session.Server = s
	}
	if s := v.GetString("user"); s != "" {
		cfg.Session.User = s
	}
	if s := v.GetString("password"); s != "" {
		cfg.Session.Password = s
	}
	if s := v.GetString("scheme"); s != "" {
		cfg.Session.Scheme = s
	}
	if s := v.GetString("log_level"); s != "" {
		cfg.Log.Level = s
	}
}

func (c *Config) Validate() error {
	var errs *multierror.Error
	if _, err := protocols.ParseScheme(c.Session.Scheme); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("session: %w", err))
	}
	if _, err := ParseTransferType(c.Session.TransferType); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("session: %w", err))
	}
	if _, err := ParseLineEnding(c.Session.LineEnding); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("session: %w", err))
	}

	seen := make(map[string]bool)
	for i, job := range c.Jobs {
		name := job.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
			errs = multierror.Append(errs, fmt.Errorf("job %s: name is required", name))
		} else if seen[name] {
			errs = multierror.Append(errs, fmt.Errorf("job %s: duplicate name", name))
		}
		seen[name] = true

		if !validActions[job.Action] {
			errs = multierror.Append(errs, fmt.Errorf("job %s: unknown action %q", name, job.Action))
		}
		if job.Source == "" {
			errs = multierror.Append(errs, fmt.Errorf("job %s: source is required", name))
		}
		if (job.Action == "get" || job.Action == "put" || job.Action == "rename") && job.Target == "" {
			errs = multierror.Append(errs, fmt.Errorf("job %s: target is required for %s", name, job.Action))
		}
		if job.TransferType != "" {
			if _, err := ParseTransferType(job.TransferType); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("job %s: %w", name, err))
			}
		}
		if job.SourceRegex != "" {
			if job.Action != "get" {
				errs = multierror.Append(errs, fmt.Errorf("job %s: source_regex only applies to get", name))
			} else if _, err := regexp.Compile(job.SourceRegex); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("job %s: invalid source_regex: %w", name, err))
			}
		}
		if job.Cron != "" {
			if _, err := cron.ParseStandard(job.Cron); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("job %s: invalid cron: %w", name, err))
			}
		}
	}
	return errs.ErrorOrNil()
}

func ParseTransferType(s string) (protocols.TransferType, error) {
	switch strings.ToLower(s) {
	case "", "ascii":
		return protocols.ASCII, nil
	case "binary":
		return protocols.Binary, nil
	}
	return 0, fmt.Errorf("unknown transfer type %q", s)
}

func ParseLineEnding(s string) (string, error) {
	switch strings.ToLower(s) {
	case "", "native":
		return session.NativeLineEnding, nil
	case "lf":
		return "\n", nil
	case "crlf":
		return "\r\n", nil
	}
	return "", fmt.Errorf("unknown line ending %q", s)
}

func (t Transport) Options() protocols.Options {
	opts := protocols.DefaultOptions()
	if t.DialTimeoutSeconds > 0 {
		opts.DialTimeout = time.Duration(t.DialTimeoutSeconds) * time.Second
	}
	opts.DisableEPSV = t.DisableEPSV
	opts.Debug = t.Debug
	return opts
}
