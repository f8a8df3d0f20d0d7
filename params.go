package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/fin-c3po/api-contract-tests/framework"
)

const (
	defaultServiceURL      = "http://localhost:8080/api"
	defaultAdminIdentifier = "admin"
	defaultTimeout         = 30 * time.Second
	defaultTokenFileName   = "c3po-api-tests.token"

	envServiceURL      = "C3PO_BASE_URL"
	envAdminIdentifier = "C3PO_ADMIN_IDENTIFIER"
	envAdminPassword   = "C3PO_ADMIN_PASSWORD"
)

// fileConfig is the layout of the optional --config file.
type fileConfig struct {
	URL   string `yaml:"url"`
	Admin struct {
		Identifier string `yaml:"identifier"`
		Password   string `yaml:"password"`
	} `yaml:"admin"`
	TokenFile string   `yaml:"token_file"`
	Timeout   string   `yaml:"timeout"`
	Wait      string   `yaml:"wait"`
	Run       []string `yaml:"run"`
	Skip      []string `yaml:"skip"`
}

type commandParams struct {
	configFile      string
	serviceURL      string
	adminIdentifier string
	adminPassword   string
	tokenFile       string
	timeout         time.Duration
	wait            time.Duration
	filters         framework.RegexFilters
	debug           bool
	debugAll        bool
	noColor         bool
}

func (c *commandParams) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.configFile, "config", "", "YAML file with default settings")
	fs.StringVar(&c.serviceURL, "url", defaultServiceURL, "base URL of the service (env "+envServiceURL+")")
	fs.StringVar(&c.adminIdentifier, "admin-identifier", defaultAdminIdentifier,
		"username or email of the administrator account (env "+envAdminIdentifier+")")
	fs.StringVar(&c.adminPassword, "admin-password", "",
		"password of the administrator account (env "+envAdminPassword+")")
	fs.StringVar(&c.tokenFile, "token-file", filepath.Join(os.TempDir(), defaultTokenFileName),
		"file that holds the current access token")
	fs.DurationVar(&c.timeout, "timeout", defaultTimeout, "timeout for each request")
	fs.DurationVar(&c.wait, "wait", 0, "wait up to this long for the service to respond before running")
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging for failed tests")
	fs.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for all tests")
	fs.BoolVar(&c.noColor, "no-color", false, "disable colored output")
}

// resolve fills in every setting that was not given on the command line, first from the
// environment and then from the config file.
func (c *commandParams) resolve(fs *pflag.FlagSet, getenv func(string) string) error {
	var file fileConfig
	if c.configFile != "" {
		data, err := os.ReadFile(c.configFile)
		if err != nil {
			return fmt.Errorf("could not read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("could not parse config file %s: %w", c.configFile, err)
		}
	}

	pick := func(flag string, target *string, env, fromFile string) {
		if fs.Changed(flag) {
			return
		}
		if env != "" {
			if v := getenv(env); v != "" {
				*target = v
				return
			}
		}
		if fromFile != "" {
			*target = fromFile
		}
	}
	pick("url", &c.serviceURL, envServiceURL, file.URL)
	pick("admin-identifier", &c.adminIdentifier, envAdminIdentifier, file.Admin.Identifier)
	pick("admin-password", &c.adminPassword, envAdminPassword, file.Admin.Password)
	pick("token-file", &c.tokenFile, "", file.TokenFile)

	durations := []struct {
		flag   string
		target *time.Duration
		value  string
	}{
		{"timeout", &c.timeout, file.Timeout},
		{"wait", &c.wait, file.Wait},
	}
	for _, d := range durations {
		if fs.Changed(d.flag) || d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s in config file: %w", d.flag, err)
		}
		*d.target = parsed
	}

	if !fs.Changed("run") {
		for _, p := range file.Run {
			if err := c.filters.MustMatch.Set(p); err != nil {
				return fmt.Errorf("invalid run pattern in config file: %w", err)
			}
		}
	}
	if !fs.Changed("skip") {
		for _, p := range file.Skip {
			if err := c.filters.MustNotMatch.Set(p); err != nil {
				return fmt.Errorf("invalid skip pattern in config file: %w", err)
			}
		}
	}

	return c.validate()
}

func (c *commandParams) validate() error {
	switch {
	case c.serviceURL == "":
		return errors.New("a service URL is required")
	case c.adminIdentifier == "":
		return errors.New("an administrator identifier is required")
	case c.adminPassword == "":
		return fmt.Errorf("an administrator password is required (--admin-password or %s)", envAdminPassword)
	case c.tokenFile == "":
		return errors.New("a token file is required")
	case c.timeout <= 0:
		return errors.New("timeout must be positive")
	case c.wait < 0:
		return errors.New("wait must not be negative")
	}
	return nil
}
