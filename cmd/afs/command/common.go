package command

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meigma/afs"
)

var (
	defaultOutput io.Writer = os.Stdout
	logOutput     io.Writer = os.Stderr
)

// Common holds the options shared by every archive command.
type Common struct {
	Config    string `short:"c" long:"config" env:"AFS_CONFIG" description:"YAML file with default settings"`
	LogLevel  string `long:"log-level" env:"AFS_LOG_LEVEL" choice:"debug" choice:"info" choice:"warning" choice:"error" description:"logging level (default: info)"`
	LogFormat string `long:"log-format" env:"AFS_LOG_FORMAT" choice:"text" choice:"json" description:"logging format (default: text)"`
	Encoding  string `short:"e" long:"encoding" description:"character set of stored file names, e.g. Shift_JIS (default: UTF-8)"`
	Timezone  string `long:"timezone" description:"time zone stored dates are interpreted in (default: local)"`
	Verbose   bool   `short:"v" description:"Activates the verbose mode"`

	config *Config
	logger *logrus.Logger
}

// setup loads the config file, if any, and builds the logger.
func (c *Common) setup() error {
	c.config = &Config{}
	if c.Config != "" {
		cfg, err := LoadConfig(c.Config)
		if err != nil {
			return err
		}
		c.config = cfg
	}

	logger, err := newLogger(c.logLevel(), first(c.LogFormat, c.config.LogFormat, "text"))
	if err != nil {
		return err
	}
	c.logger = logger
	return nil
}

func (c *Common) logLevel() string {
	if c.Verbose {
		return "debug"
	}
	return first(c.LogLevel, c.config.LogLevel, "info")
}

// options translates the shared settings into archive options.
func (c *Common) options() ([]afs.Option, error) {
	opts := []afs.Option{afs.WithLogger(c.logger)}

	enc, err := afs.LookupEncoding(first(c.Encoding, c.config.Encoding))
	if err != nil {
		return nil, err
	}
	if enc != nil {
		opts = append(opts, afs.WithNameEncoding(enc))
	}

	if tz := first(c.Timezone, c.config.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone: %s", err)
		}
		opts = append(opts, afs.WithLocation(loc))
	}
	return opts, nil
}

func newLogger(level, format string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("cannot parse log level: %s", err.Error())
	}

	logger := logrus.New()
	logger.SetOutput(logOutput)
	logger.SetLevel(lvl)
	switch format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return logger, nil
}

// first returns the first non-empty value.
func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
