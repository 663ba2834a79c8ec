/*
Package config resolves command-line settings for the payments binary.

PRECEDENCE (highest first):
  1. Command-line flags
  2. Process environment
  3. Variables from the .env file (missing file is fine)
  4. Built-in defaults

FLAGS / ENVIRONMENT:
  -log-level     PAYMENTS_LOG_LEVEL     debug|info|warn|error (default: info)
  -log-format    PAYMENTS_LOG_FORMAT    json|console (default: json)
  -strict        PAYMENTS_STRICT        abort on the first rejected operation
  -sqlite        PAYMENTS_SQLITE_PATH   also export the snapshot to this SQLite file
  -metrics-file  PAYMENTS_METRICS_FILE  write Prometheus textfile metrics here
  -env-file      PAYMENTS_ENV_FILE      dotenv file to read (default: .env)

POSITIONAL:
  <transactions.csv>  exactly one input file

EXAMPLES:
  payments transactions.csv > accounts.csv
  payments -strict -sqlite=./out/run.db transactions.csv
  PAYMENTS_LOG_LEVEL=debug payments transactions.csv
*/
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"strconv"

	"github.com/joho/godotenv"
)

// ErrUsage marks errors caused by bad invocation.
var ErrUsage = errors.New("usage")

// Config is the resolved configuration.
type Config struct {
	InputPath   string
	LogLevel    string
	LogFormat   string
	Strict      bool
	SQLitePath  string
	MetricsFile string
	EnvFile     string
}

const defaultEnvFile = ".env"

type setting struct {
	flag   string
	env    string
	def    string
	target *string
}

// Load parses args (without the program name) and fills unset flags from
// getenv and the dotenv file. flag.ErrHelp is returned as-is for -h.
func Load(args []string, getenv func(string) string, usage io.Writer) (Config, error) {
	var cfg Config

	flags := flag.NewFlagSet("payments", flag.ContinueOnError)
	flags.SetOutput(usage)
	flags.Usage = func() {
		fmt.Fprintln(usage, "usage: payments [flags] <transactions.csv>")
		flags.PrintDefaults()
	}

	settings := []setting{
		{"log-level", "PAYMENTS_LOG_LEVEL", "info", &cfg.LogLevel},
		{"log-format", "PAYMENTS_LOG_FORMAT", "json", &cfg.LogFormat},
		{"sqlite", "PAYMENTS_SQLITE_PATH", "", &cfg.SQLitePath},
		{"metrics-file", "PAYMENTS_METRICS_FILE", "", &cfg.MetricsFile},
		{"env-file", "PAYMENTS_ENV_FILE", defaultEnvFile, &cfg.EnvFile},
	}
	help := map[string]string{
		"log-level":    "log level: debug, info, warn, error",
		"log-format":   "log format: json or console",
		"sqlite":       "export the final snapshot to this SQLite file",
		"metrics-file": "write Prometheus textfile metrics to this path",
		"env-file":     "dotenv file with PAYMENTS_* defaults",
	}
	for _, s := range settings {
		flags.StringVar(s.target, s.flag, "", help[s.flag]+" (env "+s.env+")")
	}
	flags.BoolVar(&cfg.Strict, "strict", false, "abort on the first rejected operation (env PAYMENTS_STRICT)")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Config{}, err
		}
		return Config{}, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	if flags.NArg() != 1 {
		flags.Usage()
		return Config{}, fmt.Errorf("%w: expected exactly one input file, got %d arguments", ErrUsage, flags.NArg())
	}
	cfg.InputPath = flags.Arg(0)

	set := map[string]bool{}
	flags.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// The env file location itself cannot come from the env file.
	if !set["env-file"] {
		cfg.EnvFile = firstNonEmpty(getenv("PAYMENTS_ENV_FILE"), defaultEnvFile)
	}
	dotenv, err := readDotenv(cfg.EnvFile, cfg.EnvFile != defaultEnvFile)
	if err != nil {
		return Config{}, err
	}

	for _, s := range settings {
		if set[s.flag] || s.flag == "env-file" {
			continue
		}
		*s.target = firstNonEmpty(getenv(s.env), dotenv[s.env], s.def)
	}

	if !set["strict"] {
		if raw := firstNonEmpty(getenv("PAYMENTS_STRICT"), dotenv["PAYMENTS_STRICT"]); raw != "" {
			cfg.Strict, err = strconv.ParseBool(raw)
			if err != nil {
				return Config{}, fmt.Errorf("%w: PAYMENTS_STRICT %q is not a boolean", ErrUsage, raw)
			}
		}
	}

	return cfg, nil
}

// readDotenv reads path. A missing file is an error only when the caller
// asked for that file explicitly.
func readDotenv(path string, required bool) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err == nil {
		return vars, nil
	}
	if errors.Is(err, fs.ErrNotExist) && !required {
		return map[string]string{}, nil
	}
	return nil, fmt.Errorf("%w: read env file %s: %v", ErrUsage, path, err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
