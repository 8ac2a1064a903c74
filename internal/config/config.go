package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPageSize     = 100
	defaultSyncInterval = time.Minute
	defaultStatePath    = "manifestdnssync.db"
	defaultMetricsAddr  = ":9090"
	defaultLogLevel     = "info"
	defaultLogEnv       = "prod"
)

// DuplicatePolicy decides what to do when the provider returns more than one
// live record for the same (type, name) key.
type DuplicatePolicy string

const (
	// DuplicateFirst keeps the first record in fetch order as the canonical
	// match and logs a warning for every extra.
	DuplicateFirst DuplicatePolicy = "first"
	// DuplicateFail aborts the zone before any mutation.
	DuplicateFail DuplicatePolicy = "fail"
)

type Config struct {
	Token        string        `yaml:"token"`
	Zones        []ZonePair    `yaml:"zones"`
	SyncInterval time.Duration `yaml:"syncInterval"`
	StatePath    string        `yaml:"statePath"`
	MetricsAddr  string        `yaml:"metricsAddr"`
	Log          Log           `yaml:"log"`
	Provider     Provider      `yaml:"provider"`
	Reconcile    Reconcile     `yaml:"reconcile"`
}

// ZonePair maps one manifest directory onto one provider zone.
type ZonePair struct {
	Dir    string `yaml:"dir"`
	ZoneID string `yaml:"zoneId"`
}

// Label is the human-readable zone name used in logs and reports.
func (p ZonePair) Label() string {
	return filepath.Base(filepath.Clean(p.Dir))
}

type Provider struct {
	PageSize int `yaml:"pageSize"`
}

type Log struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

type Reconcile struct {
	DryRun          bool            `yaml:"dryRun"`
	SkipNames       []string        `yaml:"skipNames"`
	DuplicatePolicy DuplicatePolicy `yaml:"duplicatePolicy"`
	Concurrency     int             `yaml:"concurrency"`
}

func Load(path string) (*Config, error) {
	configFile := true
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Default().Warn("fail find config file, proceeding", "path", path)
		configFile = false
	}

	var cfg Config
	if configFile {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, err
		}
		if err := f.Close(); err != nil {
			slog.Default().Warn("fail close config file", "path", path, "error", err)
		}
	}

	if cfg.SyncInterval == 0 {
		cfg.SyncInterval = defaultSyncInterval
	}
	if cfg.StatePath == "" {
		cfg.StatePath = defaultStatePath
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = defaultMetricsAddr
	}
	if cfg.Provider.PageSize == 0 {
		cfg.Provider.PageSize = defaultPageSize
	}
	if cfg.Reconcile.DuplicatePolicy == "" {
		cfg.Reconcile.DuplicatePolicy = DuplicateFirst
	}
	if cfg.Reconcile.Concurrency == 0 {
		cfg.Reconcile.Concurrency = 1
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	if cfg.Log.Env == "" {
		cfg.Log.Env = defaultLogEnv
	}

	// Override from environment if set
	if token := os.Getenv("MANIFEST_DNS_SYNC_TOKEN"); token != "" {
		cfg.Token = token
	} else if token := os.Getenv("CLOUDFLARE_API_TOKEN"); token != "" {
		cfg.Token = token
	}
	if syncInterval := os.Getenv("MANIFEST_DNS_SYNC_INTERVAL"); syncInterval != "" {
		if interval, err := time.ParseDuration(syncInterval); err == nil {
			cfg.SyncInterval = interval
		} else {
			slog.Default().Warn("fail parse sync interval to duration from string", "interval", syncInterval, "error", err)
		}
	}
	if statePath := os.Getenv("MANIFEST_DNS_SYNC_STATE_PATH"); statePath != "" {
		cfg.StatePath = statePath
	}
	if metricsAddr := os.Getenv("MANIFEST_DNS_SYNC_METRICS_ADDR"); metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if pageSize := os.Getenv("MANIFEST_DNS_SYNC_PAGE_SIZE"); pageSize != "" {
		if size, err := strconv.Atoi(pageSize); err == nil && size > 0 {
			cfg.Provider.PageSize = size
		} else {
			slog.Default().Warn("fail parse page size to int from string", "pageSize", pageSize)
		}
	}
	if dryRun := os.Getenv("MANIFEST_DNS_SYNC_DRYRUN"); dryRun != "" {
		switch strings.ToLower(dryRun) {
		case "true":
			cfg.Reconcile.DryRun = true
		case "false":
			cfg.Reconcile.DryRun = false
		default:
			slog.Default().Warn("fail parse dryrun to bool from string", "dryrun", dryRun)
		}
	}
	if skipNames := os.Getenv("MANIFEST_DNS_SYNC_SKIP_NAMES"); skipNames != "" {
		cfg.Reconcile.SkipNames = strings.Split(skipNames, ",")
	}
	if policy := os.Getenv("MANIFEST_DNS_SYNC_DUPLICATE_POLICY"); policy != "" {
		switch DuplicatePolicy(policy) {
		case DuplicateFirst, DuplicateFail:
			cfg.Reconcile.DuplicatePolicy = DuplicatePolicy(policy)
		default:
			slog.Default().Warn("fail parse duplicate policy from string", "policy", policy)
		}
	}
	if concurrency := os.Getenv("MANIFEST_DNS_SYNC_CONCURRENCY"); concurrency != "" {
		if n, err := strconv.Atoi(concurrency); err == nil && n > 0 {
			cfg.Reconcile.Concurrency = n
		} else {
			slog.Default().Warn("fail parse concurrency to int from string", "concurrency", concurrency)
		}
	}
	if loglevel := os.Getenv("MANIFEST_DNS_SYNC_LOG_LEVEL"); loglevel != "" {
		cfg.Log.Level = loglevel
	}
	if logenv := os.Getenv("MANIFEST_DNS_SYNC_LOG_ENV"); logenv != "" {
		cfg.Log.Env = logenv
	}
	return &cfg, nil
}

// ParseZonePairs parses CLI mappings of the form <dir>=<zoneId>. A malformed
// mapping fails the whole run before any I/O is attempted.
func ParseZonePairs(args []string) ([]ZonePair, error) {
	pairs := make([]ZonePair, 0, len(args))
	for _, arg := range args {
		dir, zoneID, ok := strings.Cut(arg, "=")
		if !ok || dir == "" || zoneID == "" {
			return nil, fmt.Errorf("invalid zone mapping %q, want <dir>=<zoneId>", arg)
		}
		pairs = append(pairs, ZonePair{Dir: dir, ZoneID: zoneID})
	}
	return pairs, nil
}
