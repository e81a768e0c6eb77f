package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds host-specific settings for the update and rollback workflows.
type Config struct {
	// PackageName is the apt package this host manages.
	PackageName string `yaml:"package_name"`
	// ServiceUnit is the systemd unit backing the package.
	ServiceUnit string `yaml:"service_unit"`
	// ArchiveCacheDir is where apt keeps downloaded package archives.
	ArchiveCacheDir string `yaml:"archive_cache_dir"`
	// BackupDir receives copies of cached archives before an upgrade.
	BackupDir string `yaml:"backup_dir"`
	// DownloadURL is the upstream folder holding versioned package archives.
	DownloadURL string `yaml:"download_url"`
	// JournalFile is the append-only run record path.
	JournalFile string `yaml:"journal_file"`
	// ServiceSettleDelay is how long to wait after a start or stop request
	// before trusting the unit state.
	ServiceSettleDelay time.Duration `yaml:"service_settle_delay"`
	// CommandTimeout bounds each external command invocation.
	CommandTimeout time.Duration `yaml:"command_timeout"`
	// EchoToScreen mirrors journal lines to the console logger.
	EchoToScreen *bool `yaml:"echo_to_screen"`
	// Checksums maps a package version to the base64 SHA-512 checksum of its
	// archive. Optional; rollback verifies the download when an entry exists.
	Checksums map[string]string `yaml:"checksums"`
}

const (
	// DefaultConfigFilename is the default filename for orchestrator settings.
	DefaultConfigFilename = "jenkins-updater-settings.yaml"

	// DefaultPackageName is the apt package managed by default.
	DefaultPackageName = "jenkins"

	// DefaultServiceUnit is the systemd unit managed by default.
	DefaultServiceUnit = "jenkins.service"

	// DefaultArchiveCacheDir is apt's archive cache on Debian hosts.
	DefaultArchiveCacheDir = "/var/cache/apt/archives"

	// DefaultBackupDir receives archive copies before an upgrade.
	DefaultBackupDir = "backups"

	// DefaultDownloadURL hosts the stable Debian archives for the package.
	DefaultDownloadURL = "https://pkg.jenkins.io/debian-stable/binary"

	// DefaultJournalFilename is the default run record path.
	DefaultJournalFilename = "jenkins-updater.log"

	// DefaultServiceSettleDelay is the wait after service start/stop requests.
	DefaultServiceSettleDelay = 5 * time.Second

	// DefaultCommandTimeout bounds each package manager invocation.
	DefaultCommandTimeout = 2 * time.Minute

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// Load reads configuration from the provided path and validates essential fields.
// A missing file yields the defaults rather than an error, so a bare host
// works without any settings file.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	var cfg Config

	contents, err := os.ReadFile(filepath.Clean(path))
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("read settings: %w", err)
	default:
		if err = yaml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("configuration is not set")
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the provided settings for required
// fields and formatting.
func Validate(cfg *Config) error {
	if cfg.PackageName == "" {
		cfg.PackageName = DefaultPackageName
	}

	if cfg.ServiceUnit == "" {
		cfg.ServiceUnit = DefaultServiceUnit
	}

	if cfg.ArchiveCacheDir == "" {
		cfg.ArchiveCacheDir = DefaultArchiveCacheDir
	}

	if cfg.BackupDir == "" {
		cfg.BackupDir = DefaultBackupDir
	}

	if cfg.DownloadURL == "" {
		cfg.DownloadURL = DefaultDownloadURL
	}

	if _, err := url.ParseRequestURI(cfg.DownloadURL); err != nil {
		return fmt.Errorf("invalid download URL: %w", err)
	}

	if cfg.JournalFile == "" {
		cfg.JournalFile = DefaultJournalFilename
	}

	if cfg.ServiceSettleDelay <= 0 {
		cfg.ServiceSettleDelay = DefaultServiceSettleDelay
	}

	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}

	if cfg.EchoToScreen == nil {
		echo := true
		cfg.EchoToScreen = &echo
	}

	return nil
}

// Echo reports whether journal lines should be mirrored to the console.
func (c *Config) Echo() bool {
	return c.EchoToScreen == nil || *c.EchoToScreen
}
