// Package settings loads and saves the broker's operator-facing
// configuration: topology source, storage backend, peer endpoints, and
// permission policy.
package settings

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/aggnsa/aggnsa/pkg/auth"
)

// DefaultListenAddr is the default gRPC listen address for cmd/aggnsad.
const DefaultListenAddr = ":9080"

const (
	// DefaultAuditMaxSizeMB is the default maximum audit log size in megabytes.
	DefaultAuditMaxSizeMB = 10

	// DefaultAuditMaxBackups is the default maximum number of rotated audit log files.
	DefaultAuditMaxBackups = 10
)

// Settings holds the broker's startup configuration.
type Settings struct {
	// NSA is this broker's own managing-NSA identity, compared against each
	// network's managing NSA to decide which legs are fulfilled locally.
	NSA string `yaml:"nsa"`

	// ListenAddr is the address cmd/aggnsad's gRPC peer server binds.
	ListenAddr string `yaml:"listen_addr,omitempty"`

	// RedisAddr is the connection store's backing Redis address.
	RedisAddr string `yaml:"redis_addr"`

	// TopologyFile is the path to the YAML/JSON topology description
	// loaded into a topology.Topology at startup.
	TopologyFile string `yaml:"topology_file"`

	// Peers maps a peer NSA identity to the gRPC address of its
	// aggregator, for REMOTE-locality dispatch.
	Peers map[string]string `yaml:"peers,omitempty"`

	// AuditLogPath overrides the default audit log path.
	AuditLogPath string `yaml:"audit_log_path,omitempty"`

	// AuditMaxSizeMB is the max audit log size in MB before rotation.
	AuditMaxSizeMB int `yaml:"audit_max_size_mb,omitempty"`

	// AuditMaxBackups is the max number of rotated audit log files.
	AuditMaxBackups int `yaml:"audit_max_backups,omitempty"`

	// ExecuteByDefault is saved and loaded with the rest of the settings;
	// cmd/aggnsa does not read it, so its write commands always need -x.
	ExecuteByDefault bool `yaml:"execute_by_default,omitempty"`

	// SuperUsers, IdentityGroups, Permissions and NetworkPermissions
	// together form the auth.Policy; see AuthPolicy.
	SuperUsers         []string                       `yaml:"super_users,omitempty"`
	IdentityGroups     map[string][]string            `yaml:"identity_groups,omitempty"`
	Permissions        map[string][]string            `yaml:"permissions,omitempty"`
	NetworkPermissions map[string]map[string][]string `yaml:"network_permissions,omitempty"`
}

// AuthPolicy builds an auth.Policy from the permission fields of Settings.
func (s *Settings) AuthPolicy() *auth.Policy {
	return &auth.Policy{
		SuperUsers:         s.SuperUsers,
		IdentityGroups:     s.IdentityGroups,
		Permissions:        s.Permissions,
		NetworkPermissions: s.NetworkPermissions,
	}
}

// DefaultSettingsPath returns the default path for the config file.
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "aggnsa_config.yaml"
	}
	return filepath.Join(home, ".aggnsa", "config.yaml")
}

// Load reads settings from the default location.
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path.
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, err
	}

	return s, nil
}

// Save writes settings to the default location.
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path.
func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetListenAddr returns the configured listen address with a fallback default.
func (s *Settings) GetListenAddr() string {
	if s.ListenAddr != "" {
		return s.ListenAddr
	}
	return DefaultListenAddr
}

// GetAuditLogPath returns the audit log path with a fallback default.
func (s *Settings) GetAuditLogPath() string {
	if s.AuditLogPath != "" {
		return s.AuditLogPath
	}
	return "/var/log/aggnsa/audit.log"
}

// GetAuditMaxSizeMB returns the audit max size in MB with a default of 10.
func (s *Settings) GetAuditMaxSizeMB() int {
	if s.AuditMaxSizeMB > 0 {
		return s.AuditMaxSizeMB
	}
	return DefaultAuditMaxSizeMB
}

// GetAuditMaxBackups returns the audit max backups with a default of 10.
func (s *Settings) GetAuditMaxBackups() int {
	if s.AuditMaxBackups > 0 {
		return s.AuditMaxBackups
	}
	return DefaultAuditMaxBackups
}

// Clear resets all settings to defaults.
func (s *Settings) Clear() {
	*s = Settings{}
}
