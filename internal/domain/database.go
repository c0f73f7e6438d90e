package domain

import (
	"fmt"
	"strings"
	"time"

	"reportwiz/internal/dialect"
)

// ConnectionProfile describes a target database. The password is held as an
// opaque token produced by the secret cipher, never as plaintext.
type ConnectionProfile struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Vendor        dialect.Vendor `json:"vendor"`
	Host          string         `json:"host"`     // hostname, or unused for sqlite
	Port          int            `json:"port"`     // 0 for sqlite
	Database      string         `json:"database"` // db/service name, or file path for sqlite
	Username      string         `json:"username"`
	PasswordToken string         `json:"passwordToken,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`

	LastConnectedAt *time.Time `json:"lastConnectedAt,omitempty"`
}

// Dialect resolves the vendor profile.
func (p *ConnectionProfile) Dialect() dialect.Profile {
	return dialect.Resolve(string(p.Vendor))
}

// DriverID is the database/sql driver name, empty for unknown vendors.
func (p *ConnectionProfile) DriverID() string {
	return p.Dialect().DriverID
}

// ConnectionURL expands the vendor URL template. It carries no credentials.
func (p *ConnectionProfile) ConnectionURL() string {
	return p.Dialect().ExpandURL(p.Host, p.Port, p.Database)
}

// IsValid holds iff name, vendor, host, database and username are non-blank
// and port > 0. File-based vendors only need a name and a database path.
func (p *ConnectionProfile) IsValid() bool {
	d := p.Dialect()
	if !d.IsValid() || blank(p.Name) || blank(p.Database) {
		return false
	}
	if d.FileBased {
		return true
	}
	return !blank(p.Host) && !blank(p.Username) && p.Port > 0
}

// SetVendor switches the vendor. A port left at the old vendor's default
// (or unset) follows the new vendor's default.
func (p *ConnectionProfile) SetVendor(v dialect.Vendor) {
	old := p.Dialect()
	next := dialect.Resolve(string(v))
	if p.Port == 0 || p.Port == old.DefaultPort {
		p.Port = next.DefaultPort
	}
	p.Vendor = next.Vendor
}

// Copy returns an independent copy with ID and timestamps cleared.
func (p *ConnectionProfile) Copy() *ConnectionProfile {
	c := *p
	c.ID = ""
	c.CreatedAt = time.Time{}
	c.UpdatedAt = time.Time{}
	c.LastConnectedAt = nil
	return &c
}

// String renders "name (vendor://host:port/database)".
func (p *ConnectionProfile) String() string {
	return fmt.Sprintf("%s (%s://%s:%d/%s)", p.Name, p.Vendor, p.Host, p.Port, p.Database)
}

// DisplayString renders "name - user@host:port/database".
func (p *ConnectionProfile) DisplayString() string {
	return fmt.Sprintf("%s - %s@%s:%d/%s", p.Name, p.Username, p.Host, p.Port, p.Database)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ProfileStore persists connection profiles in insertion order.
type ProfileStore interface {
	LoadProfiles() ([]ConnectionProfile, error)
	SaveProfiles(profiles []ConnectionProfile) error
	CreateProfile(p *ConnectionProfile) error
	GetProfile(id string) (*ConnectionProfile, error)
	UpdateProfile(p *ConnectionProfile) error
	DeleteProfile(id string) error
	MarkConnected(id string, at time.Time) error
}

// ProfileTemplate is a named starting point for a new profile.
type ProfileTemplate struct {
	Name     string         `json:"name"`
	Vendor   dialect.Vendor `json:"vendor"`
	Host     string         `json:"host"`
	Port     int            `json:"port"`
	Database string         `json:"database"`
	Username string         `json:"username"`
}

// Profile builds an unsaved profile from the template, filling the vendor's
// default port when none is given.
func (t ProfileTemplate) Profile() *ConnectionProfile {
	p := &ConnectionProfile{
		Name:     t.Name,
		Vendor:   dialect.Resolve(string(t.Vendor)).Vendor,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.Username,
	}
	if p.Port == 0 {
		p.Port = p.Dialect().DefaultPort
	}
	return p
}
