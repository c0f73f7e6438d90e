package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"reportwiz/internal/dialect"
	"reportwiz/internal/domain"
)

// templateFile is the on-disk shape of database_templates.json. "type" is
// accepted as an alias for "vendor".
type templateFile struct {
	Templates []struct {
		Name     string `json:"name"`
		Vendor   string `json:"vendor"`
		Type     string `json:"type"`
		Host     string `json:"host"`
		Port     int    `json:"port"`
		Database string `json:"database"`
		Username string `json:"username"`
	} `json:"templates"`
}

// DefaultTemplates is used when no templates file exists.
func DefaultTemplates() []domain.ProfileTemplate {
	return []domain.ProfileTemplate{
		{Name: "Local MySQL", Vendor: dialect.VendorMySQL, Host: "localhost", Port: 3306, Database: "mysql", Username: "root"},
		{Name: "Local PostgreSQL", Vendor: dialect.VendorPostgreSQL, Host: "localhost", Port: 5432, Database: "postgres", Username: "postgres"},
		{Name: "Local SQL Server", Vendor: dialect.VendorSQLServer, Host: "localhost", Port: 1433, Database: "master", Username: "sa"},
		{Name: "Local Oracle XE", Vendor: dialect.VendorOracle, Host: "localhost", Port: 1521, Database: "XEPDB1", Username: "system"},
	}
}

// LoadTemplates reads connection templates from path. A missing file yields
// the defaults; entries with an unknown vendor are dropped.
func LoadTemplates(path string) ([]domain.ProfileTemplate, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultTemplates(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}

	var f templateFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse templates %s: %w", path, err)
	}

	out := make([]domain.ProfileTemplate, 0, len(f.Templates))
	for _, t := range f.Templates {
		key := t.Vendor
		if key == "" {
			key = t.Type
		}
		d := dialect.Resolve(key)
		if !d.IsValid() || t.Name == "" {
			continue
		}
		port := t.Port
		if port == 0 {
			port = d.DefaultPort
		}
		out = append(out, domain.ProfileTemplate{
			Name:     t.Name,
			Vendor:   d.Vendor,
			Host:     t.Host,
			Port:     port,
			Database: t.Database,
			Username: t.Username,
		})
	}
	return out, nil
}
