package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportwiz/internal/config"
	"reportwiz/internal/dbclient"
	"reportwiz/internal/dialect"
	"reportwiz/internal/domain"
)

func TestHealthMonitor_EmitsUnhealthy(t *testing.T) {
	cfg := config.Default()
	cfg.TemplatesFile = filepath.Join(t.TempDir(), "none.json")
	svc := &ReportService{cfg: cfg, catalogs: make(map[string]*dbclient.Catalog)}

	// A catalog that never connected fails its validation round-trip.
	dead := dbclient.NewCatalog(domain.ConnectionProfile{
		ID: "p1", Name: "erp", Vendor: dialect.VendorSQLite, Database: "unused.db",
	}, cfg.Pool)
	svc.catalogs["p1"] = dead

	emitter := &MockEmitter{}
	mon := NewHealthMonitor(svc, emitter, "@every 1h")

	assert.Equal(t, []string{"p1"}, mon.CheckNow(context.Background()))
	events := emitter.Named("catalog:unhealthy")
	require.Len(t, events, 1)
	assert.Equal(t, UnhealthyEvent{ProfileID: "p1", Name: "erp"}, events[0].Data)
}

func TestTemplateWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "database_templates.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"templates":[{"name":"A","type":"mysql","host":"a"}]}`), 0o644))

	cfg := config.Default()
	cfg.TemplatesFile = path
	emitter := &MockEmitter{}
	svc := NewReportService(cfg, nil, nil, nil, emitter)
	require.Len(t, svc.Templates(), 1)

	w := NewTemplateWatcher(svc, emitter, path)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	body := `{"templates":[{"name":"A","type":"mysql","host":"a"},{"name":"B","type":"oracle","host":"b"}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	require.Eventually(t, func() bool { return len(svc.Templates()) == 2 }, 3*time.Second, 50*time.Millisecond)
	require.Eventually(t, func() bool { return len(emitter.Named("templates:changed")) > 0 }, 3*time.Second, 50*time.Millisecond)

	// A broken file keeps the previous list.
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	time.Sleep(2 * templateDebounce)
	assert.Len(t, svc.Templates(), 2)
}
