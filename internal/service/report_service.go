package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"reportwiz/internal/config"
	"reportwiz/internal/dbclient"
	"reportwiz/internal/dialect"
	"reportwiz/internal/domain"
	"reportwiz/internal/query"
	"reportwiz/internal/secret"
	"reportwiz/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Report Service: profiles, catalogs and paged fetches
// ─────────────────────────────────────────────────────────────

// ProfileInput is the service-layer DTO for creating/updating profiles.
// Password is plaintext here and is encrypted before it is stored. An empty
// password on update keeps the stored one.
type ProfileInput struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Vendor   string `json:"vendor"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

// ReportService is the produced interface of the engine: it owns the live
// catalogs, one per connected profile, and runs fetches through them.
type ReportService struct {
	cfg      config.Config
	profiles domain.ProfileStore
	fetchLog domain.FetchLogStore
	cipher   *secret.Cipher
	executor *PagedExecutor
	emitter  EventEmitter

	mu       sync.Mutex
	catalogs map[string]*dbclient.Catalog

	tmplMu    sync.RWMutex
	templates []domain.ProfileTemplate

	// connecting prevents two Connect/Disconnect calls racing on one profile.
	connecting runningJobsGuard
	fetches    runningJobsGuard
}

// NewReportService creates a ReportService. fetchLog and emitter may be nil.
func NewReportService(
	cfg config.Config,
	profiles domain.ProfileStore,
	fetchLog domain.FetchLogStore,
	cipher *secret.Cipher,
	emitter EventEmitter,
) *ReportService {
	s := &ReportService{
		cfg:      cfg,
		profiles: profiles,
		fetchLog: fetchLog,
		cipher:   cipher,
		executor: NewPagedExecutor(cfg.Thresholds),
		emitter:  emitter,
		catalogs: make(map[string]*dbclient.Catalog),
	}
	if err := s.ReloadTemplates(); err != nil {
		log.Printf("[TEMPLATES] %v; using defaults", err)
		s.templates = storage.DefaultTemplates()
	}
	return s
}

// ── Profile CRUD ───────────────────────────────────────────

func (s *ReportService) ListProfiles() ([]domain.ConnectionProfile, error) {
	return s.profiles.LoadProfiles()
}

func (s *ReportService) GetProfile(id string) (*domain.ConnectionProfile, error) {
	return s.profiles.GetProfile(id)
}

// SaveProfile creates a profile when input.ID is empty and updates it
// otherwise. An updated profile that was connected is disconnected so the
// next call reconnects with the new settings.
func (s *ReportService) SaveProfile(input ProfileInput) (*domain.ConnectionProfile, error) {
	p := &domain.ConnectionProfile{}
	if input.ID != "" {
		existing, err := s.profiles.GetProfile(input.ID)
		if err != nil {
			return nil, err
		}
		p = existing
	}
	s.applyInput(p, input)
	if !p.IsValid() {
		return nil, domain.NewError(domain.ErrInvalidProfile,
			fmt.Sprintf("profile %q is incomplete or has an unknown vendor", p.Name), nil)
	}
	if input.Password != "" {
		token, err := s.cipher.Encrypt(input.Password)
		if err != nil {
			return nil, fmt.Errorf("encrypt password: %w", err)
		}
		p.PasswordToken = token
	}

	if input.ID == "" {
		if err := s.profiles.CreateProfile(p); err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
		return p, nil
	}
	if err := s.profiles.UpdateProfile(p); err != nil {
		return nil, err
	}
	s.dropCatalog(p.ID)
	return p, nil
}

// SaveProfiles replaces the whole ordered list. Any password token that is
// still plaintext is encrypted on the way in.
func (s *ReportService) SaveProfiles(list []domain.ConnectionProfile) error {
	for i := range list {
		token, err := s.cipher.Encrypt(list[i].PasswordToken)
		if err != nil {
			return fmt.Errorf("encrypt password for %s: %w", list[i].Name, err)
		}
		list[i].PasswordToken = token
	}
	if err := s.profiles.SaveProfiles(list); err != nil {
		return err
	}
	s.closeAll()
	return nil
}

func (s *ReportService) DeleteProfile(id string) error {
	s.dropCatalog(id)
	if s.fetchLog != nil {
		if err := s.fetchLog.DeleteFetchesByProfile(id); err != nil {
			log.Printf("[FETCH] clear log for %s: %v", id, err)
		}
	}
	return s.profiles.DeleteProfile(id)
}

func (s *ReportService) applyInput(p *domain.ConnectionProfile, in ProfileInput) {
	p.Name = in.Name
	p.SetVendor(dialect.Resolve(in.Vendor).Vendor)
	p.Host = in.Host
	if in.Port > 0 {
		p.Port = in.Port
	} else if p.Port == 0 {
		p.Port = s.cfg.DefaultPort(p.Vendor)
	}
	p.Database = in.Database
	p.Username = in.Username
}

// ── Templates ──────────────────────────────────────────────

func (s *ReportService) Templates() []domain.ProfileTemplate {
	s.tmplMu.RLock()
	defer s.tmplMu.RUnlock()
	out := make([]domain.ProfileTemplate, len(s.templates))
	copy(out, s.templates)
	return out
}

// ReloadTemplates re-reads the templates file. The previous list is kept on
// error.
func (s *ReportService) ReloadTemplates() error {
	list, err := storage.LoadTemplates(s.cfg.TemplatesFile)
	if err != nil {
		return err
	}
	s.tmplMu.Lock()
	s.templates = list
	s.tmplMu.Unlock()
	return nil
}

// ProfileFromTemplate returns an unsaved profile prefilled from the named
// template.
func (s *ReportService) ProfileFromTemplate(name string) (*domain.ConnectionProfile, error) {
	for _, t := range s.Templates() {
		if t.Name == name {
			return t.Profile(), nil
		}
	}
	return nil, fmt.Errorf("template %q not found", name)
}

// ── Connections ────────────────────────────────────────────

// Connect opens (or reopens) the catalog for a stored profile.
func (s *ReportService) Connect(ctx context.Context, id string) error {
	if !s.connecting.TryLock(id) {
		return fmt.Errorf("profile %s is already connecting", id)
	}
	defer s.connecting.Unlock(id)

	p, err := s.profiles.GetProfile(id)
	if err != nil {
		return err
	}
	password, err := s.password(p)
	if err != nil {
		return domain.NewError(domain.ErrConnection, "cannot decrypt stored password", err)
	}

	cat := dbclient.NewCatalog(*p, s.cfg.Pool)
	if err := cat.Connect(ctx, password); err != nil {
		return err
	}

	s.mu.Lock()
	old := s.catalogs[id]
	s.catalogs[id] = cat
	s.mu.Unlock()
	if old != nil {
		_ = old.Disconnect()
	}

	if err := s.profiles.MarkConnected(id, time.Now()); err != nil {
		log.Printf("[CATALOG] mark connected %s: %v", id, err)
	}
	s.emit(ctx, "catalog:connected", id)
	return nil
}

func (s *ReportService) Disconnect(id string) error {
	if !s.connecting.TryLock(id) {
		return fmt.Errorf("profile %s is connecting", id)
	}
	defer s.connecting.Unlock(id)

	s.dropCatalog(id)
	s.emit(context.Background(), "catalog:disconnected", id)
	return nil
}

func (s *ReportService) IsConnected(id string) bool {
	s.mu.Lock()
	cat := s.catalogs[id]
	s.mu.Unlock()
	return cat != nil && cat.IsConnected()
}

// TestProfile checks that input can connect without keeping the pool. An
// empty password on an existing profile uses the stored one.
func (s *ReportService) TestProfile(ctx context.Context, input ProfileInput) error {
	p := &domain.ConnectionProfile{}
	password := input.Password
	if input.ID != "" {
		existing, err := s.profiles.GetProfile(input.ID)
		if err != nil {
			return err
		}
		p = existing
		if password == "" {
			if password, err = s.password(existing); err != nil {
				return domain.NewError(domain.ErrConnection, "cannot decrypt stored password", err)
			}
		}
	}
	s.applyInput(p, input)
	return dbclient.TestConnection(ctx, p, password, s.cfg.Pool)
}

// password decrypts the stored token. A legacy plaintext value is used as is.
func (s *ReportService) password(p *domain.ConnectionProfile) (string, error) {
	plain, err := s.cipher.Decrypt(p.PasswordToken)
	if errors.Is(err, secret.ErrNotEncrypted) {
		log.Printf("[SECRET] profile %s holds an unencrypted password", p.Name)
		return p.PasswordToken, nil
	}
	return plain, err
}

func (s *ReportService) catalog(id string) (*dbclient.Catalog, error) {
	s.mu.Lock()
	cat := s.catalogs[id]
	s.mu.Unlock()
	if cat == nil || !cat.IsConnected() {
		return nil, domain.NewError(domain.ErrNotConnected, fmt.Sprintf("profile %s is not connected", id), nil)
	}
	return cat, nil
}

// connected returns a snapshot of the live catalogs.
func (s *ReportService) connected() map[string]*dbclient.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*dbclient.Catalog, len(s.catalogs))
	for id, c := range s.catalogs {
		out[id] = c
	}
	return out
}

func (s *ReportService) dropCatalog(id string) {
	s.mu.Lock()
	cat := s.catalogs[id]
	delete(s.catalogs, id)
	s.mu.Unlock()
	if cat != nil {
		_ = cat.Disconnect()
	}
}

func (s *ReportService) closeAll() {
	s.mu.Lock()
	cats := s.catalogs
	s.catalogs = make(map[string]*dbclient.Catalog)
	s.mu.Unlock()
	for _, c := range cats {
		_ = c.Disconnect()
	}
}

// ── Introspection ──────────────────────────────────────────

func (s *ReportService) ListTables(ctx context.Context, id string) ([]string, error) {
	cat, err := s.catalog(id)
	if err != nil {
		return []string{}, err
	}
	return cat.ListTables(ctx)
}

func (s *ReportService) ListColumns(ctx context.Context, id, table string) ([]domain.ColumnDescriptor, error) {
	cat, err := s.catalog(id)
	if err != nil {
		return []domain.ColumnDescriptor{}, err
	}
	return cat.ListColumns(ctx, table)
}

func (s *ReportService) RecordCount(ctx context.Context, id, table string) (int64, error) {
	cat, err := s.catalog(id)
	if err != nil {
		return 0, err
	}
	return cat.RecordCount(ctx, table)
}

// SampleRows returns up to n rows of table without paging or counting.
func (s *ReportService) SampleRows(ctx context.Context, id, table string, n int) ([]string, []map[string]any, error) {
	cat, err := s.catalog(id)
	if err != nil {
		return nil, nil, err
	}
	if n <= 0 || n > s.cfg.Thresholds.PageSize {
		n = s.cfg.Thresholds.PageSize
	}
	return cat.Sample(ctx, table, n)
}

// ── Query building ─────────────────────────────────────────

// BuildQuery compiles d in the dialect of the profile's vendor. The profile
// does not need to be connected.
func (s *ReportService) BuildQuery(id string, d query.Descriptor) (string, error) {
	if d.Table == "" {
		return "", domain.NewError(domain.ErrQueryCompile, "no table to select from", nil)
	}
	p, err := s.profiles.GetProfile(id)
	if err != nil {
		return "", err
	}
	dp := p.Dialect()
	if !dp.IsValid() {
		return "", domain.NewError(domain.ErrInvalidProfile, fmt.Sprintf("unknown vendor %q", p.Vendor), nil)
	}
	return query.Build(d, dp), nil
}

// BuildCountQuery is vendor independent.
func (s *ReportService) BuildCountQuery(d query.Descriptor) string {
	return query.BuildCount(d)
}

// ── Fetch ──────────────────────────────────────────────────

// FetchPage runs one paged fetch against a connected profile. It always
// returns a result; failures are reported in it, never as a Go error.
func (s *ReportService) FetchPage(ctx context.Context, id string, req domain.FetchRequest) domain.PageResult {
	// Fetches on one profile may overlap; each gets its own job key.
	job := "fetch:" + id + ":" + uuid.New().String()
	if !s.fetches.TryLock(job) {
		return failedFetch(domain.NewError(domain.ErrExecution, "report service is closing", nil))
	}
	defer s.fetches.Unlock(job)

	cat, err := s.catalog(id)
	if err != nil {
		res := failedFetch(err)
		s.record(id, req, res)
		return res
	}
	res := s.executor.Fetch(ctx, cat, req)

	s.record(id, req, res)
	return res
}

func failedFetch(err error) domain.PageResult {
	return domain.PageResult{
		RequestID:   uuid.New().String(),
		State:       domain.FetchFailed,
		Message:     err.Error(),
		ErrorKind:   domain.KindOf(err),
		ColumnNames: []string{},
		Rows:        []map[string]any{},
	}
}

func (s *ReportService) RecentFetches(id string, limit int) ([]domain.FetchRecord, error) {
	if s.fetchLog == nil {
		return []domain.FetchRecord{}, nil
	}
	return s.fetchLog.ListFetches(id, limit)
}

func (s *ReportService) record(id string, req domain.FetchRequest, res domain.PageResult) {
	if s.fetchLog == nil {
		return
	}
	rec := &domain.FetchRecord{
		ID:            res.RequestID,
		ProfileID:     id,
		TableName:     req.Table,
		SQL:           res.SQL,
		State:         res.State,
		TotalMatching: res.TotalMatching,
		RowsReturned:  res.RowsReturned,
		DurationMs:    res.DurationMs,
		ExecutedAt:    time.Now(),
	}
	if !res.Success {
		rec.Error = res.Message
	}
	if err := s.fetchLog.AppendFetch(rec); err != nil {
		log.Printf("[FETCH] record fetch for %s: %v", id, err)
	}
}

// ── Lifecycle ──────────────────────────────────────────────

func (s *ReportService) emit(ctx context.Context, event string, data any) {
	if s.emitter != nil {
		s.emitter.Emit(ctx, event, data)
	}
}

// Close stops accepting fetches, waits for the in-flight ones (bounded by
// ctx) and releases every catalog.
func (s *ReportService) Close(ctx context.Context) {
	s.fetches.WaitAll(ctx)
	s.closeAll()
}
