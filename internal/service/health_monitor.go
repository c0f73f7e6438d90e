package service

import (
	"context"
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

// ─────────────────────────────────────────────────────────────
// HealthMonitor: periodic validation of connected catalogs
// ─────────────────────────────────────────────────────────────

// UnhealthyEvent is the payload of the "catalog:unhealthy" event.
type UnhealthyEvent struct {
	ProfileID string `json:"profileId"`
	Name      string `json:"name"`
}

// HealthMonitor pings every connected catalog on a cron schedule and emits
// "catalog:unhealthy" for each one that fails its validation query. It
// never disconnects anything; the caller decides.
type HealthMonitor struct {
	svc      *ReportService
	emitter  EventEmitter
	schedule string

	mu        sync.Mutex
	cronSched *cron.Cron
}

func NewHealthMonitor(svc *ReportService, emitter EventEmitter, schedule string) *HealthMonitor {
	return &HealthMonitor{svc: svc, emitter: emitter, schedule: schedule}
}

// Start registers the check. An empty schedule disables monitoring.
func (m *HealthMonitor) Start(ctx context.Context) error {
	if m.schedule == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cronSched != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(m.schedule, func() { m.CheckNow(ctx) }); err != nil {
		return err
	}
	c.Start()
	m.cronSched = c
	log.Printf("[HEALTH] monitoring connected catalogs (%s)", m.schedule)
	return nil
}

// CheckNow validates every connected catalog once and returns the ids of
// the unhealthy ones.
func (m *HealthMonitor) CheckNow(ctx context.Context) []string {
	var unhealthy []string
	for id, cat := range m.svc.connected() {
		if cat.IsHealthy(ctx) {
			continue
		}
		log.Printf("[HEALTH] catalog %s (%s) failed validation", cat.Profile().Name, id)
		unhealthy = append(unhealthy, id)
		if m.emitter != nil {
			m.emitter.Emit(ctx, "catalog:unhealthy", UnhealthyEvent{ProfileID: id, Name: cat.Profile().Name})
		}
	}
	return unhealthy
}

func (m *HealthMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cronSched != nil {
		<-m.cronSched.Stop().Done()
		m.cronSched = nil
	}
}
