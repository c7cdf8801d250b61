// Package storetest provides an in-memory transactional store for service tests.
// Row locks are real mutexes held until Commit or Rollback, so concurrent tests
// observe the same blocking behaviour as SELECT ... FOR UPDATE.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/garage/internal/conversion"
	"github.com/MrJamesThe3rd/garage/internal/database"
	"github.com/MrJamesThe3rd/garage/internal/estimate"
	"github.com/MrJamesThe3rd/garage/internal/history"
	"github.com/MrJamesThe3rd/garage/internal/job"
	"github.com/MrJamesThe3rd/garage/internal/reminder"
	"github.com/MrJamesThe3rd/garage/internal/sequence"
)

var ErrTxDone = errors.New("storetest: transaction already committed or rolled back")

type party struct {
	ownerID uuid.UUID
	active  bool
}

type counterKey struct {
	site uuid.UUID
	kind sequence.Kind
}

type Memory struct {
	mu   sync.Mutex
	caps database.Capabilities

	customers map[uuid.UUID]bool
	vehicles  map[uuid.UUID]party
	estimates map[uuid.UUID]estimate.Estimate
	estLines  map[uuid.UUID][]estimate.LineItem
	jobs      map[uuid.UUID]job.Job
	jobLines  map[uuid.UUID][]job.LineItem
	assignees map[uuid.UUID][]uuid.UUID
	reminders map[uuid.UUID]reminder.Reminder
	counters  map[counterKey]int64
	history   []history.Entry

	locks    map[string]*sync.Mutex
	failures map[string]error
}

func NewMemory(caps database.Capabilities) *Memory {
	return &Memory{
		caps:      caps,
		customers: map[uuid.UUID]bool{},
		vehicles:  map[uuid.UUID]party{},
		estimates: map[uuid.UUID]estimate.Estimate{},
		estLines:  map[uuid.UUID][]estimate.LineItem{},
		jobs:      map[uuid.UUID]job.Job{},
		jobLines:  map[uuid.UUID][]job.LineItem{},
		assignees: map[uuid.UUID][]uuid.UUID{},
		reminders: map[uuid.UUID]reminder.Reminder{},
		counters:  map[counterKey]int64{},
		locks:     map[string]*sync.Mutex{},
		failures:  map[string]error{},
	}
}

// FailOn makes every call to the named Tx method return err.
func (m *Memory) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures[method] = err
}

func (m *Memory) AddCustomer(id uuid.UUID, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.customers[id] = active
}

func (m *Memory) AddVehicle(id, ownerID uuid.UUID, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.vehicles[id] = party{ownerID: ownerID, active: active}
}

// SeedEstimate stores e and its lines as-is, assigning ids where missing.
func (m *Memory) SeedEstimate(e estimate.Estimate, lines []estimate.LineItem) estimate.Estimate {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	for i := range lines {
		if lines[i].ID == uuid.Nil {
			lines[i].ID = uuid.New()
		}

		lines[i].EstimateID = e.ID
	}

	m.estimates[e.ID] = e
	m.estLines[e.ID] = slices.Clone(lines)

	return e
}

func (m *Memory) SeedJob(j job.Job) job.Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}

	m.jobs[j.ID] = j

	return j
}

func (m *Memory) SeedReminder(r reminder.Reminder) reminder.Reminder {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}

	m.reminders[r.ID] = r

	return r
}

func (m *Memory) Estimate(id uuid.UUID) (estimate.Estimate, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.estimates[id]

	return e, ok
}

func (m *Memory) Jobs() []job.Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]job.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}

	sort.Slice(out, func(a, b int) bool { return out[a].Number < out[b].Number })

	return out
}

func (m *Memory) Job(id uuid.UUID) (job.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]

	return j, ok
}

func (m *Memory) StoredJobLines(jobID uuid.UUID) []job.LineItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.jobLines[jobID])
}

func (m *Memory) Assignees(jobID uuid.UUID) []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.assignees[jobID])
}

func (m *Memory) StoredReminder(id uuid.UUID) reminder.Reminder {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.reminders[id]
}

// History returns the entries recorded for one entity in insertion order.
func (m *Memory) History(kind history.EntityKind, id uuid.UUID) []history.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []history.Entry

	for _, e := range m.history {
		if e.EntityKind == kind && e.EntityID == id {
			out = append(out, e)
		}
	}

	return out
}

// Estimates adapts the store to estimate.Repository.
func (m *Memory) Estimates() estimate.Repository {
	return estimateRepo{m}
}

// Conversions adapts the store to conversion.Repository.
func (m *Memory) Conversions() conversion.Repository {
	return conversionRepo{m}
}

type estimateRepo struct{ m *Memory }

func (r estimateRepo) GetEstimate(_ context.Context, siteID, id uuid.UUID) (*estimate.Estimate, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	e, ok := r.m.estimates[id]
	if !ok || e.SiteID != siteID || e.DeletedAt != nil {
		return nil, estimate.ErrNotFound
	}

	return &e, nil
}

func (r estimateRepo) ListEstimates(_ context.Context, filter estimate.ListFilter) ([]*estimate.Estimate, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []*estimate.Estimate

	for _, e := range r.m.estimates {
		if e.SiteID != filter.SiteID || e.DeletedAt != nil {
			continue
		}

		if filter.Status != nil && e.Status != *filter.Status {
			continue
		}

		if filter.CustomerID != nil && e.CustomerID != *filter.CustomerID {
			continue
		}

		if filter.VehicleID != nil && e.VehicleID != *filter.VehicleID {
			continue
		}

		out = append(out, &e)
	}

	sort.Slice(out, func(a, b int) bool { return out[a].Number < out[b].Number })

	return out, nil
}

func (r estimateRepo) ListLines(_ context.Context, estimateID uuid.UUID) ([]estimate.LineItem, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	return slices.Clone(r.m.estLines[estimateID]), nil
}

func (r estimateRepo) Begin(context.Context) (estimate.Tx, error) {
	return r.m.begin(), nil
}

type conversionRepo struct{ m *Memory }

func (r conversionRepo) Begin(context.Context) (conversion.Tx, error) {
	return r.m.begin(), nil
}

// Tx is a transaction against Memory. Writes apply immediately and are undone on Rollback.
type Tx struct {
	m    *Memory
	held []string
	undo []func()
	done bool
}

var (
	_ estimate.Tx   = (*Tx)(nil)
	_ conversion.Tx = (*Tx)(nil)
)

func (m *Memory) begin() *Tx {
	return &Tx{m: m}
}

func (t *Tx) lock(key string) {
	if slices.Contains(t.held, key) {
		return
	}

	t.m.mu.Lock()

	l, ok := t.m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		t.m.locks[key] = l
	}

	t.m.mu.Unlock()

	l.Lock()

	t.held = append(t.held, key)
}

func (t *Tx) release() {
	t.m.mu.Lock()
	locks := make([]*sync.Mutex, len(t.held))

	for i, k := range t.held {
		locks[i] = t.m.locks[k]
	}

	t.m.mu.Unlock()

	for _, l := range locks {
		l.Unlock()
	}

	t.held = nil
}

// write runs fn under the store mutex after checking for an injected failure.
func (t *Tx) write(method string, fn func() (undo func())) error {
	if t.done {
		return ErrTxDone
	}

	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	if err := t.m.failures[method]; err != nil {
		return err
	}

	if undo := fn(); undo != nil {
		t.undo = append(t.undo, undo)
	}

	return nil
}

func (t *Tx) read(method string, fn func()) error {
	if t.done {
		return ErrTxDone
	}

	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	if err := t.m.failures[method]; err != nil {
		return err
	}

	fn()

	return nil
}

func (t *Tx) Commit() error {
	if t.done {
		return ErrTxDone
	}

	t.m.mu.Lock()
	err := t.m.failures["Commit"]
	t.m.mu.Unlock()

	if err != nil {
		return err
	}

	t.done = true
	t.undo = nil
	t.release()

	return nil
}

func (t *Tx) Rollback() error {
	if t.done {
		return ErrTxDone
	}

	t.done = true

	t.m.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.m.mu.Unlock()

	t.undo = nil
	t.release()

	return nil
}

func (t *Tx) IncrementCounter(_ context.Context, siteID uuid.UUID, kind sequence.Kind) (int64, error) {
	key := counterKey{site: siteID, kind: kind}
	t.lock(fmt.Sprintf("counter:%s:%s", siteID, kind))

	var next int64

	err := t.write("IncrementCounter", func() func() {
		prev := t.m.counters[key]
		next = prev + 1
		t.m.counters[key] = next

		return func() { t.m.counters[key] = prev }
	})

	return next, err
}

func (t *Tx) AppendHistory(_ context.Context, entry history.Entry) error {
	return t.write("AppendHistory", func() func() {
		entry.ID = uuid.New()
		t.m.history = append(t.m.history, entry)

		return func() {
			t.m.history = slices.DeleteFunc(t.m.history, func(e history.Entry) bool { return e.ID == entry.ID })
		}
	})
}

func (t *Tx) LockEstimate(_ context.Context, siteID, id uuid.UUID) (*estimate.Estimate, error) {
	t.lock("estimate:" + id.String())

	var (
		e     estimate.Estimate
		found bool
	)

	if err := t.read("LockEstimate", func() {
		e, found = t.m.estimates[id]
	}); err != nil {
		return nil, err
	}

	if !found || e.SiteID != siteID {
		return nil, estimate.ErrNotFound
	}

	return &e, nil
}

func (t *Tx) InsertEstimate(_ context.Context, e *estimate.Estimate) error {
	return t.write("InsertEstimate", func() func() {
		e.ID = uuid.New()
		t.m.estimates[e.ID] = *e
		id := e.ID

		return func() { delete(t.m.estimates, id) }
	})
}

func (t *Tx) UpdateEstimate(_ context.Context, e *estimate.Estimate) error {
	var missing bool

	err := t.write("UpdateEstimate", func() func() {
		prev, ok := t.m.estimates[e.ID]
		if !ok {
			missing = true
			return nil
		}

		t.m.estimates[e.ID] = *e

		return func() { t.m.estimates[prev.ID] = prev }
	})
	if err == nil && missing {
		return estimate.ErrNotFound
	}

	return err
}

func (t *Tx) EstimateLines(_ context.Context, estimateID uuid.UUID) ([]estimate.LineItem, error) {
	var lines []estimate.LineItem

	err := t.read("EstimateLines", func() {
		lines = slices.Clone(t.m.estLines[estimateID])
	})

	return lines, err
}

func (t *Tx) InsertLine(_ context.Context, line *estimate.LineItem) error {
	return t.write("InsertLine", func() func() {
		line.ID = uuid.New()
		prev := slices.Clone(t.m.estLines[line.EstimateID])
		t.m.estLines[line.EstimateID] = append(slices.Clone(prev), *line)

		sort.SliceStable(t.m.estLines[line.EstimateID], func(a, b int) bool {
			return t.m.estLines[line.EstimateID][a].Position < t.m.estLines[line.EstimateID][b].Position
		})

		id := line.EstimateID

		return func() { t.m.estLines[id] = prev }
	})
}

func (t *Tx) UpdateLine(_ context.Context, line *estimate.LineItem) error {
	var missing bool

	err := t.write("UpdateLine", func() func() {
		prev := slices.Clone(t.m.estLines[line.EstimateID])

		idx := slices.IndexFunc(prev, func(l estimate.LineItem) bool { return l.ID == line.ID })
		if idx < 0 {
			missing = true
			return nil
		}

		next := slices.Clone(prev)
		next[idx] = *line
		t.m.estLines[line.EstimateID] = next
		id := line.EstimateID

		return func() { t.m.estLines[id] = prev }
	})
	if err == nil && missing {
		return estimate.ErrLineNotFound
	}

	return err
}

func (t *Tx) DeleteLine(_ context.Context, estimateID, lineID uuid.UUID) error {
	var missing bool

	err := t.write("DeleteLine", func() func() {
		prev := slices.Clone(t.m.estLines[estimateID])

		next := slices.DeleteFunc(slices.Clone(prev), func(l estimate.LineItem) bool { return l.ID == lineID })
		if len(next) == len(prev) {
			missing = true
			return nil
		}

		t.m.estLines[estimateID] = next

		return func() { t.m.estLines[estimateID] = prev }
	})
	if err == nil && missing {
		return estimate.ErrLineNotFound
	}

	return err
}

func (t *Tx) InsertJob(_ context.Context, j *job.Job) error {
	return t.write("InsertJob", func() func() {
		for _, existing := range t.m.jobs {
			if existing.SiteID == j.SiteID && existing.Number == j.Number {
				panic(fmt.Sprintf("storetest: duplicate job number %s", j.Number))
			}
		}

		j.ID = uuid.New()

		stored := *j
		if !t.m.caps.JobOrigin {
			stored.OriginEstimateID = nil
		}

		if !t.m.caps.JobClassification {
			stored.ClassificationCode = nil
		}

		if !t.m.caps.InsuranceFields {
			stored.Insurance = nil
		}

		t.m.jobs[j.ID] = stored
		id := j.ID

		return func() { delete(t.m.jobs, id) }
	})
}

func (t *Tx) InsertJobLines(_ context.Context, lines []job.LineItem) error {
	return t.write("InsertJobLines", func() func() {
		if len(lines) == 0 {
			return nil
		}

		jobID := lines[0].JobID
		prev := slices.Clone(t.m.jobLines[jobID])
		next := slices.Clone(prev)

		for i := range lines {
			lines[i].ID = uuid.New()
			next = append(next, lines[i])
		}

		t.m.jobLines[jobID] = next

		return func() { t.m.jobLines[jobID] = prev }
	})
}

func (t *Tx) JobLines(_ context.Context, jobID uuid.UUID) ([]job.LineItem, error) {
	var lines []job.LineItem

	err := t.read("JobLines", func() {
		lines = slices.Clone(t.m.jobLines[jobID])
	})

	return lines, err
}

func (t *Tx) UpdateJobTotal(_ context.Context, jobID uuid.UUID, total decimal.Decimal) error {
	return t.write("UpdateJobTotal", func() func() {
		prev := t.m.jobs[jobID]
		next := prev
		next.Total = total
		t.m.jobs[jobID] = next

		return func() { t.m.jobs[jobID] = prev }
	})
}

func (t *Tx) JobByOrigin(_ context.Context, estimateID uuid.UUID) (*job.Ref, error) {
	var ref *job.Ref

	err := t.read("JobByOrigin", func() {
		if !t.m.caps.JobOrigin {
			return
		}

		for _, j := range t.m.jobs {
			if j.OriginEstimateID != nil && *j.OriginEstimateID == estimateID {
				ref = toRef(j)
				return
			}
		}
	})

	return ref, err
}

func (t *Tx) JobByID(_ context.Context, jobID uuid.UUID) (*job.Ref, error) {
	var ref *job.Ref

	err := t.read("JobByID", func() {
		if j, ok := t.m.jobs[jobID]; ok {
			ref = toRef(j)
		}
	})

	return ref, err
}

func (t *Tx) OpenJobsForVehicle(_ context.Context, vehicleID uuid.UUID) ([]job.Ref, error) {
	var refs []job.Ref

	err := t.read("OpenJobsForVehicle", func() {
		var open []job.Job

		for _, j := range t.m.jobs {
			if j.VehicleID == vehicleID && j.Status.IsActive() {
				open = append(open, j)
			}
		}

		sort.Slice(open, func(a, b int) bool { return open[a].CreatedAt.Before(open[b].CreatedAt) })

		for _, j := range open {
			refs = append(refs, *toRef(j))
		}
	})

	return refs, err
}

func (t *Tx) SetAssignees(_ context.Context, jobID uuid.UUID, userIDs []uuid.UUID) error {
	return t.write("SetAssignees", func() func() {
		if !t.m.caps.Assignees {
			return nil
		}

		prev, had := t.m.assignees[jobID]
		t.m.assignees[jobID] = slices.Clone(userIDs)

		return func() {
			if had {
				t.m.assignees[jobID] = prev
			} else {
				delete(t.m.assignees, jobID)
			}
		}
	})
}

func (t *Tx) Parties(_ context.Context, customerID, vehicleID uuid.UUID) (*conversion.Parties, error) {
	t.lock("vehicle:" + vehicleID.String())

	var p *conversion.Parties

	err := t.read("Parties", func() {
		customerActive, okC := t.m.customers[customerID]
		v, okV := t.m.vehicles[vehicleID]

		if okC && okV {
			p = &conversion.Parties{CustomerActive: customerActive, VehicleActive: v.active, VehicleOwnerID: v.ownerID}
		}
	})

	return p, err
}

func (t *Tx) Reminder(_ context.Context, id uuid.UUID) (*reminder.Reminder, error) {
	t.lock("reminder:" + id.String())

	var r *reminder.Reminder

	err := t.read("Reminder", func() {
		if stored, ok := t.m.reminders[id]; ok {
			r = &stored
		}
	})

	return r, err
}

func (t *Tx) PostponeReminder(_ context.Context, id uuid.UUID, until time.Time) error {
	return t.write("PostponeReminder", func() func() {
		prev := t.m.reminders[id]
		next := prev
		next.Status = reminder.StatusPostponed
		next.DueAt = until
		t.m.reminders[id] = next

		return func() { t.m.reminders[id] = prev }
	})
}

func (t *Tx) ResolveReminder(_ context.Context, id, jobID uuid.UUID) error {
	return t.write("ResolveReminder", func() func() {
		prev := t.m.reminders[id]
		next := prev
		next.Status = reminder.StatusResolved
		next.JobID = &jobID
		t.m.reminders[id] = next

		return func() { t.m.reminders[id] = prev }
	})
}

func toRef(j job.Job) *job.Ref {
	return &job.Ref{ID: j.ID, Number: j.Number, Status: j.Status, OriginEstimateID: j.OriginEstimateID}
}

// GetJob implements job.Repository.
func (m *Memory) GetJob(_ context.Context, siteID, id uuid.UUID) (*job.Job, []job.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok || j.SiteID != siteID {
		return nil, nil, job.ErrNotFound
	}

	return &j, slices.Clone(m.jobLines[id]), nil
}

// List returns the history of one entity, oldest first.
func (m *Memory) List(_ context.Context, kind history.EntityKind, id uuid.UUID) ([]history.Entry, error) {
	return m.History(kind, id), nil
}
