package app_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/neomorfeo/queueiq/internal/app"
	"github.com/neomorfeo/queueiq/internal/domain"
)

// --- Fake clock ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- Table validator (same shape as the FSM adapter, kept local) ---

type tableValidator struct {
	transitions []domain.Transition
}

func (v *tableValidator) Apply(_ context.Context, current domain.Status, event domain.Event) (domain.Status, error) {
	for _, tr := range v.transitions {
		if tr.Event == event && tr.Src == current {
			return tr.Dst, nil
		}
	}
	return "", &domain.TransitionError{Event: event, Current: current}
}

// --- In-memory repositories ---

// memState holds all entities behind one mutex so the mock is safe
// under the dispatcher's concurrent callers.
type memState struct {
	mu        sync.Mutex
	queues    map[string]domain.Queue
	tickets   map[string]domain.Ticket
	sessions  map[string]domain.Session
	resources map[string]domain.Resource
	changes   []domain.StatusChange
	seq       map[string]int64
}

func newMemState() *memState {
	return &memState{
		queues:    make(map[string]domain.Queue),
		tickets:   make(map[string]domain.Ticket),
		sessions:  make(map[string]domain.Session),
		resources: make(map[string]domain.Resource),
		seq:       make(map[string]int64),
	}
}

func key(tenantID, id string) string { return tenantID + "/" + id }

type memQueues struct{ s *memState }

func (m *memQueues) Create(_ context.Context, q domain.Queue) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.queues[key(q.TenantID, q.ID)] = q
	return nil
}

func (m *memQueues) Get(_ context.Context, tenantID, queueID string) (domain.Queue, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	q, ok := m.s.queues[key(tenantID, queueID)]
	if !ok {
		return domain.Queue{}, domain.ErrNotFound
	}
	return q, nil
}

func (m *memQueues) Update(_ context.Context, q domain.Queue) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.queues[key(q.TenantID, q.ID)]; !ok {
		return domain.ErrNotFound
	}
	m.s.queues[key(q.TenantID, q.ID)] = q
	return nil
}

func (m *memQueues) NextNumber(_ context.Context, tenantID, queueID string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.queues[key(tenantID, queueID)]; !ok {
		return 0, domain.ErrNotFound
	}
	m.s.seq[key(tenantID, queueID)]++
	return m.s.seq[key(tenantID, queueID)], nil
}

type memTickets struct{ s *memState }

func (m *memTickets) Create(_ context.Context, t domain.Ticket) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.tickets[key(t.TenantID, t.ID)] = t
	return nil
}

func (m *memTickets) Get(_ context.Context, tenantID, ticketID string) (domain.Ticket, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	t, ok := m.s.tickets[key(tenantID, ticketID)]
	if !ok {
		return domain.Ticket{}, domain.ErrNotFound
	}
	return t, nil
}

func (m *memTickets) Update(_ context.Context, t domain.Ticket, expectedVersion int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cur, ok := m.s.tickets[key(t.TenantID, t.ID)]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	m.s.tickets[key(t.TenantID, t.ID)] = t
	return nil
}

func (m *memTickets) ListWaiting(_ context.Context, tenantID, queueID string) ([]domain.Ticket, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []domain.Ticket
	for _, t := range m.s.tickets {
		if t.TenantID == tenantID && t.QueueID == queueID && t.Status == domain.StatusWaiting {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DispatchesBefore(out[j]) })
	return out, nil
}

func (m *memTickets) CountWaiting(_ context.Context, tenantID, queueID string) (int, error) {
	tickets, _ := m.ListWaiting(context.Background(), tenantID, queueID)
	return len(tickets), nil
}

func (m *memTickets) ActiveForAgent(_ context.Context, tenantID, agentID string) (domain.Ticket, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, t := range m.s.tickets {
		if t.TenantID == tenantID && t.AgentID == agentID && t.Active() {
			return t, nil
		}
	}
	return domain.Ticket{}, domain.ErrNotFound
}

func (m *memTickets) CountActiveAgents(_ context.Context, tenantID, queueID string) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	agents := make(map[string]bool)
	for _, t := range m.s.tickets {
		if t.TenantID == tenantID && t.QueueID == queueID && t.Active() {
			agents[t.AgentID] = true
		}
	}
	return len(agents), nil
}

type memSessions struct{ s *memState }

func (m *memSessions) Create(_ context.Context, sess domain.Session) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.sessions[key(sess.TenantID, sess.ID)] = sess
	return nil
}

func (m *memSessions) Get(_ context.Context, tenantID, sessionID string) (domain.Session, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sess, ok := m.s.sessions[key(tenantID, sessionID)]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	return sess, nil
}

func (m *memSessions) Update(_ context.Context, sess domain.Session, expectedVersion int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cur, ok := m.s.sessions[key(sess.TenantID, sess.ID)]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	m.s.sessions[key(sess.TenantID, sess.ID)] = sess
	return nil
}

func (m *memSessions) ActiveForTicket(_ context.Context, tenantID, ticketID string) (domain.Session, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, sess := range m.s.sessions {
		if sess.TenantID == tenantID && sess.TicketID == ticketID && !sess.Terminal() {
			return sess, nil
		}
	}
	return domain.Session{}, domain.ErrNotFound
}

func (m *memSessions) ListRecentCompleted(_ context.Context, tenantID, queueID string, limit int) ([]domain.Session, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []domain.Session
	for _, sess := range m.s.sessions {
		if sess.TenantID == tenantID && sess.QueueID == queueID && sess.Status == domain.StatusCompleted {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(*out[j].CompletedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memResources struct{ s *memState }

func (m *memResources) Create(_ context.Context, r domain.Resource) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.resources[key(r.TenantID, r.ID)] = r
	return nil
}

func (m *memResources) Get(_ context.Context, tenantID, resourceID string) (domain.Resource, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.resources[key(tenantID, resourceID)]
	if !ok {
		return domain.Resource{}, domain.ErrNotFound
	}
	return r, nil
}

func (m *memResources) Update(_ context.Context, r domain.Resource) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.resources[key(r.TenantID, r.ID)]; !ok {
		return domain.ErrNotFound
	}
	m.s.resources[key(r.TenantID, r.ID)] = r
	return nil
}

type memHistory struct{ s *memState }

func (m *memHistory) Append(_ context.Context, change domain.StatusChange) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.changes = append(m.s.changes, change)
	return nil
}

func (m *memHistory) ListForTicket(_ context.Context, tenantID, ticketID string) ([]domain.StatusChange, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []domain.StatusChange
	for _, c := range m.s.changes {
		if c.TenantID == tenantID && c.TicketID == ticketID {
			out = append(out, c)
		}
	}
	return out, nil
}

// --- Capture publisher ---

type capturePublisher struct {
	mu     sync.Mutex
	events []domain.DomainEvent
}

func (p *capturePublisher) Publish(_ context.Context, event domain.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) kinds() []domain.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventKind, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}

// --- Harness ---

type harness struct {
	clock     *fakeClock
	state     *memState
	queues    *memQueues
	ticketSvc *app.TicketService
	dispatch  *app.Dispatcher
	sessions  *app.SessionService
	estimator *app.Estimator
	pub       *capturePublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	state := newMemState()
	clock := newFakeClock()
	pub := &capturePublisher{}

	queues := &memQueues{s: state}
	tickets := &memTickets{s: state}
	sessions := &memSessions{s: state}
	resources := &memResources{s: state}
	history := &memHistory{s: state}

	ticketValidator := &tableValidator{transitions: domain.TicketTransitions}
	sessionValidator := &tableValidator{transitions: domain.SessionTransitions}

	return &harness{
		clock:     clock,
		state:     state,
		queues:    queues,
		ticketSvc: app.NewTicketService(queues, tickets, sessions, history, pub, ticketValidator, clock),
		dispatch:  app.NewDispatcher(queues, tickets, history, pub, ticketValidator, clock),
		sessions:  app.NewSessionService(tickets, sessions, resources, history, pub, ticketValidator, sessionValidator, clock),
		estimator: app.NewEstimator(queues, tickets, sessions),
		pub:       pub,
	}
}

func (h *harness) addQueue(t *testing.T, tenantID, queueID string, capacity int) {
	t.Helper()
	q := domain.NewQueue(queueID, tenantID, "unit-1", queueID, capacity, h.clock.Now())
	if err := h.queues.Create(context.Background(), q); err != nil {
		t.Fatalf("creating queue: %v", err)
	}
}

func (h *harness) addResource(t *testing.T, tenantID, resourceID string) {
	t.Helper()
	r := domain.NewResource(resourceID, tenantID, "unit-1", resourceID)
	if err := (&memResources{s: h.state}).Create(context.Background(), r); err != nil {
		t.Fatalf("creating resource: %v", err)
	}
}

func (h *harness) admit(t *testing.T, tenantID, queueID string, priority domain.Priority) domain.Ticket {
	t.Helper()
	ticket, err := h.ticketSvc.Create(context.Background(), tenantID, queueID, "svc-1", priority, domain.Customer{Name: "c"})
	if err != nil {
		t.Fatalf("admitting ticket: %v", err)
	}
	return ticket
}

func (h *harness) getTicket(t *testing.T, tenantID, ticketID string) domain.Ticket {
	t.Helper()
	ticket, err := (&memTickets{s: h.state}).Get(context.Background(), tenantID, ticketID)
	if err != nil {
		t.Fatalf("loading ticket: %v", err)
	}
	return ticket
}

func (h *harness) getResource(t *testing.T, tenantID, resourceID string) domain.Resource {
	t.Helper()
	r, err := (&memResources{s: h.state}).Get(context.Background(), tenantID, resourceID)
	if err != nil {
		t.Fatalf("loading resource: %v", err)
	}
	return r
}
