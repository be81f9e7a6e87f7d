package service

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"testing"

	"github.com/ma-central/macsvc/internal/apperror"
	"github.com/ma-central/macsvc/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeUserRepo is an in-memory UserRepository mirroring the store's ledger
// semantics: credits always apply, debits are conditional on the balance.
type fakeUserRepo struct {
	users  map[int64]*model.User
	nextID int64

	// Set to inject failures.
	adjustErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*model.User), nextID: 1}
}

func (f *fakeUserRepo) addUser(score int64) *model.User {
	u := &model.User{
		ID:        f.nextID,
		StudentID: "s" + strconv.FormatInt(f.nextID, 10),
		Username:  "user" + strconv.FormatInt(f.nextID, 10),
		FullName:  "Fake User",
		Score:     score,
		Lifetime:  score,
		Role:      model.RoleOrdinary,
	}
	f.users[u.ID] = u
	f.nextID++
	return u
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	for _, u := range f.users {
		if u.Username == user.Username || u.StudentID == user.StudentID {
			return apperror.Conflict("user", user.Username)
		}
	}
	user.ID = f.nextID
	f.nextID++
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeUserRepo) GetByStudentID(ctx context.Context, studentID string) (*model.User, error) {
	for _, u := range f.users {
		if u.StudentID == studentID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", studentID)
}

func (f *fakeUserRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := f.users[id]; !ok {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) AdjustPoints(ctx context.Context, id, delta int64) (bool, error) {
	if f.adjustErr != nil {
		return false, f.adjustErr
	}
	u, ok := f.users[id]
	if !ok {
		return false, apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	if delta >= 0 {
		u.Score += delta
		u.Lifetime += delta
		return true, nil
	}
	if u.Score < -delta {
		return false, nil
	}
	u.Score += delta
	return true, nil
}

func (f *fakeUserRepo) RefundPoints(ctx context.Context, id, amount int64) error {
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	u.Score += amount
	return nil
}

func (f *fakeUserRepo) TopByLifetime(ctx context.Context, limit int) ([]model.UserPoints, error) {
	board := []model.UserPoints{}
	for _, u := range f.users {
		board = append(board, model.UserPoints{ID: u.ID, Username: u.Username, Lifetime: u.Lifetime, Score: u.Score})
	}
	if len(board) > limit {
		board = board[:limit]
	}
	return board, nil
}

// fakeEventRepo is an in-memory EventRepository.
type fakeEventRepo struct {
	events map[int64]*model.Event
	nextID int64

	createErr error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[int64]*model.Event), nextID: 1}
}

func (f *fakeEventRepo) addEvent(pointValue, lastSaleDate int64) *model.Event {
	e := &model.Event{
		ID:           f.nextID,
		StartTime:    1700000000000,
		EndTime:      1700003600000,
		Title:        "Event " + strconv.FormatInt(f.nextID, 10),
		PointValue:   pointValue,
		LastSaleDate: lastSaleDate,
	}
	f.events[e.ID] = e
	f.nextID++
	return e
}

func (f *fakeEventRepo) Create(ctx context.Context, event *model.Event) error {
	if f.createErr != nil {
		return f.createErr
	}
	event.ID = f.nextID
	f.nextID++
	copied := *event
	f.events[event.ID] = &copied
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id int64) (*model.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, apperror.NotFound("event", strconv.FormatInt(id, 10))
	}
	copied := *e
	return &copied, nil
}

func (f *fakeEventRepo) ListAll(ctx context.Context) ([]model.Event, error) {
	all := []model.Event{}
	for _, e := range f.events {
		all = append(all, *e)
	}
	return all, nil
}

func (f *fakeEventRepo) ListFuture(ctx context.Context, nowMillis int64) ([]model.Event, error) {
	future := []model.Event{}
	for _, e := range f.events {
		if e.StartTime > nowMillis {
			future = append(future, *e)
		}
	}
	return future, nil
}

func (f *fakeEventRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := f.events[id]; !ok {
		return apperror.NotFound("event", strconv.FormatInt(id, 10))
	}
	delete(f.events, id)
	return nil
}

// pairKey identifies the (holder, event) pair the unique constraint guards.
type pairKey struct {
	holderID int64
	eventID  int64
}

// fakeTicketRepo is an in-memory TicketRepository enforcing the same
// one-ticket-per-pair rule as the real store.
type fakeTicketRepo struct {
	tickets map[string]*model.Ticket
	pairs   map[pairKey]string

	createErr error
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{
		tickets: make(map[string]*model.Ticket),
		pairs:   make(map[pairKey]string),
	}
}

func (f *fakeTicketRepo) Create(ctx context.Context, ticket *model.Ticket) error {
	if f.createErr != nil {
		return f.createErr
	}
	key := pairKey{ticket.HolderID, ticket.EventID}
	if _, dup := f.pairs[key]; dup {
		return apperror.Conflict("ticket", ticket.ID)
	}
	copied := *ticket
	f.tickets[ticket.ID] = &copied
	f.pairs[key] = ticket.ID
	return nil
}

func (f *fakeTicketRepo) GetByID(ctx context.Context, id string) (*model.Ticket, error) {
	t, ok := f.tickets[id]
	if !ok {
		return nil, apperror.NotFound("ticket", id)
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTicketRepo) ListByHolder(ctx context.Context, holderID int64) ([]model.Ticket, error) {
	mine := []model.Ticket{}
	for _, t := range f.tickets {
		if t.HolderID == holderID {
			mine = append(mine, *t)
		}
	}
	return mine, nil
}

func (f *fakeTicketRepo) ListValidByHolder(ctx context.Context, holderID int64) ([]model.Ticket, error) {
	mine := []model.Ticket{}
	for _, t := range f.tickets {
		if t.HolderID == holderID && !t.Expended {
			mine = append(mine, *t)
		}
	}
	return mine, nil
}

func (f *fakeTicketRepo) CountForHolderEvent(ctx context.Context, holderID, eventID int64) (int, error) {
	if _, ok := f.pairs[pairKey{holderID, eventID}]; ok {
		return 1, nil
	}
	return 0, nil
}

func (f *fakeTicketRepo) MarkExpended(ctx context.Context, id string) error {
	t, ok := f.tickets[id]
	if !ok {
		return apperror.NotFound("ticket", id)
	}
	if t.Expended {
		return apperror.AlreadyExpended(id)
	}
	t.Expended = true
	return nil
}

// ticketFixture bundles a TicketService with its fakes for inspection.
type ticketFixture struct {
	svc     *TicketService
	users   *fakeUserRepo
	events  *fakeEventRepo
	tickets *fakeTicketRepo
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()

	users := newFakeUserRepo()
	events := newFakeEventRepo()
	tickets := newFakeTicketRepo()
	logger := testLogger()

	ledger := NewLedgerService(users, logger)
	catalog := NewCatalogService(events, logger)
	svc := NewTicketService(catalog, ledger, tickets, users, logger)

	return &ticketFixture{svc: svc, users: users, events: events, tickets: tickets}
}
