package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/connectsphere/booking-core/internal/model"
	"github.com/connectsphere/booking-core/internal/payment"
	"github.com/connectsphere/booking-core/internal/repository"
)

// memDB is an in-memory stand-in for MySQL.  It applies the same guarded
// updates as the repository package so that state-machine behaviour can be
// tested without a database.
type memDB struct {
	mu        sync.Mutex
	mentors   map[string]*model.Mentor
	requests  map[string]*model.MentorshipRequest
	collabs   map[string]*model.Collaboration
	groups    map[string]*model.Group
	members   map[string]map[string]bool
	groupReqs map[string]*model.GroupRequest
	attempts  map[string]*model.PaymentAttempt

	// finalizeErr is returned once by the next finalize call.
	finalizeErr error
}

func newMemDB() *memDB {
	return &memDB{
		mentors:   map[string]*model.Mentor{},
		requests:  map[string]*model.MentorshipRequest{},
		collabs:   map[string]*model.Collaboration{},
		groups:    map[string]*model.Group{},
		members:   map[string]map[string]bool{},
		groupReqs: map[string]*model.GroupRequest{},
		attempts:  map[string]*model.PaymentAttempt{},
	}
}

func (db *memDB) stores() Stores {
	return Stores{
		Mentors:        fakeMentors{db},
		Requests:       fakeRequests{db},
		Slots:          fakeSlots{db},
		Collaborations: fakeCollabs{db},
		Groups:         fakeGroups{db},
		Attempts:       fakeAttempts{db},
	}
}

func (db *memDB) addMentor(id, userID string, rate int64) {
	db.mentors[id] = &model.Mentor{ID: id, UserID: userID, DisplayName: id, RateMinor: rate, Currency: "inr", IsActive: true}
}

func (db *memDB) addGroup(id, mentorID string, maxMembers int, price int64, members ...string) {
	db.groups[id] = &model.Group{ID: id, MentorID: mentorID, Name: "group " + id, MaxMembers: maxMembers, PriceMinor: price, Currency: "inr"}
	db.members[id] = map[string]bool{}
	for _, u := range members {
		db.members[id][u] = true
	}
}

func (db *memDB) request(id string) *model.MentorshipRequest {
	db.mu.Lock()
	defer db.mu.Unlock()
	r, ok := db.requests[id]
	if !ok {
		return nil
	}
	cp := *r
	return &cp
}

func (db *memDB) attemptsFor(requestID string) []*model.PaymentAttempt {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []*model.PaymentAttempt
	for _, a := range db.attempts {
		if a.RequestID == requestID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out
}

func (db *memDB) slotLocked(mentorID string, slot model.Slot, excludeID string) bool {
	for _, c := range db.collabs {
		if c.MentorID == mentorID && c.Slot == slot && c.Active() {
			return true
		}
	}
	for _, r := range db.requests {
		if r.ID != excludeID && r.MentorID == mentorID && r.Slot == slot && r.SoftLocked() {
			return true
		}
	}
	return false
}

func (db *memDB) memberCount(groupID string) int { return len(db.members[groupID]) }

func (db *memDB) settle(attemptID, collabID string, at time.Time) {
	if a, ok := db.attempts[attemptID]; ok {
		a.Status = model.AttemptSettled
		a.CollaborationID = collabID
		a.UpdatedAt = at
	}
}

func (db *memDB) takeFinalizeErr() error {
	err := db.finalizeErr
	db.finalizeErr = nil
	return err
}

type fakeMentors struct{ db *memDB }

func (f fakeMentors) GetByID(_ context.Context, id string) (*model.Mentor, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	m, ok := f.db.mentors[id]
	if !ok {
		return nil, repository.ErrMentorNotFound
	}
	cp := *m
	return &cp, nil
}

func (f fakeMentors) GetByUserID(_ context.Context, userID string) (*model.Mentor, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, m := range f.db.mentors {
		if m.UserID == userID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repository.ErrMentorNotFound
}

type fakeRequests struct{ db *memDB }

func (f fakeRequests) Create(_ context.Context, req *model.MentorshipRequest) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	cp := *req
	f.db.requests[req.ID] = &cp
	return nil
}

func (f fakeRequests) GetByID(_ context.Context, id string) (*model.MentorshipRequest, error) {
	if r := f.db.request(id); r != nil {
		return r, nil
	}
	return nil, repository.ErrRequestNotFound
}

func (f fakeRequests) FindConflicting(_ context.Context, userID string, slot model.Slot, excludeID string) ([]*model.MentorshipRequest, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []*model.MentorshipRequest
	for _, r := range f.db.requests {
		if r.ID != excludeID && r.UserID == userID && r.Slot == slot && r.Outstanding() {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeRequests) HasOutstanding(_ context.Context, userID, mentorID string, slot model.Slot) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, r := range f.db.requests {
		if r.UserID == userID && r.MentorID == mentorID && r.Slot == slot && r.Outstanding() {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeRequests) Accept(_ context.Context, p repository.AcceptParams) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.mentors[p.MentorID]; !ok {
		return repository.ErrMentorNotFound
	}
	if f.db.slotLocked(p.MentorID, p.Slot, p.ID) {
		return repository.ErrSlotTaken
	}
	r, ok := f.db.requests[p.ID]
	if !ok || r.IsAccepted != model.AcceptancePending {
		return repository.ErrStaleState
	}
	at := p.At
	r.IsAccepted = model.AcceptanceAccepted
	r.AcceptedAt = &at
	r.UpdatedAt = at
	for _, id := range p.WithdrawIDs {
		if w, ok := f.db.requests[id]; ok && w.Outstanding() {
			delete(f.db.requests, id)
		}
	}
	return nil
}

func (f fakeRequests) Reject(_ context.Context, id string, at time.Time) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	r, ok := f.db.requests[id]
	if !ok || r.IsAccepted != model.AcceptancePending {
		return repository.ErrStaleState
	}
	r.IsAccepted = model.AcceptanceRejected
	r.UpdatedAt = at
	return nil
}

func (f fakeRequests) list(match func(*model.MentorshipRequest) bool) []*model.MentorshipRequest {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []*model.MentorshipRequest
	for _, r := range f.db.requests {
		if match(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f fakeRequests) ListByUser(_ context.Context, userID string) ([]*model.MentorshipRequest, error) {
	return f.list(func(r *model.MentorshipRequest) bool { return r.UserID == userID }), nil
}

func (f fakeRequests) ListByMentor(_ context.Context, mentorID string) ([]*model.MentorshipRequest, error) {
	return f.list(func(r *model.MentorshipRequest) bool { return r.MentorID == mentorID }), nil
}

// abandoned mirrors the repository predicate; callers hold mu.
func (f fakeRequests) abandoned(r *model.MentorshipRequest, cutoff time.Time) bool {
	if !r.SoftLocked() || r.AcceptedAt == nil || !r.AcceptedAt.Before(cutoff) {
		return false
	}
	for _, a := range f.db.attempts {
		if a.Kind != model.KindMentorship || a.RequestID != r.ID {
			continue
		}
		if a.Status == model.AttemptCaptured || a.Status == model.AttemptRequiresAction {
			return false
		}
		if a.Status == model.AttemptPending && !a.UpdatedAt.Before(cutoff) {
			return false
		}
	}
	return true
}

func (f fakeRequests) ListAbandoned(_ context.Context, cutoff time.Time, limit int) ([]*model.MentorshipRequest, error) {
	f.db.mu.Lock()
	var out []*model.MentorshipRequest
	for _, r := range f.db.requests {
		if f.abandoned(r, cutoff) && len(out) < limit {
			cp := *r
			out = append(out, &cp)
		}
	}
	f.db.mu.Unlock()
	return out, nil
}

func (f fakeRequests) DeleteAbandoned(_ context.Context, id string, cutoff time.Time) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	r, ok := f.db.requests[id]
	if !ok || !f.abandoned(r, cutoff) {
		return false, nil
	}
	delete(f.db.requests, id)
	return true, nil
}

type fakeSlots struct{ db *memDB }

func (f fakeSlots) IsLocked(_ context.Context, mentorID string, slot model.Slot) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.db.slotLocked(mentorID, slot, ""), nil
}

func (f fakeSlots) LockedSlots(_ context.Context, mentorID string) ([]model.Slot, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []model.Slot
	for _, d := range model.Weekdays {
		for _, ts := range model.TimeSlots {
			s := model.Slot{Day: d, TimeSlot: ts}
			if f.db.slotLocked(mentorID, s, "") {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

type fakeCollabs struct{ db *memDB }

func (f fakeCollabs) FinalizeFromRequest(_ context.Context, c *model.Collaboration, requestID, attemptID string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if err := f.db.takeFinalizeErr(); err != nil {
		return err
	}
	r, ok := f.db.requests[requestID]
	if !ok || !r.SoftLocked() {
		return repository.ErrRequestNotFound
	}
	delete(f.db.requests, requestID)
	cp := *c
	f.db.collabs[c.ID] = &cp
	f.db.settle(attemptID, c.ID, c.CreatedAt)
	return nil
}

func (f fakeCollabs) GetByID(_ context.Context, id string) (*model.Collaboration, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c, ok := f.db.collabs[id]
	if !ok {
		return nil, repository.ErrCollaborationNotFound
	}
	cp := *c
	return &cp, nil
}

func (f fakeCollabs) ListByParticipant(_ context.Context, userID, mentorID string) ([]*model.Collaboration, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []*model.Collaboration
	for _, c := range f.db.collabs {
		if c.UserID == userID || (mentorID != "" && c.MentorID == mentorID) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f fakeCollabs) HasActiveForUserSlot(_ context.Context, userID string, slot model.Slot) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, c := range f.db.collabs {
		if c.UserID == userID && c.Slot == slot && c.Active() {
			return true, nil
		}
	}
	return false, nil
}

type fakeGroups struct{ db *memDB }

func (f fakeGroups) GetGroup(_ context.Context, id string) (*model.Group, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	g, ok := f.db.groups[id]
	if !ok {
		return nil, repository.ErrGroupNotFound
	}
	cp := *g
	cp.MemberCount = f.db.memberCount(id)
	return &cp, nil
}

func (f fakeGroups) IsMember(_ context.Context, groupID, userID string) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.db.members[groupID][userID], nil
}

func (f fakeGroups) HasOutstandingRequest(_ context.Context, groupID, userID string) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, g := range f.db.groupReqs {
		if g.GroupID == groupID && g.UserID == userID &&
			(g.Status == model.AcceptancePending || (g.Status == model.AcceptanceAccepted && g.PaymentStatus != model.PaymentPaid)) {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeGroups) CreateRequest(_ context.Context, g *model.GroupRequest) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	cp := *g
	f.db.groupReqs[g.ID] = &cp
	return nil
}

func (f fakeGroups) GetRequest(_ context.Context, id string) (*model.GroupRequest, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	g, ok := f.db.groupReqs[id]
	if !ok {
		return nil, repository.ErrGroupRequestNotFound
	}
	cp := *g
	return &cp, nil
}

// capacity mirrors lockCapacityTx; callers hold mu.
func (f fakeGroups) capacity(groupID string) error {
	g, ok := f.db.groups[groupID]
	if !ok {
		return repository.ErrGroupNotFound
	}
	if f.db.memberCount(groupID) >= g.MaxMembers {
		return repository.ErrGroupFull
	}
	return nil
}

func (f fakeGroups) AcceptRequest(_ context.Context, requestID, groupID string, at time.Time) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if err := f.capacity(groupID); err != nil {
		return err
	}
	g, ok := f.db.groupReqs[requestID]
	if !ok || g.Status != model.AcceptancePending {
		return repository.ErrStaleState
	}
	g.Status = model.AcceptanceAccepted
	g.UpdatedAt = at
	return nil
}

func (f fakeGroups) RejectRequest(_ context.Context, requestID string, at time.Time) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	g, ok := f.db.groupReqs[requestID]
	if !ok || g.Status != model.AcceptancePending {
		return repository.ErrStaleState
	}
	g.Status = model.AcceptanceRejected
	g.UpdatedAt = at
	return nil
}

func (f fakeGroups) FinalizePayment(_ context.Context, gr *model.GroupRequest, amountMinor int64, attemptID string, at time.Time) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if err := f.db.takeFinalizeErr(); err != nil {
		return err
	}
	if err := f.capacity(gr.GroupID); err != nil {
		return err
	}
	g, ok := f.db.groupReqs[gr.ID]
	if !ok || g.Status != model.AcceptanceAccepted || g.PaymentStatus == model.PaymentPaid {
		return repository.ErrStaleState
	}
	g.PaymentStatus = model.PaymentPaid
	g.AmountPaidMinor = amountMinor
	g.UpdatedAt = at
	f.db.members[gr.GroupID][gr.UserID] = true
	f.db.settle(attemptID, "", at)
	return nil
}

type fakeAttempts struct{ db *memDB }

func (f fakeAttempts) Create(_ context.Context, a *model.PaymentAttempt) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, x := range f.db.attempts {
		if x.IdempotencyKey == a.IdempotencyKey {
			return repository.ErrDuplicateAttempt
		}
	}
	cp := *a
	f.db.attempts[a.ID] = &cp
	return nil
}

func (f fakeAttempts) GetByKey(_ context.Context, key string) (*model.PaymentAttempt, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, a := range f.db.attempts {
		if a.IdempotencyKey == key {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrAttemptNotFound
}

func (f fakeAttempts) MarkOutcome(_ context.Context, id string, status model.AttemptStatus, intentID, reason string, at time.Time) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	a, ok := f.db.attempts[id]
	if !ok || a.Status == model.AttemptSettled {
		return nil
	}
	a.Status = status
	if intentID != "" {
		a.GatewayIntentID = intentID
	}
	a.FailureReason = reason
	a.UpdatedAt = at
	return nil
}

// openRank orders attempts the way FindOpenByRequest does; 0 is not open.
func openRank(st model.AttemptStatus) int {
	switch st {
	case model.AttemptCaptured:
		return 3
	case model.AttemptRequiresAction:
		return 2
	case model.AttemptPending:
		return 1
	}
	return 0
}

func (f fakeAttempts) FindOpenByRequest(_ context.Context, kind model.RequestKind, requestID string) (*model.PaymentAttempt, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var best *model.PaymentAttempt
	for _, a := range f.db.attempts {
		if a.Kind != kind || a.RequestID != requestID || openRank(a.Status) == 0 {
			continue
		}
		if best == nil || openRank(a.Status) > openRank(best.Status) ||
			(a.Status == best.Status && a.UpdatedAt.After(best.UpdatedAt)) {
			best = a
		}
	}
	if best == nil {
		return nil, repository.ErrAttemptNotFound
	}
	cp := *best
	return &cp, nil
}

func (f fakeAttempts) ListStale(_ context.Context, status model.AttemptStatus, before time.Time, limit int) ([]*model.PaymentAttempt, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []*model.PaymentAttempt
	for _, a := range f.db.attempts {
		if a.Status == status && a.UpdatedAt.Before(before) && len(out) < limit {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// fakeGateway behaves like Stripe for the calls the finalizer makes: a new
// idempotency key creates an intent in the configured status, a reused key
// replays the first response unchanged, and GetPaymentIntent reads the
// intent's current state.
type fakeGateway struct {
	mu       sync.Mutex
	status   payment.IntentStatus
	failCode string
	err      error
	charges  []payment.IntentRequest
	byKey    map[string]payment.Intent
	intents  map[string]*payment.Intent
}

func newFakeGateway(status payment.IntentStatus) *fakeGateway {
	return &fakeGateway{status: status, byKey: map[string]payment.Intent{}, intents: map[string]*payment.Intent{}}
}

func (g *fakeGateway) FindOrCreateCustomer(_ context.Context, email string) (string, error) {
	return "cus_" + email, nil
}

func (g *fakeGateway) CreatePaymentIntent(_ context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	if first, ok := g.byKey[req.IdempotencyKey]; ok {
		return &first, nil
	}
	g.charges = append(g.charges, req)
	in := payment.Intent{ID: fmt.Sprintf("pi_%d", len(g.charges)), Status: g.status}
	switch g.status {
	case payment.StatusRequiresAction:
		in.ClientSecret = in.ID + "_secret"
	case payment.StatusFailed:
		in.FailureCode, in.FailureMessage = g.failCode, "Your card was declined."
	}
	g.byKey[req.IdempotencyKey] = in
	live := in
	g.intents[in.ID] = &live
	return &in, nil
}

func (g *fakeGateway) GetPaymentIntent(_ context.Context, id string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	in, ok := g.intents[id]
	if !ok {
		return nil, &payment.Error{Code: "resource_missing", Message: "no such payment_intent"}
	}
	cp := *in
	return &cp, nil
}

func (g *fakeGateway) CancelPaymentIntent(_ context.Context, id string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	in, ok := g.intents[id]
	if !ok || in.Status != payment.StatusRequiresAction {
		return nil, &payment.Error{Code: "payment_intent_unexpected_state", Message: "intent cannot be cancelled"}
	}
	in.Status, in.ClientSecret = payment.StatusFailed, ""
	in.FailureCode, in.FailureMessage = "canceled", "payment was not completed"
	cp := *in
	return &cp, nil
}

// finishAction stands in for the customer completing (or failing) the
// authentication step of intent id.
func (g *fakeGateway) finishAction(id string, status payment.IntentStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[id].Status = status
	g.intents[id].ClientSecret = ""
}

func (g *fakeGateway) intentStatus(id string) payment.IntentStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.intents[id].Status
}

func (g *fakeGateway) chargeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.charges)
}

// blockingGateway waits for ctx, standing in for a gateway that never answers.
type blockingGateway struct{ fakeGateway }

func (g *blockingGateway) CreatePaymentIntent(ctx context.Context, _ payment.IntentRequest) (*payment.Intent, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg model.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *recordingNotifier) kinds() []model.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.NotificationKind, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.Kind)
	}
	return out
}

var errDiskFull = errors.New("disk full")

var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// harness wires every service over one memDB with a fixed clock.
type harness struct {
	db       *memDB
	gw       *fakeGateway
	notifier *recordingNotifier
	slots    *SlotRegistry
	requests *RequestManager
	payments *Finalizer
	sweeper  *Sweeper
}

var (
	mentee   = model.Principal{ID: "u1", Role: model.RoleUser}
	mentee2  = model.Principal{ID: "u2", Role: model.RoleUser}
	mentorP1 = model.Principal{ID: "mu1", Role: model.RoleMentor}
	mentorP2 = model.Principal{ID: "mu2", Role: model.RoleMentor}
	admin    = model.Principal{ID: "admin", Role: model.RoleAdmin}
)

func newHarness(gw payment.Gateway) *harness {
	db := newMemDB()
	db.addMentor("m1", "mu1", 50000)
	db.addMentor("m2", "mu2", 70000)

	h := &harness{db: db, notifier: &recordingNotifier{}}
	if fg, ok := gw.(*fakeGateway); ok {
		h.gw = fg
	}
	log := zap.NewNop()
	st := db.stores()
	clock := func() time.Time { return fixedNow }

	h.slots = NewSlotRegistry(st.Mentors, st.Slots)
	h.requests = NewRequestManager(st, h.notifier, log)
	h.requests.now = clock
	h.payments = NewFinalizer(st, gw, h.notifier, FinalizerConfig{
		AccessWindow:   30 * 24 * time.Hour,
		GatewayTimeout: 50 * time.Millisecond,
	}, log)
	h.payments.now = clock
	h.sweeper = NewSweeper(st, h.payments, h.notifier, 72*time.Hour, time.Minute, log)
	h.sweeper.now = clock
	return h
}
