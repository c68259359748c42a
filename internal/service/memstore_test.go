package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/sisacad-enrollment/internal/models"
)

// memState is an in-memory copy of the enrollment tables.
type memState struct {
	terms        map[string]models.Term
	rules        map[string]models.TermRule
	sections     map[string]models.CourseSection
	courses      map[string]models.Course
	carts        map[string]models.Cart
	items        map[string]models.CartItem
	reservations map[string]models.CapReservation
	enrollments  map[string]models.Enrollment
	attempts     []models.EnrollmentAttempt
	payments     []models.PaymentOrder
}

func (s memState) clone() memState {
	out := memState{
		terms:        make(map[string]models.Term, len(s.terms)),
		rules:        make(map[string]models.TermRule, len(s.rules)),
		sections:     make(map[string]models.CourseSection, len(s.sections)),
		courses:      make(map[string]models.Course, len(s.courses)),
		carts:        make(map[string]models.Cart, len(s.carts)),
		items:        make(map[string]models.CartItem, len(s.items)),
		reservations: make(map[string]models.CapReservation, len(s.reservations)),
		enrollments:  make(map[string]models.Enrollment, len(s.enrollments)),
		attempts:     append([]models.EnrollmentAttempt(nil), s.attempts...),
		payments:     append([]models.PaymentOrder(nil), s.payments...),
	}
	for k, v := range s.terms {
		out.terms[k] = v
	}
	for k, v := range s.rules {
		out.rules[k] = v
	}
	for k, v := range s.sections {
		out.sections[k] = v
	}
	for k, v := range s.courses {
		out.courses[k] = v
	}
	for k, v := range s.carts {
		out.carts[k] = v
	}
	for k, v := range s.items {
		out.items[k] = v
	}
	for k, v := range s.reservations {
		out.reservations[k] = v
	}
	for k, v := range s.enrollments {
		out.enrollments[k] = v
	}
	return out
}

// memDB serialises transactions with one mutex, which is at least as strict as the
// row locks taken by the SQL store. Failed transactions and savepoints restore a snapshot.
type memDB struct {
	mu    sync.Mutex
	state memState
	seq   int

	// beforeDeleteCartItem runs inside the transaction before a cart item delete.
	beforeDeleteCartItem func(state *memState, cartID, sectionID string)
	failCreateAttempt    error
}

func newMemDB() *memDB {
	return &memDB{state: memState{}.clone()}
}

func (db *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	snapshot := db.state.clone()
	if err := fn(ctx, &memStore{db: db}); err != nil {
		db.state = snapshot
		return err
	}
	return nil
}

func (db *memDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

func (db *memDB) addTerm(id string, rule *models.TermRule) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.state.terms[id] = models.Term{ID: id, Name: id}
	if rule != nil {
		rule.TermID = id
		db.state.rules[id] = *rule
	}
}

func (db *memDB) addSection(id string, capacity, credits int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	courseID := "course-" + id
	db.state.courses[courseID] = models.Course{ID: courseID, Code: "C" + id, Name: "Course " + id, Credits: credits}
	db.state.sections[id] = models.CourseSection{ID: id, CourseID: courseID, Section: "A", Capacity: capacity}
}

func (db *memDB) enroll(studentID, sectionID string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.state.enrollments[studentID+"|"+sectionID] = models.Enrollment{ID: db.nextID("enr"), StudentID: studentID, SectionID: sectionID}
}

func (db *memDB) snapshot() memState {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.clone()
}

// seats applies the availability formula to the committed state.
func (s memState) seats(sectionID string, now time.Time) int {
	used := 0
	for _, e := range s.enrollments {
		if e.SectionID == sectionID {
			used++
		}
	}
	for _, r := range s.reservations {
		if r.SectionID == sectionID && r.ReservedUntil.After(now) {
			used++
		}
	}
	return s.sections[sectionID].Capacity - used
}

func (s memState) cartItemsFor(studentID, termID string) []models.CartItem {
	var out []models.CartItem
	for _, cart := range s.carts {
		if cart.StudentID != studentID || cart.TermID != termID {
			continue
		}
		for _, item := range s.items {
			if item.CartID == cart.ID {
				out = append(out, item)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SectionID < out[j].SectionID })
	return out
}

func (s memState) attemptsFor(action string) []models.EnrollmentAttempt {
	var out []models.EnrollmentAttempt
	for _, a := range s.attempts {
		if a.Action == action {
			out = append(out, a)
		}
	}
	return out
}

func reservationKey(sectionID, studentID, termID string) string {
	return sectionID + "|" + studentID + "|" + termID
}

type memStore struct {
	db *memDB
}

func (m *memStore) st() *memState { return &m.db.state }

func (m *memStore) FindSection(ctx context.Context, id string) (*models.CourseSection, error) {
	section, ok := m.st().sections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &section, nil
}

func (m *memStore) LockSection(ctx context.Context, id string) (*models.CourseSection, error) {
	return m.FindSection(ctx, id)
}

func (m *memStore) CountEnrolled(ctx context.Context, sectionID string) (int, error) {
	count := 0
	for _, e := range m.st().enrollments {
		if e.SectionID == sectionID {
			count++
		}
	}
	return count, nil
}

func (m *memStore) SectionCredits(ctx context.Context, sectionID string) (int, error) {
	section, ok := m.st().sections[sectionID]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return m.st().courses[section.CourseID].Credits, nil
}

func (m *memStore) FindTerm(ctx context.Context, id string) (*models.Term, error) {
	term, ok := m.st().terms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &term, nil
}

func (m *memStore) FindTermRule(ctx context.Context, termID string) (*models.TermRule, error) {
	rule, ok := m.st().rules[termID]
	if !ok {
		return nil, nil
	}
	return &rule, nil
}

func (m *memStore) FindReservation(ctx context.Context, sectionID, studentID, termID string) (*models.CapReservation, error) {
	r, ok := m.st().reservations[reservationKey(sectionID, studentID, termID)]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memStore) CountOutstanding(ctx context.Context, sectionID, excludeStudentID string, now time.Time) (int, error) {
	count := 0
	for _, r := range m.st().reservations {
		if r.SectionID == sectionID && r.ReservedUntil.After(now) && r.StudentID != excludeStudentID {
			count++
		}
	}
	return count, nil
}

func (m *memStore) UpsertReservation(ctx context.Context, reservation *models.CapReservation) error {
	key := reservationKey(reservation.SectionID, reservation.StudentID, reservation.TermID)
	if existing, ok := m.st().reservations[key]; ok {
		reservation.ID = existing.ID
	} else {
		reservation.ID = m.db.nextID("res")
	}
	m.st().reservations[key] = *reservation
	return nil
}

func (m *memStore) DeleteReservation(ctx context.Context, sectionID, studentID, termID string) (int64, error) {
	key := reservationKey(sectionID, studentID, termID)
	if _, ok := m.st().reservations[key]; !ok {
		return 0, nil
	}
	delete(m.st().reservations, key)
	return 1, nil
}

func (m *memStore) DeleteExpiredReservations(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for key, r := range m.st().reservations {
		if !r.ReservedUntil.After(cutoff) {
			delete(m.st().reservations, key)
			n++
		}
	}
	return n, nil
}

func (m *memStore) cartFor(studentID, termID string) (models.Cart, bool) {
	for _, cart := range m.st().carts {
		if cart.StudentID == studentID && cart.TermID == termID {
			return cart, true
		}
	}
	return models.Cart{}, false
}

func (m *memStore) UpsertActiveCart(ctx context.Context, studentID, termID string, now time.Time) (*models.Cart, error) {
	cart, ok := m.cartFor(studentID, termID)
	if !ok {
		cart = models.Cart{ID: m.db.nextID("cart"), StudentID: studentID, TermID: termID, CreatedAt: now}
	}
	cart.IsActive = true
	cart.ConfirmedAt = nil
	m.st().carts[cart.ID] = cart
	return &cart, nil
}

func (m *memStore) LockActiveCart(ctx context.Context, studentID, termID string) (*models.Cart, error) {
	return m.FindActiveCart(ctx, studentID, termID)
}

func (m *memStore) FindActiveCart(ctx context.Context, studentID, termID string) (*models.Cart, error) {
	cart, ok := m.cartFor(studentID, termID)
	if !ok || !cart.IsActive {
		return nil, nil
	}
	return &cart, nil
}

func (m *memStore) LockCart(ctx context.Context, studentID, termID string) (*models.Cart, error) {
	cart, ok := m.cartFor(studentID, termID)
	if !ok {
		return nil, nil
	}
	return &cart, nil
}

func (m *memStore) DeactivateCart(ctx context.Context, cartID string, confirmedAt time.Time) error {
	cart := m.st().carts[cartID]
	cart.IsActive = false
	cart.ConfirmedAt = &confirmedAt
	m.st().carts[cartID] = cart
	return nil
}

func (m *memStore) ListCartItems(ctx context.Context, cartID string) ([]models.CartItem, error) {
	var items []models.CartItem
	for _, item := range m.st().items {
		if item.CartID == cartID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].SectionID < items[j].SectionID })
	return items, nil
}

func (m *memStore) ListCartItemDetails(ctx context.Context, cartID string) ([]models.CartItemDetail, error) {
	items, _ := m.ListCartItems(ctx, cartID)
	var details []models.CartItemDetail
	for _, item := range items {
		section := m.st().sections[item.SectionID]
		course := m.st().courses[section.CourseID]
		details = append(details, models.CartItemDetail{
			CartItem:   item,
			CourseCode: course.Code,
			CourseName: course.Name,
			Section:    section.Section,
			Credits:    course.Credits,
		})
	}
	return details, nil
}

func (m *memStore) UpsertCartItem(ctx context.Context, item *models.CartItem) error {
	key := item.CartID + "|" + item.SectionID
	if existing, ok := m.st().items[key]; ok {
		item.ID = existing.ID
	} else {
		item.ID = m.db.nextID("item")
	}
	m.st().items[key] = *item
	return nil
}

func (m *memStore) DeleteCartItem(ctx context.Context, cartID, sectionID string) (int64, error) {
	if m.db.beforeDeleteCartItem != nil {
		m.db.beforeDeleteCartItem(m.st(), cartID, sectionID)
	}
	key := cartID + "|" + sectionID
	if _, ok := m.st().items[key]; !ok {
		return 0, nil
	}
	delete(m.st().items, key)
	return 1, nil
}

func (m *memStore) DeleteExpiredCartItems(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for key, item := range m.st().items {
		if !item.ReservedUntil.After(cutoff) {
			delete(m.st().items, key)
			n++
		}
	}
	return n, nil
}

func (m *memStore) EnrollmentExists(ctx context.Context, studentID, sectionID string) (bool, error) {
	_, ok := m.st().enrollments[studentID+"|"+sectionID]
	return ok, nil
}

func (m *memStore) CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) (bool, error) {
	key := enrollment.StudentID + "|" + enrollment.SectionID
	if _, ok := m.st().enrollments[key]; ok {
		return false, nil
	}
	enrollment.ID = m.db.nextID("enr")
	m.st().enrollments[key] = *enrollment
	return true, nil
}

func (m *memStore) ListStudentEnrollments(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	var out []models.Enrollment
	for _, e := range m.st().enrollments {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SectionID < out[j].SectionID })
	return out, nil
}

func (m *memStore) CreateAttempt(ctx context.Context, attempt *models.EnrollmentAttempt) error {
	if m.db.failCreateAttempt != nil {
		return m.db.failCreateAttempt
	}
	attempt.ID = m.db.nextID("att")
	m.st().attempts = append(m.st().attempts, *attempt)
	return nil
}

func (m *memStore) CreatePaymentOrder(ctx context.Context, order *models.PaymentOrder) error {
	order.ID = m.db.nextID("pay")
	m.st().payments = append(m.st().payments, *order)
	return nil
}

func (m *memStore) Savepoint(ctx context.Context, name string, fn func() error) error {
	snapshot := m.db.state.clone()
	if err := fn(); err != nil {
		m.db.state = snapshot
		return err
	}
	return nil
}

// recordingAttemptRepo captures attempts written by the failure queue.
type recordingAttemptRepo struct {
	mu       sync.Mutex
	attempts []models.EnrollmentAttempt
	list     []models.EnrollmentAttempt
	total    int
	filter   models.EnrollmentAttemptFilter
}

func (r *recordingAttemptRepo) CreateAttempt(ctx context.Context, attempt *models.EnrollmentAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, *attempt)
	return nil
}

func (r *recordingAttemptRepo) ListAttempts(ctx context.Context, filter models.EnrollmentAttemptFilter) ([]models.EnrollmentAttempt, int, error) {
	r.filter = filter
	return r.list, r.total, nil
}

func (r *recordingAttemptRepo) recorded() []models.EnrollmentAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.EnrollmentAttempt(nil), r.attempts...)
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
