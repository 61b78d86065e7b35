package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/civicwatch/civicwatch/internal/domain/model"
	"github.com/civicwatch/civicwatch/internal/repository"
)

// memStore — хранилище в памяти с семантикой транзакций для unit-тестов
// сервисного слоя. Транзакции выполняются строго по одной (txMu), ошибка
// fn откатывает данные к снимку, сделанному при начале транзакции.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data memData

	// calls — количество обращений к репозиториям
	calls atomic.Int64
	// failOn — ошибка, возвращаемая операцией с указанным именем
	failOn map[string]error
	// txHook вызывается внутри транзакции перед выполнением fn
	txHook func()
}

type memData struct {
	panels     map[string]model.Panel
	checks     map[string]model.CheckSubmission
	accounts   map[string]int64
	entries    []model.LedgerEntry
	rewards    map[string]model.Reward
	claims     []model.RewardClaim
	props      map[model.Location]model.MelProperty
	signs      map[int64]model.MelSign
	nextSignID int64
	signTypes  map[string]bool
	reports    map[memReportKey]model.MelReport
	overrides  map[string]model.RoleOverride
	seq        int64
}

func newMemStore() *memStore {
	return &memStore{
		data: memData{
			panels:    map[string]model.Panel{},
			checks:    map[string]model.CheckSubmission{},
			accounts:  map[string]int64{},
			rewards:   map[string]model.Reward{},
			props:     map[model.Location]model.MelProperty{},
			signs:     map[int64]model.MelSign{},
			signTypes: map[string]bool{},
			reports:   map[memReportKey]model.MelReport{},
			overrides: map[string]model.RoleOverride{},
		},
		failOn: map[string]error{},
	}
}

func (d memData) clone() memData {
	c := d
	c.panels = cloneMap(d.panels)
	c.checks = cloneMap(d.checks)
	c.accounts = cloneMap(d.accounts)
	c.entries = append([]model.LedgerEntry(nil), d.entries...)
	c.rewards = cloneMap(d.rewards)
	c.claims = append([]model.RewardClaim(nil), d.claims...)
	c.props = cloneMap(d.props)
	c.signs = cloneMap(d.signs)
	c.signTypes = cloneMap(d.signTypes)
	c.reports = cloneMap(d.reports)
	c.overrides = cloneMap(d.overrides)
	return c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// repos возвращает набор репозиториев вне транзакции (autocommit).
func (s *memStore) repos() repository.Repositories {
	return s.view(false)
}

func (s *memStore) view(inTx bool) repository.Repositories {
	v := memView{s: s, inTx: inTx}
	return repository.Repositories{
		Panels:        memPanels{v},
		Checks:        memChecks{v},
		Ledger:        memLedger{v},
		Rewards:       memRewards{v},
		MelProperties: memProps{v},
		MelSigns:      memSigns{v},
		MelSignTypes:  memSignTypes{v},
		MelReports:    memReports{v},
		RoleOverrides: memOverrides{v},
	}
}

// InTx реализует Transactor.
func (s *memStore) InTx(_ context.Context, fn func(repos repository.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if s.txHook != nil {
		s.txHook()
	}

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(s.view(true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// --- Вспомогательные методы для тестов ---

func (s *memStore) addPanel(name string, lastCheckedAt *time.Time) model.Panel {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	p := model.Panel{
		ID: uuid.New().String(), Name: name, Latitude: 50.63, Longitude: 3.06,
		LastCheckedAt: lastCheckedAt, CreatedAt: now, UpdatedAt: now,
	}
	s.data.panels[p.ID] = p
	return p
}

func (s *memStore) addReward(name string, points int) model.Reward {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := model.Reward{ID: uuid.New().String(), Name: name, ValueEUR: float64(points) / 100, PointsRequired: points}
	s.data.rewards[r.ID] = r
	return r
}

func (s *memStore) addSignTypes(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range names {
		s.data.signTypes[n] = true
	}
}

func (s *memStore) property(loc model.Location) model.MelProperty {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.props[loc]
}

func (s *memStore) panel(id string) model.Panel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.panels[id]
}

func (s *memStore) check(id string) model.CheckSubmission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.checks[id]
}

func (s *memStore) balance(userID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.accounts[userID]
}

func (s *memStore) entriesOf(userID string) []model.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.LedgerEntry
	for _, e := range s.data.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

func (s *memStore) entriesSum(userID string) int64 {
	var sum int64
	for _, e := range s.entriesOf(userID) {
		sum += int64(e.Amount)
	}
	return sum
}

// --- memView ---

type memView struct {
	s    *memStore
	inTx bool
}

// begin захватывает хранилище на время одной операции.
// Вне транзакции операция ждёт завершения текущей транзакции.
func (v memView) begin(op string) (func(), error) {
	if !v.inTx {
		v.s.txMu.Lock()
	}
	v.s.mu.Lock()
	v.s.calls.Add(1)
	release := func() {
		v.s.mu.Unlock()
		if !v.inTx {
			v.s.txMu.Unlock()
		}
	}
	if err := v.s.failOn[op]; err != nil {
		release()
		return nil, err
	}
	return release, nil
}

func (v memView) d() *memData {
	return &v.s.data
}

func (v memView) nextTime() time.Time {
	v.s.data.seq++
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(v.s.data.seq) * time.Second)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// --- PanelRepository ---

type memPanels struct{ memView }

func (r memPanels) Create(_ context.Context, p *model.Panel) error {
	release, err := r.begin("Panels.Create")
	if err != nil {
		return err
	}
	defer release()
	if _, ok := r.d().panels[p.ID]; ok {
		return repository.ErrConflict
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	r.d().panels[p.ID] = *p
	return nil
}

func (r memPanels) GetByID(_ context.Context, id string) (*model.Panel, error) {
	release, err := r.begin("Panels.GetByID")
	if err != nil {
		return nil, err
	}
	defer release()
	p, ok := r.d().panels[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r memPanels) GetForUpdate(ctx context.Context, id string) (*model.Panel, error) {
	return r.GetByID(ctx, id)
}

func (r memPanels) List(_ context.Context, limit, offset int) ([]*model.Panel, error) {
	release, err := r.begin("Panels.List")
	if err != nil {
		return nil, err
	}
	defer release()
	var all []*model.Panel
	for _, p := range r.d().panels {
		all = append(all, &p)
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		switch {
		case a.LastCheckedAt == nil && b.LastCheckedAt != nil:
			return true
		case a.LastCheckedAt != nil && b.LastCheckedAt == nil:
			return false
		case a.LastCheckedAt != nil && !a.LastCheckedAt.Equal(*b.LastCheckedAt):
			return a.LastCheckedAt.Before(*b.LastCheckedAt)
		}
		return a.Name < b.Name
	})
	return page(all, limit, offset), nil
}

func (r memPanels) Count(_ context.Context) (int, error) {
	release, err := r.begin("Panels.Count")
	if err != nil {
		return 0, err
	}
	defer release()
	return len(r.d().panels), nil
}

func (r memPanels) Update(_ context.Context, p *model.Panel) error {
	release, err := r.begin("Panels.Update")
	if err != nil {
		return err
	}
	defer release()
	cur, ok := r.d().panels[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Name, cur.Latitude, cur.Longitude = p.Name, p.Latitude, p.Longitude
	cur.UpdatedAt = time.Now().UTC()
	p.UpdatedAt = cur.UpdatedAt
	r.d().panels[p.ID] = cur
	return nil
}

func (r memPanels) TouchFreshness(_ context.Context, id string, at time.Time) (*model.Panel, error) {
	release, err := r.begin("Panels.TouchFreshness")
	if err != nil {
		return nil, err
	}
	defer release()
	p, ok := r.d().panels[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t := at
	p.LastCheckedAt = &t
	p.UpdatedAt = at
	r.d().panels[id] = p
	return &p, nil
}

func (r memPanels) Delete(_ context.Context, id string) error {
	release, err := r.begin("Panels.Delete")
	if err != nil {
		return err
	}
	defer release()
	if _, ok := r.d().panels[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.d().panels, id)
	for cid, c := range r.d().checks {
		if c.PanelID == id {
			delete(r.d().checks, cid)
		}
	}
	return nil
}

// --- CheckRepository ---

type memChecks struct{ memView }

func (r memChecks) Create(_ context.Context, c *model.CheckSubmission) error {
	release, err := r.begin("Checks.Create")
	if err != nil {
		return err
	}
	defer release()
	if _, ok := r.d().panels[c.PanelID]; !ok {
		return repository.ErrNotFound
	}
	c.Status = model.CheckStatusPending
	r.d().checks[c.ID] = *c
	return nil
}

func (r memChecks) GetByID(_ context.Context, id string) (*model.CheckSubmission, error) {
	release, err := r.begin("Checks.GetByID")
	if err != nil {
		return nil, err
	}
	defer release()
	c, ok := r.d().checks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r memChecks) GetPendingForValidation(_ context.Context, id string) (*model.CheckForValidation, error) {
	release, err := r.begin("Checks.GetPendingForValidation")
	if err != nil {
		return nil, err
	}
	defer release()
	c, ok := r.d().checks[id]
	if !ok || c.Status != model.CheckStatusPending {
		return nil, repository.ErrNotFound
	}
	p := r.d().panels[c.PanelID]
	return &model.CheckForValidation{CheckSubmission: c, PanelLastCheckedAt: p.LastCheckedAt}, nil
}

func (r memChecks) MarkValidated(_ context.Context, id string, points int, validatedAt time.Time, validatedBy string) error {
	release, err := r.begin("Checks.MarkValidated")
	if err != nil {
		return err
	}
	defer release()
	c, ok := r.d().checks[id]
	if !ok || c.Status != model.CheckStatusPending {
		return repository.ErrNotFound
	}
	c.Status = model.CheckStatusValidated
	if c.PointsAttributed == nil {
		pts := points
		c.PointsAttributed = &pts
	}
	at, by := validatedAt, validatedBy
	c.ValidatedAt, c.ValidatedBy = &at, &by
	r.d().checks[id] = c
	return nil
}

func (r memChecks) pending(filter func(model.CheckSubmission) bool) []*model.PendingCheck {
	var out []*model.PendingCheck
	for _, c := range r.d().checks {
		if c.Status != model.CheckStatusPending || !filter(c) {
			continue
		}
		out = append(out, &model.PendingCheck{CheckSubmission: c, PanelName: r.d().panels[c.PanelID].Name})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CheckedAt.Equal(out[j].CheckedAt) {
			return out[i].CheckedAt.Before(out[j].CheckedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r memChecks) ListPending(_ context.Context, limit, offset int) ([]*model.PendingCheck, error) {
	release, err := r.begin("Checks.ListPending")
	if err != nil {
		return nil, err
	}
	defer release()
	return page(r.pending(func(model.CheckSubmission) bool { return true }), limit, offset), nil
}

func (r memChecks) CountPending(_ context.Context) (int, error) {
	release, err := r.begin("Checks.CountPending")
	if err != nil {
		return 0, err
	}
	defer release()
	return len(r.pending(func(model.CheckSubmission) bool { return true })), nil
}

func (r memChecks) ListPendingByUser(_ context.Context, userID string) ([]*model.PendingCheck, error) {
	release, err := r.begin("Checks.ListPendingByUser")
	if err != nil {
		return nil, err
	}
	defer release()
	return r.pending(func(c model.CheckSubmission) bool { return c.UserID == userID }), nil
}

func (r memChecks) CountPendingByPanel(_ context.Context, panelID string) (int, error) {
	release, err := r.begin("Checks.CountPendingByPanel")
	if err != nil {
		return 0, err
	}
	defer release()
	return len(r.pending(func(c model.CheckSubmission) bool { return c.PanelID == panelID })), nil
}

// --- LedgerRepository ---

type memLedger struct{ memView }

func (r memLedger) appendEntry(userID string, amount int, reason string, ref *string) (*model.LedgerEntry, error) {
	if reason == model.ReasonCheckValidated && ref != nil {
		for _, e := range r.d().entries {
			if e.Reason == reason && e.ReferenceID != nil && *e.ReferenceID == *ref {
				return nil, repository.ErrConflict
			}
		}
	}
	var refCopy *string
	if ref != nil {
		v := *ref
		refCopy = &v
	}
	e := model.LedgerEntry{
		ID: uuid.New().String(), UserID: userID, Amount: amount,
		Reason: reason, ReferenceID: refCopy, CreatedAt: r.nextTime(),
	}
	r.d().entries = append(r.d().entries, e)
	return &e, nil
}

func (r memLedger) Credit(_ context.Context, userID string, amount int, reason string, ref *string) (*model.LedgerEntry, error) {
	release, err := r.begin("Ledger.Credit")
	if err != nil {
		return nil, err
	}
	defer release()
	e, err := r.appendEntry(userID, amount, reason, ref)
	if err != nil {
		return nil, err
	}
	r.d().accounts[userID] += int64(amount)
	return e, nil
}

func (r memLedger) Debit(_ context.Context, userID string, amount int, reason string, ref *string) (*model.LedgerEntry, error) {
	release, err := r.begin("Ledger.Debit")
	if err != nil {
		return nil, err
	}
	defer release()
	if r.d().accounts[userID] < int64(amount) {
		return nil, repository.ErrInsufficientBalance
	}
	e, err := r.appendEntry(userID, -amount, reason, ref)
	if err != nil {
		return nil, err
	}
	r.d().accounts[userID] -= int64(amount)
	return e, nil
}

func (r memLedger) Balance(_ context.Context, userID string) (int64, error) {
	release, err := r.begin("Ledger.Balance")
	if err != nil {
		return 0, err
	}
	defer release()
	return r.d().accounts[userID], nil
}

func (r memLedger) History(_ context.Context, userID string, limit, offset int) ([]*model.LedgerEntry, error) {
	release, err := r.begin("Ledger.History")
	if err != nil {
		return nil, err
	}
	defer release()
	var out []*model.LedgerEntry
	for i := len(r.d().entries) - 1; i >= 0; i-- {
		if e := r.d().entries[i]; e.UserID == userID {
			out = append(out, &e)
		}
	}
	return page(out, limit, offset), nil
}

// --- RewardRepository ---

type memRewards struct{ memView }

func (r memRewards) List(_ context.Context) ([]*model.Reward, error) {
	release, err := r.begin("Rewards.List")
	if err != nil {
		return nil, err
	}
	defer release()
	var out []*model.Reward
	for _, rw := range r.d().rewards {
		out = append(out, &rw)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PointsRequired < out[j].PointsRequired })
	return out, nil
}

func (r memRewards) GetByID(_ context.Context, id string) (*model.Reward, error) {
	release, err := r.begin("Rewards.GetByID")
	if err != nil {
		return nil, err
	}
	defer release()
	rw, ok := r.d().rewards[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rw, nil
}

func (r memRewards) CreateClaim(_ context.Context, claim *model.RewardClaim) error {
	release, err := r.begin("Rewards.CreateClaim")
	if err != nil {
		return err
	}
	defer release()
	if _, ok := r.d().rewards[claim.RewardID]; !ok {
		return repository.ErrNotFound
	}
	claim.ClaimedAt = r.nextTime()
	r.d().claims = append(r.d().claims, *claim)
	return nil
}

func (r memRewards) ListClaims(_ context.Context, userID string, limit, offset int) ([]*model.RewardClaim, error) {
	release, err := r.begin("Rewards.ListClaims")
	if err != nil {
		return nil, err
	}
	defer release()
	var out []*model.RewardClaim
	for i := len(r.d().claims) - 1; i >= 0; i-- {
		if c := r.d().claims[i]; c.UserID == userID {
			c.RewardName = r.d().rewards[c.RewardID].Name
			out = append(out, &c)
		}
	}
	return page(out, limit, offset), nil
}

// --- MelPropertyRepository ---

type memProps struct{ memView }

func (r memProps) Create(_ context.Context, p *model.MelProperty) error {
	release, err := r.begin("MelProperties.Create")
	if err != nil {
		return err
	}
	defer release()
	if _, ok := r.d().props[p.Location]; ok {
		return repository.ErrConflict
	}
	p.LastReport = r.nextTime()
	r.d().props[p.Location] = *p
	return nil
}

func (r memProps) Get(_ context.Context, loc model.Location) (*model.MelProperty, error) {
	release, err := r.begin("MelProperties.Get")
	if err != nil {
		return nil, err
	}
	defer release()
	p, ok := r.d().props[loc]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r memProps) List(_ context.Context, limit, offset int) ([]*model.MelProperty, error) {
	release, err := r.begin("MelProperties.List")
	if err != nil {
		return nil, err
	}
	defer release()
	var out []*model.MelProperty
	for _, p := range r.d().props {
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastReport.After(out[j].LastReport) })
	return page(out, limit, offset), nil
}

func (r memProps) Update(_ context.Context, p *model.MelProperty) error {
	release, err := r.begin("MelProperties.Update")
	if err != nil {
		return err
	}
	defer release()
	if _, ok := r.d().props[p.Location]; !ok {
		return repository.ErrNotFound
	}
	p.LastReport = r.nextTime()
	r.d().props[p.Location] = *p
	return nil
}

func (r memProps) TouchReport(_ context.Context, loc model.Location) (time.Time, error) {
	release, err := r.begin("MelProperties.TouchReport")
	if err != nil {
		return time.Time{}, err
	}
	defer release()
	p, ok := r.d().props[loc]
	if !ok {
		return time.Time{}, repository.ErrNotFound
	}
	p.LastReport = r.nextTime()
	r.d().props[loc] = p
	return p.LastReport, nil
}

func (r memProps) Delete(_ context.Context, loc model.Location) error {
	release, err := r.begin("MelProperties.Delete")
	if err != nil {
		return err
	}
	defer release()
	if _, ok := r.d().props[loc]; !ok {
		return repository.ErrNotFound
	}
	delete(r.d().props, loc)
	for id, s := range r.d().signs {
		if s.Location == loc {
			delete(r.d().signs, id)
		}
	}
	for k := range r.d().reports {
		if k.loc == loc {
			delete(r.d().reports, k)
		}
	}
	return nil
}

// --- MelSignRepository ---

type memSigns struct{ memView }

func (r memSigns) Create(_ context.Context, s *model.MelSign) error {
	release, err := r.begin("MelSigns.Create")
	if err != nil {
		return err
	}
	defer release()
	if _, ok := r.d().props[s.Location]; !ok {
		return repository.ErrNotFound
	}
	if !r.d().signTypes[s.SignType] {
		return repository.ErrUnknownSignType
	}
	r.d().nextSignID++
	s.ID = r.d().nextSignID
	r.d().signs[s.ID] = *s
	return nil
}

func (r memSigns) GetByID(_ context.Context, id int64) (*model.MelSign, error) {
	release, err := r.begin("MelSigns.GetByID")
	if err != nil {
		return nil, err
	}
	defer release()
	s, ok := r.d().signs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r memSigns) List(_ context.Context, loc *model.Location, limit, offset int) ([]*model.MelSign, error) {
	release, err := r.begin("MelSigns.List")
	if err != nil {
		return nil, err
	}
	defer release()
	var out []*model.MelSign
	for _, s := range r.d().signs {
		if loc == nil || s.Location == *loc {
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, limit, offset), nil
}

func (r memSigns) Update(_ context.Context, s *model.MelSign) error {
	release, err := r.begin("MelSigns.Update")
	if err != nil {
		return err
	}
	defer release()
	cur, ok := r.d().signs[s.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if !r.d().signTypes[s.SignType] {
		return repository.ErrUnknownSignType
	}
	s.Location = cur.Location
	r.d().signs[s.ID] = *s
	return nil
}

func (r memSigns) Delete(_ context.Context, id int64) error {
	release, err := r.begin("MelSigns.Delete")
	if err != nil {
		return err
	}
	defer release()
	if _, ok := r.d().signs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.d().signs, id)
	return nil
}

// --- MelSignTypeRepository ---

type memSignTypes struct{ memView }

func (r memSignTypes) List(_ context.Context) ([]*model.MelSignType, error) {
	release, err := r.begin("MelSignTypes.List")
	if err != nil {
		return nil, err
	}
	defer release()
	var out []*model.MelSignType
	for n := range r.d().signTypes {
		out = append(out, &model.MelSignType{Name: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memSignTypes) Create(_ context.Context, t *model.MelSignType) error {
	release, err := r.begin("MelSignTypes.Create")
	if err != nil {
		return err
	}
	defer release()
	if r.d().signTypes[t.Name] {
		return repository.ErrConflict
	}
	r.d().signTypes[t.Name] = true
	return nil
}

func (r memSignTypes) Delete(_ context.Context, name string) error {
	release, err := r.begin("MelSignTypes.Delete")
	if err != nil {
		return err
	}
	defer release()
	if !r.d().signTypes[name] {
		return repository.ErrNotFound
	}
	for _, s := range r.d().signs {
		if s.SignType == name {
			return repository.ErrConflict
		}
	}
	delete(r.d().signTypes, name)
	return nil
}

// --- MelReportRepository ---

type memReportKey struct {
	userID string
	loc    model.Location
}

type memReports struct{ memView }

func (r memReports) Upsert(_ context.Context, rep *model.MelReport) error {
	release, err := r.begin("MelReports.Upsert")
	if err != nil {
		return err
	}
	defer release()
	if _, ok := r.d().props[rep.Location]; !ok {
		return repository.ErrNotFound
	}
	rep.ReportedAt = r.nextTime()
	r.d().reports[memReportKey{userID: rep.UserID, loc: rep.Location}] = *rep
	return nil
}

func (r memReports) ListByUser(_ context.Context, userID string, limit, offset int) ([]*model.MelReport, error) {
	release, err := r.begin("MelReports.ListByUser")
	if err != nil {
		return nil, err
	}
	defer release()
	return page(r.sorted(userID), limit, offset), nil
}

func (r memReports) List(_ context.Context, limit, offset int) ([]*model.MelReport, error) {
	release, err := r.begin("MelReports.List")
	if err != nil {
		return nil, err
	}
	defer release()
	return page(r.sorted(""), limit, offset), nil
}

// sorted возвращает отметки (все при userID == ""), свежие первыми.
func (r memReports) sorted(userID string) []*model.MelReport {
	var out []*model.MelReport
	for _, rep := range r.d().reports {
		if userID == "" || rep.UserID == userID {
			out = append(out, &rep)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReportedAt.After(out[j].ReportedAt) })
	return out
}

// --- RoleOverrideRepository ---

type memOverrides struct{ memView }

func (r memOverrides) Upsert(_ context.Context, ro *model.RoleOverride) error {
	release, err := r.begin("RoleOverrides.Upsert")
	if err != nil {
		return err
	}
	defer release()
	now := r.nextTime()
	if cur, ok := r.d().overrides[ro.UserID]; ok {
		ro.ID, ro.CreatedAt = cur.ID, cur.CreatedAt
	} else {
		ro.ID, ro.CreatedAt = uuid.New().String(), now
	}
	ro.UpdatedAt = now
	r.d().overrides[ro.UserID] = *ro
	return nil
}

func (r memOverrides) GetByUserID(_ context.Context, userID string) (*model.RoleOverride, error) {
	release, err := r.begin("RoleOverrides.GetByUserID")
	if err != nil {
		return nil, err
	}
	defer release()
	ro, ok := r.d().overrides[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &ro, nil
}

func (r memOverrides) UpdateUsername(_ context.Context, userID, username string) error {
	release, err := r.begin("RoleOverrides.UpdateUsername")
	if err != nil {
		return err
	}
	defer release()
	if ro, ok := r.d().overrides[userID]; ok {
		ro.Username = username
		r.d().overrides[userID] = ro
	}
	return nil
}

func (r memOverrides) Delete(_ context.Context, userID string) error {
	release, err := r.begin("RoleOverrides.Delete")
	if err != nil {
		return err
	}
	defer release()
	if _, ok := r.d().overrides[userID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.d().overrides, userID)
	return nil
}

func (r memOverrides) List(_ context.Context, limit, offset int) ([]*model.RoleOverride, error) {
	release, err := r.begin("RoleOverrides.List")
	if err != nil {
		return nil, err
	}
	defer release()
	var out []*model.RoleOverride
	for _, ro := range r.d().overrides {
		out = append(out, &ro)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return page(out, limit, offset), nil
}

func (r memOverrides) Count(_ context.Context) (int, error) {
	release, err := r.begin("RoleOverrides.Count")
	if err != nil {
		return 0, err
	}
	defer release()
	return len(r.d().overrides), nil
}

// --- Общие помощники тестов ---

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeClock — управляемое время для тестов.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) String() string {
	return fmt.Sprintf("fakeClock(%s)", c.Now())
}
