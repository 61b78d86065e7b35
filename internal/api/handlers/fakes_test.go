package handlers

import (
	"context"

	"github.com/civicwatch/civicwatch/internal/domain/model"
	"github.com/civicwatch/civicwatch/internal/domain/rbac"
	"github.com/civicwatch/civicwatch/internal/service"
)

type fakePanels struct {
	list   func(ctx context.Context, limit, offset int) ([]*model.Panel, int, error)
	get    func(ctx context.Context, id string) (*model.Panel, error)
	create func(ctx context.Context, actor rbac.Subject, in service.PanelInput) (*model.Panel, error)
	update func(ctx context.Context, actor rbac.Subject, id string, patch model.PanelPatch) (*model.Panel, error)
	delete func(ctx context.Context, actor rbac.Subject, id string) error
}

func (f *fakePanels) List(ctx context.Context, limit, offset int) ([]*model.Panel, int, error) {
	return f.list(ctx, limit, offset)
}

func (f *fakePanels) Get(ctx context.Context, id string) (*model.Panel, error) {
	return f.get(ctx, id)
}

func (f *fakePanels) Create(ctx context.Context, actor rbac.Subject, in service.PanelInput) (*model.Panel, error) {
	return f.create(ctx, actor, in)
}

func (f *fakePanels) Update(ctx context.Context, actor rbac.Subject, id string, patch model.PanelPatch) (*model.Panel, error) {
	return f.update(ctx, actor, id, patch)
}

func (f *fakePanels) Delete(ctx context.Context, actor rbac.Subject, id string) error {
	return f.delete(ctx, actor, id)
}

type fakeChecks struct {
	submit        func(ctx context.Context, actor rbac.Subject, in service.SubmitInput) (*model.CheckSubmission, error)
	listMyPending func(ctx context.Context, actor rbac.Subject) ([]*model.PendingCheck, error)
	listPending   func(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.PendingCheck, int, error)
	validate      func(ctx context.Context, actor rbac.Subject, checkID string) (*model.Panel, error)
}

func (f *fakeChecks) Submit(ctx context.Context, actor rbac.Subject, in service.SubmitInput) (*model.CheckSubmission, error) {
	return f.submit(ctx, actor, in)
}

func (f *fakeChecks) ListMyPending(ctx context.Context, actor rbac.Subject) ([]*model.PendingCheck, error) {
	return f.listMyPending(ctx, actor)
}

func (f *fakeChecks) ListPending(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.PendingCheck, int, error) {
	return f.listPending(ctx, actor, limit, offset)
}

func (f *fakeChecks) Validate(ctx context.Context, actor rbac.Subject, checkID string) (*model.Panel, error) {
	return f.validate(ctx, actor, checkID)
}

type fakeLedger struct {
	balance func(ctx context.Context, actor rbac.Subject) (int64, error)
	history func(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.LedgerEntry, error)
}

func (f *fakeLedger) Balance(ctx context.Context, actor rbac.Subject) (int64, error) {
	return f.balance(ctx, actor)
}

func (f *fakeLedger) History(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.LedgerEntry, error) {
	return f.history(ctx, actor, limit, offset)
}

type fakeRewards struct {
	catalog  func(ctx context.Context) ([]*model.Reward, error)
	claim    func(ctx context.Context, actor rbac.Subject, rewardID string) (*model.RewardClaim, error)
	myClaims func(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.RewardClaim, error)
}

func (f *fakeRewards) Catalog(ctx context.Context) ([]*model.Reward, error) {
	return f.catalog(ctx)
}

func (f *fakeRewards) Claim(ctx context.Context, actor rbac.Subject, rewardID string) (*model.RewardClaim, error) {
	return f.claim(ctx, actor, rewardID)
}

func (f *fakeRewards) MyClaims(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.RewardClaim, error) {
	return f.myClaims(ctx, actor, limit, offset)
}

type fakeMel struct {
	listProperties func(ctx context.Context, limit, offset int) ([]*model.MelProperty, error)
	getProperty    func(ctx context.Context, loc model.Location) (*model.MelProperty, error)
	createProperty func(ctx context.Context, actor rbac.Subject, p *model.MelProperty) error
	updateProperty func(ctx context.Context, actor rbac.Subject, loc model.Location, patch model.MelPropertyPatch) (*model.MelProperty, error)
	deleteProperty func(ctx context.Context, actor rbac.Subject, loc model.Location) error
	listSigns      func(ctx context.Context, loc *model.Location, limit, offset int) ([]*model.MelSign, error)
	createSign     func(ctx context.Context, actor rbac.Subject, sign *model.MelSign) error
	updateSign     func(ctx context.Context, actor rbac.Subject, id int64, patch model.MelSignPatch) (*model.MelSign, error)
	getSign        func(ctx context.Context, id int64) (*model.MelSign, error)
	deleteSign     func(ctx context.Context, actor rbac.Subject, id int64) error
	listSignTypes  func(ctx context.Context) ([]*model.MelSignType, error)
	createSignType func(ctx context.Context, actor rbac.Subject, name string) (*model.MelSignType, error)
	deleteSignType func(ctx context.Context, actor rbac.Subject, name string) error
	report         func(ctx context.Context, actor rbac.Subject, loc model.Location) (*model.MelReport, error)
	listMyReports  func(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.MelReport, error)
	listReports    func(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.MelReport, error)
}

func (f *fakeMel) ListProperties(ctx context.Context, limit, offset int) ([]*model.MelProperty, error) {
	return f.listProperties(ctx, limit, offset)
}

func (f *fakeMel) GetProperty(ctx context.Context, loc model.Location) (*model.MelProperty, error) {
	return f.getProperty(ctx, loc)
}

func (f *fakeMel) CreateProperty(ctx context.Context, actor rbac.Subject, p *model.MelProperty) error {
	return f.createProperty(ctx, actor, p)
}

func (f *fakeMel) UpdateProperty(ctx context.Context, actor rbac.Subject, loc model.Location, patch model.MelPropertyPatch) (*model.MelProperty, error) {
	return f.updateProperty(ctx, actor, loc, patch)
}

func (f *fakeMel) DeleteProperty(ctx context.Context, actor rbac.Subject, loc model.Location) error {
	return f.deleteProperty(ctx, actor, loc)
}

func (f *fakeMel) ListSigns(ctx context.Context, loc *model.Location, limit, offset int) ([]*model.MelSign, error) {
	return f.listSigns(ctx, loc, limit, offset)
}

func (f *fakeMel) CreateSign(ctx context.Context, actor rbac.Subject, sign *model.MelSign) error {
	return f.createSign(ctx, actor, sign)
}

func (f *fakeMel) UpdateSign(ctx context.Context, actor rbac.Subject, id int64, patch model.MelSignPatch) (*model.MelSign, error) {
	return f.updateSign(ctx, actor, id, patch)
}

func (f *fakeMel) GetSign(ctx context.Context, id int64) (*model.MelSign, error) {
	return f.getSign(ctx, id)
}

func (f *fakeMel) DeleteSign(ctx context.Context, actor rbac.Subject, id int64) error {
	return f.deleteSign(ctx, actor, id)
}

func (f *fakeMel) ListSignTypes(ctx context.Context) ([]*model.MelSignType, error) {
	return f.listSignTypes(ctx)
}

func (f *fakeMel) CreateSignType(ctx context.Context, actor rbac.Subject, name string) (*model.MelSignType, error) {
	return f.createSignType(ctx, actor, name)
}

func (f *fakeMel) DeleteSignType(ctx context.Context, actor rbac.Subject, name string) error {
	return f.deleteSignType(ctx, actor, name)
}

func (f *fakeMel) Report(ctx context.Context, actor rbac.Subject, loc model.Location) (*model.MelReport, error) {
	return f.report(ctx, actor, loc)
}

func (f *fakeMel) ListMyReports(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.MelReport, error) {
	return f.listMyReports(ctx, actor, limit, offset)
}

func (f *fakeMel) ListReports(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.MelReport, error) {
	return f.listReports(ctx, actor, limit, offset)
}

type fakeRoleOverrides struct {
	list   func(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.RoleOverride, int, error)
	set    func(ctx context.Context, actor rbac.Subject, userID, username, role string) (*model.RoleOverride, error)
	delete func(ctx context.Context, actor rbac.Subject, userID string) error
}

func (f *fakeRoleOverrides) List(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.RoleOverride, int, error) {
	return f.list(ctx, actor, limit, offset)
}

func (f *fakeRoleOverrides) Set(ctx context.Context, actor rbac.Subject, userID, username, role string) (*model.RoleOverride, error) {
	return f.set(ctx, actor, userID, username, role)
}

func (f *fakeRoleOverrides) Delete(ctx context.Context, actor rbac.Subject, userID string) error {
	return f.delete(ctx, actor, userID)
}

// fakeChecker — ReadinessChecker с фиксированным ответом.
type fakeChecker struct {
	status, message string
}

func (c fakeChecker) CheckReady() (string, string) {
	return c.status, c.message
}
