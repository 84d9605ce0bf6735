package movement

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"stokado/internal/core/actor"
	"stokado/internal/core/apperror"
	"stokado/internal/core/id"
	"stokado/internal/core/sequence"
	"stokado/internal/core/types"
	"stokado/internal/domain/audit"
	"stokado/internal/domain/catalog"
	"stokado/internal/domain/event"
	"stokado/internal/domain/lot"
	"stokado/internal/domain/stock"
)

// --- fakes ---

type fakeTxManager struct {
	depth int
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.depth++
	defer func() { m.depth-- }()
	return fn(ctx)
}

type fakeNumbers struct {
	txm     *fakeTxManager
	counter int64
	// lastCallInTx records whether the latest Next ran inside a transaction
	lastCallInTx bool
}

func (f *fakeNumbers) Next(ctx context.Context, cfg sequence.Config, opts *sequence.Options, period time.Time) (string, error) {
	if f.txm != nil {
		f.lastCallInTx = f.txm.depth > 0
	}
	f.counter++
	return cfg.Format(period, f.counter), nil
}

func (f *fakeNumbers) SetNext(ctx context.Context, cfg sequence.Config, period time.Time, value int64) error {
	f.counter = value - 1
	return nil
}

type fakeCatalog struct {
	products  map[id.ID]*catalog.Product
	variants  map[id.ID]*catalog.Variant
	locations map[id.ID]*catalog.Location
	lastCosts map[id.ID]types.Money
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products:  map[id.ID]*catalog.Product{},
		variants:  map[id.ID]*catalog.Variant{},
		locations: map[id.ID]*catalog.Location{},
		lastCosts: map[id.ID]types.Money{},
	}
}

func (f *fakeCatalog) addProduct(lotTracked bool) *catalog.Product {
	p := catalog.NewProduct(fmt.Sprintf("SKU-%d", len(f.products)+1), "product", "pcs")
	p.LotTracked = lotTracked
	f.products[p.ID] = p
	return p
}

func (f *fakeCatalog) addLocation() *catalog.Location {
	l := catalog.NewLocation(fmt.Sprintf("LOC-%d", len(f.locations)+1), "location")
	f.locations[l.ID] = l
	return l
}

func (f *fakeCatalog) GetProduct(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	p, ok := f.products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID)
	}
	return p, nil
}

func (f *fakeCatalog) GetVariant(ctx context.Context, variantID id.ID) (*catalog.Variant, error) {
	v, ok := f.variants[variantID]
	if !ok {
		return nil, apperror.NewNotFound("variant", variantID)
	}
	return v, nil
}

func (f *fakeCatalog) GetLocation(ctx context.Context, locationID id.ID) (*catalog.Location, error) {
	l, ok := f.locations[locationID]
	if !ok {
		return nil, apperror.NewNotFound("location", locationID)
	}
	return l, nil
}

func (f *fakeCatalog) UpdateLastCost(ctx context.Context, productID, variantID id.ID, cost types.Money) error {
	if !id.IsNil(variantID) {
		f.lastCosts[variantID] = cost
		return nil
	}
	f.lastCosts[productID] = cost
	return nil
}

type fakeMovementRepo struct {
	movements  map[id.ID]*StockMovement
	returns    map[id.ID]types.Quantity
	failCreate error
}

func newFakeMovementRepo() *fakeMovementRepo {
	return &fakeMovementRepo{
		movements: map[id.ID]*StockMovement{},
		returns:   map[id.ID]types.Quantity{},
	}
}

func (r *fakeMovementRepo) Create(ctx context.Context, m *StockMovement) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	r.movements[m.ID] = m
	return nil
}

func (r *fakeMovementRepo) Update(ctx context.Context, m *StockMovement) error {
	if _, ok := r.movements[m.ID]; !ok {
		return apperror.NewNotFound("movement", m.ID)
	}
	r.movements[m.ID] = m
	return nil
}

func (r *fakeMovementRepo) ReplaceLines(ctx context.Context, movementID id.ID, lines []MovementLine) error {
	m, ok := r.movements[movementID]
	if !ok {
		return apperror.NewNotFound("movement", movementID)
	}
	m.Lines = lines
	return nil
}

// cloneMovement detaches reads from the stored document the way a real
// repository does; a failed transaction leaves the store untouched.
func cloneMovement(m *StockMovement) *StockMovement {
	c := *m
	c.Lines = append([]MovementLine(nil), m.Lines...)
	return &c
}

func (r *fakeMovementRepo) GetByID(ctx context.Context, movementID id.ID) (*StockMovement, error) {
	m, ok := r.movements[movementID]
	if !ok {
		return nil, apperror.NewNotFound("movement", movementID)
	}
	return cloneMovement(m), nil
}

func (r *fakeMovementRepo) GetForUpdate(ctx context.Context, movementID id.ID) (*StockMovement, error) {
	return r.GetByID(ctx, movementID)
}

func (r *fakeMovementRepo) GetLine(ctx context.Context, lineID id.ID) (*MovementLine, error) {
	for _, m := range r.movements {
		if _, ok := m.LineByID(lineID); ok {
			c, _ := cloneMovement(m).LineByID(lineID)
			return c, nil
		}
	}
	return nil, apperror.NewNotFound("movement line", lineID)
}

func (r *fakeMovementRepo) GetLineForUpdate(ctx context.Context, lineID id.ID) (*MovementLine, error) {
	return r.GetLine(ctx, lineID)
}

func (r *fakeMovementRepo) SumPostedReturns(ctx context.Context, sourceLineID id.ID) (types.Quantity, error) {
	return r.returns[sourceLineID], nil
}

func (r *fakeMovementRepo) List(ctx context.Context, filter ListFilter) ([]*StockMovement, error) {
	out := make([]*StockMovement, 0, len(r.movements))
	for _, m := range r.movements {
		out = append(out, m)
	}
	return out, nil
}

type fakeStockRepo struct {
	entries  []stock.Entry
	balances map[stock.BalanceKey]types.Quantity
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{balances: map[stock.BalanceKey]types.Quantity{}}
}

func (r *fakeStockRepo) CreateEntries(ctx context.Context, entries []stock.Entry) error {
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *fakeStockRepo) GetEntriesByRecorder(ctx context.Context, recorderID id.ID) ([]stock.Entry, error) {
	var out []stock.Entry
	for _, e := range r.entries {
		if e.RecorderID == recorderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeStockRepo) ApplyDelta(ctx context.Context, key stock.BalanceKey, delta types.Quantity, movedAt time.Time) error {
	r.balances[key] += delta
	return nil
}

func (r *fakeStockRepo) GetBalance(ctx context.Context, key stock.BalanceKey) (stock.Balance, error) {
	return stock.Balance{
		ProductID:  key.ProductID,
		VariantID:  key.VariantID,
		LocationID: key.LocationID,
		QtyOnHand:  r.balances[key],
	}, nil
}

func (r *fakeStockRepo) GetBalanceForUpdate(ctx context.Context, key stock.BalanceKey) (stock.Balance, error) {
	return r.GetBalance(ctx, key)
}

func (r *fakeStockRepo) GetBalancesByLocation(ctx context.Context, locationID id.ID, filter stock.BalanceFilter) ([]stock.Balance, error) {
	return nil, nil
}

func (r *fakeStockRepo) GetBalancesByProduct(ctx context.Context, productID id.ID) ([]stock.Balance, error) {
	return nil, nil
}

func (r *fakeStockRepo) GetBalanceAtDate(ctx context.Context, key stock.BalanceKey, date time.Time) (types.Quantity, error) {
	return r.balances[key], nil
}

func (r *fakeStockRepo) GetHistory(ctx context.Context, productID id.ID, filter stock.HistoryFilter) ([]stock.Entry, error) {
	return nil, nil
}

func (r *fakeStockRepo) GetTurnover(ctx context.Context, filter stock.TurnoverFilter) (stock.Turnover, error) {
	return stock.Turnover{}, nil
}

func (r *fakeStockRepo) RecalculateBalances(ctx context.Context, locationID, productID *id.ID) error {
	return nil
}

type fakeLotRepo struct {
	lots     map[id.ID]*lot.Lot
	balances map[string]types.Quantity
}

func newFakeLotRepo() *fakeLotRepo {
	return &fakeLotRepo{
		lots:     map[id.ID]*lot.Lot{},
		balances: map[string]types.Quantity{},
	}
}

func lotKey(lotID, locationID id.ID) string {
	return lotID.String() + "/" + locationID.String()
}

func (r *fakeLotRepo) Create(ctx context.Context, l *lot.Lot) error {
	r.lots[l.ID] = l
	return nil
}

func (r *fakeLotRepo) GetByID(ctx context.Context, lotID id.ID) (*lot.Lot, error) {
	l, ok := r.lots[lotID]
	if !ok {
		return nil, apperror.NewNotFound("lot", lotID)
	}
	return l, nil
}

func (r *fakeLotRepo) GetByNumber(ctx context.Context, productID id.ID, number string) (*lot.Lot, error) {
	for _, l := range r.lots {
		if l.ProductID == productID && l.Number == number {
			return l, nil
		}
	}
	return nil, apperror.NewNotFound("lot", number)
}

func (r *fakeLotRepo) ListByProduct(ctx context.Context, productID id.ID) ([]*lot.Lot, error) {
	var out []*lot.Lot
	for _, l := range r.lots {
		if l.ProductID == productID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeLotRepo) ApplyDelta(ctx context.Context, lotID, locationID id.ID, delta types.Quantity) error {
	r.balances[lotKey(lotID, locationID)] += delta
	return nil
}

func (r *fakeLotRepo) GetStockForUpdate(ctx context.Context, productID, locationID id.ID) ([]lot.Stock, error) {
	var out []lot.Stock
	for _, l := range r.lots {
		if l.ProductID != productID {
			continue
		}
		qty := r.balances[lotKey(l.ID, locationID)]
		if !qty.IsPositive() {
			continue
		}
		out = append(out, lot.Stock{
			LotID:      l.ID,
			Number:     l.Number,
			ExpiryDate: l.ExpiryDate,
			ReceivedAt: l.ReceivedAt,
			QtyOnHand:  qty,
		})
	}
	return out, nil
}

func (r *fakeLotRepo) GetBalances(ctx context.Context, lotID id.ID) ([]lot.Balance, error) {
	return nil, nil
}

func (r *fakeLotRepo) ListExpiring(ctx context.Context, deadline time.Time, limit int) ([]lot.Stock, error) {
	return nil, nil
}

// --- harness ---

type testEnv struct {
	svc       *Service
	repo      *fakeMovementRepo
	stockRepo *fakeStockRepo
	lotRepo   *fakeLotRepo
	catalog   *fakeCatalog
	numbers   *fakeNumbers
}

func newTestEnv() *testEnv {
	repo := newFakeMovementRepo()
	stockRepo := newFakeStockRepo()
	lotRepo := newFakeLotRepo()
	cat := newFakeCatalog()
	txm := &fakeTxManager{}
	numbers := &fakeNumbers{txm: txm}

	svc := NewService(
		repo,
		stock.NewService(stockRepo),
		lot.NewService(lotRepo),
		cat,
		numbers,
		txm,
		audit.NopLogger{},
		event.NopPublisher{},
	)
	return &testEnv{svc: svc, repo: repo, stockRepo: stockRepo, lotRepo: lotRepo, catalog: cat, numbers: numbers}
}

func managerCtx() context.Context {
	return actor.WithActor(context.Background(), actor.Actor{ID: "u-1", Name: "Manager", Role: actor.RoleManager})
}

func storemanCtx() context.Context {
	return actor.WithActor(context.Background(), actor.Actor{ID: "u-2", Name: "Storeman", Role: actor.RoleStoreman})
}

func viewerCtx() context.Context {
	return actor.WithActor(context.Background(), actor.Actor{ID: "u-3", Name: "Viewer", Role: actor.RoleViewer})
}

// --- tests ---

func TestCreate_AssignsNumber(t *testing.T) {
	env := newTestEnv()
	ctx := managerCtx()
	p := env.catalog.addProduct(false)
	loc := env.catalog.addLocation()

	m := New(TypeReceive, time.Now())
	m.AddLine(MovementLine{ProductID: p.ID, ToLocationID: loc.ID, Qty: types.QtyFromInt(10)})

	if err := env.svc.Create(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.Number == "" {
		t.Error("number not assigned")
	}
	if m.CreatedBy != "u-1" {
		t.Errorf("CreatedBy = %q", m.CreatedBy)
	}
}

func TestCreate_NumberSharesInsertTransaction(t *testing.T) {
	env := newTestEnv()
	ctx := managerCtx()
	p := env.catalog.addProduct(false)
	loc := env.catalog.addLocation()

	m := New(TypeReceive, time.Now())
	m.AddLine(MovementLine{ProductID: p.ID, ToLocationID: loc.ID, Qty: types.QtyFromInt(1)})
	if err := env.svc.Create(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !env.numbers.lastCallInTx {
		t.Error("number generated outside the insert transaction; a failed insert would burn it")
	}

	// A failed insert aborts the transaction carrying the sequence bump.
	env.repo.failCreate = errors.New("insert failed")
	m2 := New(TypeReceive, time.Now())
	m2.AddLine(MovementLine{ProductID: p.ID, ToLocationID: loc.ID, Qty: types.QtyFromInt(1)})
	if err := env.svc.Create(ctx, m2); err == nil {
		t.Fatal("expected create to fail")
	}
	if !env.numbers.lastCallInTx {
		t.Error("number for the failed insert was generated outside the transaction")
	}
	if len(env.repo.movements) != 1 {
		t.Errorf("failed insert stored a document: %d movements", len(env.repo.movements))
	}
}

func TestCreate_ViewerForbidden(t *testing.T) {
	env := newTestEnv()
	m := New(TypeReceive, time.Now())

	err := env.svc.Create(viewerCtx(), m)
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperror.CodeForbidden {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestCreate_UnknownLocationRejected(t *testing.T) {
	env := newTestEnv()
	p := env.catalog.addProduct(false)

	m := New(TypeReceive, time.Now())
	m.AddLine(MovementLine{ProductID: p.ID, ToLocationID: id.New(), Qty: types.QtyFromInt(1)})

	if err := env.svc.Create(managerCtx(), m); !apperror.IsNotFound(err) {
		t.Errorf("expected not-found for unknown location, got %v", err)
	}
}

func TestWorkflowToPosting_Receive(t *testing.T) {
	env := newTestEnv()
	ctx := managerCtx()
	p := env.catalog.addProduct(false)
	loc := env.catalog.addLocation()

	m := New(TypeReceive, time.Now())
	m.AddLine(MovementLine{
		ProductID:    p.ID,
		ToLocationID: loc.ID,
		Qty:          types.QtyFromInt(10),
		UnitCost:     types.NewMoney(2.5),
	})
	if err := env.svc.Create(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := env.svc.Submit(ctx, m.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.svc.Approve(ctx, m.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	posted, err := env.svc.Post(ctx, m.ID)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if posted.Status != StatusPosted {
		t.Errorf("status = %s", posted.Status)
	}

	key := stock.BalanceKey{ProductID: p.ID, LocationID: loc.ID}
	if env.stockRepo.balances[key] != types.QtyFromInt(10) {
		t.Errorf("balance = %s, want 10", env.stockRepo.balances[key])
	}
	if len(env.stockRepo.entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(env.stockRepo.entries))
	}
	if env.stockRepo.entries[0].RecordType != stock.RecordTypeReceipt {
		t.Error("entry should be a receipt")
	}

	// Receiving with a cost refreshes the product's last cost.
	if !env.catalog.lastCosts[p.ID].Equal(types.NewMoney(2.5)) {
		t.Errorf("last cost not refreshed: %s", env.catalog.lastCosts[p.ID])
	}
}

func TestPost_RequiresApproved(t *testing.T) {
	env := newTestEnv()
	ctx := managerCtx()
	p := env.catalog.addProduct(false)
	loc := env.catalog.addLocation()

	m := New(TypeReceive, time.Now())
	m.AddLine(MovementLine{ProductID: p.ID, ToLocationID: loc.ID, Qty: types.QtyFromInt(1)})
	if err := env.svc.Create(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := env.svc.Post(ctx, m.ID); err == nil {
		t.Error("posting a draft should fail")
	}
	if len(env.stockRepo.entries) != 0 {
		t.Error("failed posting must not write ledger entries")
	}
}

func TestApprove_RequiresManagerRole(t *testing.T) {
	env := newTestEnv()
	p := env.catalog.addProduct(false)
	loc := env.catalog.addLocation()

	m := New(TypeReceive, time.Now())
	m.AddLine(MovementLine{ProductID: p.ID, ToLocationID: loc.ID, Qty: types.QtyFromInt(1)})
	if err := env.svc.Create(storemanCtx(), m); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.svc.Submit(storemanCtx(), m.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err := env.svc.Approve(storemanCtx(), m.ID)
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperror.CodeForbidden {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestPost_Transfer_MovesBalance(t *testing.T) {
	env := newTestEnv()
	ctx := managerCtx()
	p := env.catalog.addProduct(false)
	from := env.catalog.addLocation()
	to := env.catalog.addLocation()

	m := New(TypeTransfer, time.Now())
	m.AddLine(MovementLine{
		ProductID:      p.ID,
		FromLocationID: from.ID,
		ToLocationID:   to.ID,
		Qty:            types.QtyFromInt(4),
	})
	if err := env.svc.Create(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.svc.Submit(ctx, m.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.svc.Approve(ctx, m.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := env.svc.Post(ctx, m.ID); err != nil {
		t.Fatalf("post: %v", err)
	}

	fromKey := stock.BalanceKey{ProductID: p.ID, LocationID: from.ID}
	toKey := stock.BalanceKey{ProductID: p.ID, LocationID: to.ID}
	if env.stockRepo.balances[fromKey] != types.QtyFromInt(-4) {
		t.Errorf("source balance = %s, want -4", env.stockRepo.balances[fromKey])
	}
	if env.stockRepo.balances[toKey] != types.QtyFromInt(4) {
		t.Errorf("destination balance = %s, want 4", env.stockRepo.balances[toKey])
	}
}

func TestPost_Issue_AllocatesLotsFIFO(t *testing.T) {
	env := newTestEnv()
	ctx := managerCtx()
	p := env.catalog.addProduct(true)
	loc := env.catalog.addLocation()

	early := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	lotA := lot.NewLot(p.ID, "LOT-A", &early)
	lotB := lot.NewLot(p.ID, "LOT-B", &late)
	env.lotRepo.lots[lotA.ID] = lotA
	env.lotRepo.lots[lotB.ID] = lotB
	env.lotRepo.balances[lotKey(lotA.ID, loc.ID)] = types.QtyFromInt(3)
	env.lotRepo.balances[lotKey(lotB.ID, loc.ID)] = types.QtyFromInt(5)

	m := New(TypeIssue, time.Now())
	m.AddLine(MovementLine{ProductID: p.ID, FromLocationID: loc.ID, Qty: types.QtyFromInt(6)})
	if err := env.svc.Create(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.svc.Submit(ctx, m.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.svc.Approve(ctx, m.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := env.svc.Post(ctx, m.ID); err != nil {
		t.Fatalf("post: %v", err)
	}

	// Earliest expiry drains first, the rest comes from the later lot.
	if got := env.lotRepo.balances[lotKey(lotA.ID, loc.ID)]; !got.IsZero() {
		t.Errorf("lot A balance = %s, want 0", got)
	}
	if got := env.lotRepo.balances[lotKey(lotB.ID, loc.ID)]; got != types.QtyFromInt(2) {
		t.Errorf("lot B balance = %s, want 2", got)
	}
	if len(env.stockRepo.entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(env.stockRepo.entries))
	}
}

func TestPost_Receive_CreatesNewLot(t *testing.T) {
	env := newTestEnv()
	ctx := managerCtx()
	p := env.catalog.addProduct(true)
	loc := env.catalog.addLocation()

	m := New(TypeReceive, time.Now())
	m.AddLine(MovementLine{
		ProductID:    p.ID,
		ToLocationID: loc.ID,
		Qty:          types.QtyFromInt(8),
		NewLotNumber: "LOT-NEW",
	})
	if err := env.svc.Create(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.svc.Submit(ctx, m.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.svc.Approve(ctx, m.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := env.svc.Post(ctx, m.ID); err != nil {
		t.Fatalf("post: %v", err)
	}

	created, err := env.lotRepo.GetByNumber(ctx, p.ID, "LOT-NEW")
	if err != nil {
		t.Fatalf("lot not created: %v", err)
	}
	if got := env.lotRepo.balances[lotKey(created.ID, loc.ID)]; got != types.QtyFromInt(8) {
		t.Errorf("lot balance = %s, want 8", got)
	}
}

func TestCancel_OnlyCreatorOrManager(t *testing.T) {
	env := newTestEnv()
	p := env.catalog.addProduct(false)
	loc := env.catalog.addLocation()

	m := New(TypeReceive, time.Now())
	m.AddLine(MovementLine{ProductID: p.ID, ToLocationID: loc.ID, Qty: types.QtyFromInt(1)})
	if err := env.svc.Create(storemanCtx(), m); err != nil {
		t.Fatalf("create: %v", err)
	}

	other := actor.WithActor(context.Background(), actor.Actor{ID: "u-9", Name: "Other", Role: actor.RoleStoreman})
	if _, err := env.svc.Cancel(other, m.ID, "not mine"); err == nil {
		t.Error("foreign storeman should not cancel")
	}

	if _, err := env.svc.Cancel(storemanCtx(), m.ID, "mistake"); err != nil {
		t.Errorf("creator cancel failed: %v", err)
	}
}

func TestDelete_DraftOnly(t *testing.T) {
	env := newTestEnv()
	ctx := managerCtx()
	p := env.catalog.addProduct(false)
	loc := env.catalog.addLocation()

	m := New(TypeReceive, time.Now())
	m.AddLine(MovementLine{ProductID: p.ID, ToLocationID: loc.ID, Qty: types.QtyFromInt(1)})
	if err := env.svc.Create(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := env.svc.Delete(ctx, m.ID); err != nil {
		t.Fatalf("delete draft: %v", err)
	}
	if !env.repo.movements[m.ID].DeletionMark {
		t.Error("draft not marked deleted")
	}

	m2 := New(TypeReceive, time.Now())
	m2.AddLine(MovementLine{ProductID: p.ID, ToLocationID: loc.ID, Qty: types.QtyFromInt(1)})
	if err := env.svc.Create(ctx, m2); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.svc.Submit(ctx, m2.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := env.svc.Delete(ctx, m2.ID); err == nil {
		t.Error("submitted movement should not be deletable")
	}
}

func TestReverse_CreatesLinkedDraft(t *testing.T) {
	env := newTestEnv()
	ctx := managerCtx()
	p := env.catalog.addProduct(false)
	loc := env.catalog.addLocation()

	m := New(TypeReceive, time.Now())
	m.AddLine(MovementLine{ProductID: p.ID, ToLocationID: loc.ID, Qty: types.QtyFromInt(5)})
	if err := env.svc.Create(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.svc.Submit(ctx, m.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.svc.Approve(ctx, m.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := env.svc.Post(ctx, m.ID); err != nil {
		t.Fatalf("post: %v", err)
	}

	rev, err := env.svc.Reverse(ctx, m.ID)
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if rev.Type != TypeIssue || rev.Status != StatusDraft {
		t.Errorf("reversal = %s/%s", rev.Type, rev.Status)
	}
	if rev.RefType != RefReversalOf || rev.RefID != m.ID {
		t.Error("reversal not linked")
	}
	if rev.Number == "" {
		t.Error("reversal draft needs its own number")
	}
}

func TestReverse_PostedReversalRestoresBalances(t *testing.T) {
	env := newTestEnv()
	ctx := managerCtx()
	p := env.catalog.addProduct(false)
	loc := env.catalog.addLocation()
	key := stock.BalanceKey{ProductID: p.ID, LocationID: loc.ID}

	m := New(TypeReceive, time.Now())
	m.AddLine(MovementLine{ProductID: p.ID, ToLocationID: loc.ID, Qty: types.QtyFromInt(5)})
	if err := env.svc.Create(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.svc.Submit(ctx, m.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.svc.Approve(ctx, m.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := env.svc.Post(ctx, m.ID); err != nil {
		t.Fatalf("post: %v", err)
	}
	if env.stockRepo.balances[key] != types.QtyFromInt(5) {
		t.Fatalf("balance after receive = %s", env.stockRepo.balances[key])
	}

	rev, err := env.svc.Reverse(ctx, m.ID)
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if _, err := env.svc.Submit(ctx, rev.ID); err != nil {
		t.Fatalf("submit reversal: %v", err)
	}
	if _, err := env.svc.Approve(ctx, rev.ID); err != nil {
		t.Fatalf("approve reversal: %v", err)
	}
	if _, err := env.svc.Post(ctx, rev.ID); err != nil {
		t.Fatalf("post reversal: %v", err)
	}

	if got := env.stockRepo.balances[key]; !got.IsZero() {
		t.Errorf("balance after posted reversal = %s, want 0", got)
	}
	if len(env.stockRepo.entries) != 2 {
		t.Errorf("ledger entries = %d, want receipt plus reversal expense", len(env.stockRepo.entries))
	}
}

func TestPost_Return_RechecksQuantitiesUnderLock(t *testing.T) {
	env := newTestEnv()
	ctx := managerCtx()
	p := env.catalog.addProduct(false)
	loc := env.catalog.addLocation()

	issue := New(TypeIssue, time.Now())
	issue.AddLine(MovementLine{ProductID: p.ID, FromLocationID: loc.ID, Qty: types.QtyFromInt(10)})
	issue.Number = "MV-2508-00001"
	issue.Status = StatusPosted
	env.repo.movements[issue.ID] = issue

	env.repo.returns[issue.Lines[0].LineID] = types.QtyFromInt(8)
	ret, err := env.svc.CreateReturn(ctx, issue.ID, []ReturnSpec{
		{SourceLineID: issue.Lines[0].LineID, Qty: types.QtyFromInt(2)},
	}, "")
	if err != nil {
		t.Fatalf("create return: %v", err)
	}
	if _, err := env.svc.Submit(ctx, ret.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.svc.Approve(ctx, ret.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Another return posted between drafting and posting shrinks the
	// remaining quantity to 1; the posting-time check must catch it.
	env.repo.returns[issue.Lines[0].LineID] = types.QtyFromInt(9)

	_, err = env.svc.Post(ctx, ret.ID)
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperror.CodeOverReturn {
		t.Errorf("expected over-return at posting, got %v", err)
	}
	if len(env.stockRepo.entries) != 0 {
		t.Error("rejected return wrote ledger entries")
	}

	env.repo.returns[issue.Lines[0].LineID] = types.QtyFromInt(8)
	if _, err := env.svc.Post(ctx, ret.ID); err != nil {
		t.Errorf("return within remaining quantity failed to post: %v", err)
	}
}

func TestCreateReturn_MapsLines(t *testing.T) {
	env := newTestEnv()
	ctx := managerCtx()
	p := env.catalog.addProduct(false)
	loc := env.catalog.addLocation()

	issue := New(TypeIssue, time.Now())
	issue.AddLine(MovementLine{ProductID: p.ID, FromLocationID: loc.ID, Qty: types.QtyFromInt(10)})
	issue.Number = "MV-2508-00001"
	issue.Status = StatusPosted
	env.repo.movements[issue.ID] = issue

	ret, err := env.svc.CreateReturn(ctx, issue.ID, []ReturnSpec{
		{SourceLineID: issue.Lines[0].LineID, Qty: types.QtyFromInt(3)},
	}, "damaged")
	if err != nil {
		t.Fatalf("create return: %v", err)
	}

	if ret.Type != TypeReturn || ret.RefType != RefReturnOf || ret.RefID != issue.ID {
		t.Error("return not linked to the issue")
	}
	l := ret.Lines[0]
	if l.SourceLineID != issue.Lines[0].LineID {
		t.Error("return line not bound to the issue line")
	}
	if l.ToLocationID != loc.ID {
		t.Error("return destination should default to the issue source")
	}
}

func TestCreateReturn_OverReturnRejected(t *testing.T) {
	env := newTestEnv()
	ctx := managerCtx()
	p := env.catalog.addProduct(false)
	loc := env.catalog.addLocation()

	issue := New(TypeIssue, time.Now())
	issue.AddLine(MovementLine{ProductID: p.ID, FromLocationID: loc.ID, Qty: types.QtyFromInt(10)})
	issue.Number = "MV-2508-00001"
	issue.Status = StatusPosted
	env.repo.movements[issue.ID] = issue

	// 8 already returned, 2 remaining.
	env.repo.returns[issue.Lines[0].LineID] = types.QtyFromInt(8)

	_, err := env.svc.CreateReturn(ctx, issue.ID, []ReturnSpec{
		{SourceLineID: issue.Lines[0].LineID, Qty: types.QtyFromInt(3)},
	}, "")
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperror.CodeOverReturn {
		t.Errorf("expected over-return error, got %v", err)
	}

	_, err = env.svc.CreateReturn(ctx, issue.ID, []ReturnSpec{
		{SourceLineID: issue.Lines[0].LineID, Qty: types.QtyFromInt(2)},
	}, "")
	if err != nil {
		t.Errorf("remaining quantity should be returnable: %v", err)
	}
}

func TestCreateReturn_RequiresPostedIssue(t *testing.T) {
	env := newTestEnv()
	ctx := managerCtx()
	p := env.catalog.addProduct(false)
	loc := env.catalog.addLocation()

	receive := New(TypeReceive, time.Now())
	receive.AddLine(MovementLine{ProductID: p.ID, ToLocationID: loc.ID, Qty: types.QtyFromInt(1)})
	receive.Status = StatusPosted
	env.repo.movements[receive.ID] = receive

	if _, err := env.svc.CreateReturn(ctx, receive.ID, []ReturnSpec{
		{SourceLineID: receive.Lines[0].LineID, Qty: types.QtyFromInt(1)},
	}, ""); err == nil {
		t.Error("return against a receive movement should fail")
	}
}
