package purchasing

import (
	"context"
	"errors"
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
	"stokado/internal/domain/movement"
	"stokado/internal/domain/stock"
)

// --- fakes ---

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeNumbers struct {
	counter int64
}

func (f *fakeNumbers) Next(ctx context.Context, cfg sequence.Config, opts *sequence.Options, period time.Time) (string, error) {
	f.counter++
	return cfg.Format(period, f.counter), nil
}

func (f *fakeNumbers) SetNext(ctx context.Context, cfg sequence.Config, period time.Time, value int64) error {
	f.counter = value - 1
	return nil
}

type fakeOrderRepo struct {
	orders    map[id.ID]*PurchaseOrder
	grns      map[id.ID]*GRN
	timelines map[id.ID][]TimelineEntry
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:    map[id.ID]*PurchaseOrder{},
		grns:      map[id.ID]*GRN{},
		timelines: map[id.ID][]TimelineEntry{},
	}
}

func cloneOrder(po *PurchaseOrder) *PurchaseOrder {
	c := *po
	c.Lines = append([]POLine(nil), po.Lines...)
	return &c
}

func (r *fakeOrderRepo) CreateOrder(ctx context.Context, po *PurchaseOrder) error {
	r.orders[po.ID] = cloneOrder(po)
	return nil
}

func (r *fakeOrderRepo) UpdateOrder(ctx context.Context, po *PurchaseOrder) error {
	if _, ok := r.orders[po.ID]; !ok {
		return apperror.NewNotFound("order", po.ID)
	}
	r.orders[po.ID] = cloneOrder(po)
	return nil
}

func (r *fakeOrderRepo) GetOrder(ctx context.Context, orderID id.ID) (*PurchaseOrder, error) {
	po, ok := r.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("order", orderID)
	}
	return cloneOrder(po), nil
}

func (r *fakeOrderRepo) GetOrderForUpdate(ctx context.Context, orderID id.ID) (*PurchaseOrder, error) {
	return r.GetOrder(ctx, orderID)
}

func (r *fakeOrderRepo) ListOrders(ctx context.Context, filter OrderFilter) ([]*PurchaseOrder, error) {
	out := make([]*PurchaseOrder, 0, len(r.orders))
	for _, po := range r.orders {
		out = append(out, cloneOrder(po))
	}
	return out, nil
}

func (r *fakeOrderRepo) AddReceivedQty(ctx context.Context, lineID id.ID, delta types.Quantity) error {
	return nil
}

func (r *fakeOrderRepo) CreateGRN(ctx context.Context, g *GRN) error {
	r.grns[g.ID] = g
	return nil
}

func (r *fakeOrderRepo) GetGRN(ctx context.Context, grnID id.ID) (*GRN, error) {
	g, ok := r.grns[grnID]
	if !ok {
		return nil, apperror.NewNotFound("grn", grnID)
	}
	return g, nil
}

func (r *fakeOrderRepo) ListGRNsByOrder(ctx context.Context, orderID id.ID) ([]*GRN, error) {
	var out []*GRN
	for _, g := range r.grns {
		if g.OrderID == orderID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) AppendTimeline(ctx context.Context, entry TimelineEntry) error {
	r.timelines[entry.OrderID] = append(r.timelines[entry.OrderID], entry)
	return nil
}

func (r *fakeOrderRepo) GetTimeline(ctx context.Context, orderID id.ID) ([]TimelineEntry, error) {
	return r.timelines[orderID], nil
}

type fakeMovementRepo struct {
	movements map[id.ID]*movement.StockMovement
}

func (r *fakeMovementRepo) Create(ctx context.Context, m *movement.StockMovement) error {
	r.movements[m.ID] = m
	return nil
}

func (r *fakeMovementRepo) Update(ctx context.Context, m *movement.StockMovement) error {
	r.movements[m.ID] = m
	return nil
}

func (r *fakeMovementRepo) ReplaceLines(ctx context.Context, movementID id.ID, lines []movement.MovementLine) error {
	return nil
}

func (r *fakeMovementRepo) GetByID(ctx context.Context, movementID id.ID) (*movement.StockMovement, error) {
	m, ok := r.movements[movementID]
	if !ok {
		return nil, apperror.NewNotFound("movement", movementID)
	}
	return m, nil
}

func (r *fakeMovementRepo) GetForUpdate(ctx context.Context, movementID id.ID) (*movement.StockMovement, error) {
	return r.GetByID(ctx, movementID)
}

func (r *fakeMovementRepo) GetLine(ctx context.Context, lineID id.ID) (*movement.MovementLine, error) {
	return nil, apperror.NewNotFound("movement line", lineID)
}

func (r *fakeMovementRepo) GetLineForUpdate(ctx context.Context, lineID id.ID) (*movement.MovementLine, error) {
	return nil, apperror.NewNotFound("movement line", lineID)
}

func (r *fakeMovementRepo) SumPostedReturns(ctx context.Context, sourceLineID id.ID) (types.Quantity, error) {
	return 0, nil
}

func (r *fakeMovementRepo) List(ctx context.Context, filter movement.ListFilter) ([]*movement.StockMovement, error) {
	return nil, nil
}

type fakeStockRepo struct {
	entries  []stock.Entry
	balances map[stock.BalanceKey]types.Quantity
}

func (r *fakeStockRepo) CreateEntries(ctx context.Context, entries []stock.Entry) error {
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *fakeStockRepo) GetEntriesByRecorder(ctx context.Context, recorderID id.ID) ([]stock.Entry, error) {
	return nil, nil
}

func (r *fakeStockRepo) ApplyDelta(ctx context.Context, key stock.BalanceKey, delta types.Quantity, movedAt time.Time) error {
	r.balances[key] += delta
	return nil
}

func (r *fakeStockRepo) GetBalance(ctx context.Context, key stock.BalanceKey) (stock.Balance, error) {
	return stock.Balance{QtyOnHand: r.balances[key]}, nil
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
	return 0, nil
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
	lots map[id.ID]*lot.Lot
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
	return nil, nil
}

func (r *fakeLotRepo) ApplyDelta(ctx context.Context, lotID, locationID id.ID, delta types.Quantity) error {
	return nil
}

func (r *fakeLotRepo) GetStockForUpdate(ctx context.Context, productID, locationID id.ID) ([]lot.Stock, error) {
	return nil, nil
}

func (r *fakeLotRepo) GetBalances(ctx context.Context, lotID id.ID) ([]lot.Balance, error) {
	return nil, nil
}

func (r *fakeLotRepo) ListExpiring(ctx context.Context, deadline time.Time, limit int) ([]lot.Stock, error) {
	return nil, nil
}

type fakeCatalog struct {
	products  map[id.ID]*catalog.Product
	locations map[id.ID]*catalog.Location
	lastCosts map[id.ID]types.Money
}

func (f *fakeCatalog) GetProduct(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	p, ok := f.products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID)
	}
	return p, nil
}

func (f *fakeCatalog) GetVariant(ctx context.Context, variantID id.ID) (*catalog.Variant, error) {
	return nil, apperror.NewNotFound("variant", variantID)
}

func (f *fakeCatalog) GetLocation(ctx context.Context, locationID id.ID) (*catalog.Location, error) {
	l, ok := f.locations[locationID]
	if !ok {
		return nil, apperror.NewNotFound("location", locationID)
	}
	return l, nil
}

func (f *fakeCatalog) UpdateLastCost(ctx context.Context, productID, variantID id.ID, cost types.Money) error {
	f.lastCosts[productID] = cost
	return nil
}

// --- harness ---

type testEnv struct {
	svc          *Service
	repo         *fakeOrderRepo
	movementRepo *fakeMovementRepo
	stockRepo    *fakeStockRepo
	catalog      *fakeCatalog
}

func newTestEnv() *testEnv {
	repo := newFakeOrderRepo()
	movementRepo := &fakeMovementRepo{movements: map[id.ID]*movement.StockMovement{}}
	stockRepo := &fakeStockRepo{balances: map[stock.BalanceKey]types.Quantity{}}
	lotRepo := &fakeLotRepo{lots: map[id.ID]*lot.Lot{}}
	cat := &fakeCatalog{
		products:  map[id.ID]*catalog.Product{},
		locations: map[id.ID]*catalog.Location{},
		lastCosts: map[id.ID]types.Money{},
	}
	numbers := &fakeNumbers{}
	txm := fakeTxManager{}

	movements := movement.NewService(
		movementRepo,
		stock.NewService(stockRepo),
		lot.NewService(lotRepo),
		cat,
		numbers,
		txm,
		audit.NopLogger{},
		event.NopPublisher{},
	)
	svc := NewService(repo, movements, numbers, txm, event.NopPublisher{})
	return &testEnv{svc: svc, repo: repo, movementRepo: movementRepo, stockRepo: stockRepo, catalog: cat}
}

func (e *testEnv) addProduct() *catalog.Product {
	p := catalog.NewProduct("SKU-1", "product", "pcs")
	e.catalog.products[p.ID] = p
	return p
}

func (e *testEnv) addLocation() *catalog.Location {
	l := catalog.NewLocation("WH-1", "warehouse")
	e.catalog.locations[l.ID] = l
	return l
}

func (e *testEnv) sentOrder(t *testing.T, ctx context.Context, lines ...POLine) *PurchaseOrder {
	t.Helper()
	po := NewPurchaseOrder(id.New())
	for _, l := range lines {
		po.AddLine(l)
	}
	if err := e.svc.CreateOrder(ctx, po); err != nil {
		t.Fatalf("create order: %v", err)
	}
	sent, err := e.svc.SendOrder(ctx, po.ID)
	if err != nil {
		t.Fatalf("send order: %v", err)
	}
	return sent
}

func managerCtx() context.Context {
	return actor.WithActor(context.Background(), actor.Actor{ID: "u-1", Name: "Manager", Role: actor.RoleManager})
}

// --- tests ---

func TestReceive_PartialThenFull(t *testing.T) {
	env := newTestEnv()
	ctx := managerCtx()
	p := env.addProduct()
	loc := env.addLocation()

	po := env.sentOrder(t, ctx,
		POLine{ProductID: p.ID, Qty: types.QtyFromInt(10), UnitCost: types.NewMoney(3)},
		POLine{ProductID: p.ID, Qty: types.QtyFromInt(6), UnitCost: types.NewMoney(3)},
	)

	grn, err := env.svc.Receive(ctx, po.ID, []ReceiveLine{
		{POLineID: po.Lines[0].LineID, Qty: types.QtyFromInt(4), LocationID: loc.ID},
	})
	if err != nil {
		t.Fatalf("first receive: %v", err)
	}
	if grn.Number == "" {
		t.Error("grn has no number")
	}
	if id.IsNil(grn.MovementID) {
		t.Error("grn not linked to its movement")
	}

	po, err = env.svc.GetOrder(ctx, po.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if po.Status != POStatusPartiallyReceived {
		t.Errorf("status = %s, want PARTIALLY_RECEIVED", po.Status)
	}
	if po.Lines[0].QtyReceived != types.QtyFromInt(4) {
		t.Errorf("line received = %s, want 4", po.Lines[0].QtyReceived)
	}

	// Delivery of everything outstanding completes the order.
	_, err = env.svc.Receive(ctx, po.ID, []ReceiveLine{
		{POLineID: po.Lines[0].LineID, Qty: types.QtyFromInt(6), LocationID: loc.ID},
		{POLineID: po.Lines[1].LineID, Qty: types.QtyFromInt(6), LocationID: loc.ID},
	})
	if err != nil {
		t.Fatalf("second receive: %v", err)
	}

	po, _ = env.svc.GetOrder(ctx, po.ID)
	if po.Status != POStatusFullyReceived {
		t.Errorf("status = %s, want FULLY_RECEIVED", po.Status)
	}

	key := stock.BalanceKey{ProductID: p.ID, LocationID: loc.ID}
	if env.stockRepo.balances[key] != types.QtyFromInt(16) {
		t.Errorf("stock balance = %s, want 16", env.stockRepo.balances[key])
	}
}

func TestReceive_PostsBackingMovement(t *testing.T) {
	env := newTestEnv()
	ctx := managerCtx()
	p := env.addProduct()
	loc := env.addLocation()

	po := env.sentOrder(t, ctx,
		POLine{ProductID: p.ID, Qty: types.QtyFromInt(5), UnitCost: types.NewMoney(2)},
	)

	grn, err := env.svc.Receive(ctx, po.ID, []ReceiveLine{
		{POLineID: po.Lines[0].LineID, Qty: types.QtyFromInt(5), LocationID: loc.ID},
	})
	if err != nil {
		t.Fatalf("receive: %v", err)
	}

	mv, ok := env.movementRepo.movements[grn.MovementID]
	if !ok {
		t.Fatal("backing movement not stored")
	}
	if mv.Type != movement.TypeReceive || mv.Status != movement.StatusPosted {
		t.Errorf("movement = %s/%s, want RECEIVE/POSTED", mv.Type, mv.Status)
	}
	if mv.RefType != movement.RefGRN || mv.RefID != grn.ID {
		t.Error("movement not linked back to the grn")
	}
	if !env.catalog.lastCosts[p.ID].Equal(types.NewMoney(2)) {
		t.Errorf("last cost not refreshed: %s", env.catalog.lastCosts[p.ID])
	}
}

func TestReceive_OverReceiptRejected(t *testing.T) {
	env := newTestEnv()
	ctx := managerCtx()
	p := env.addProduct()
	loc := env.addLocation()

	po := env.sentOrder(t, ctx,
		POLine{ProductID: p.ID, Qty: types.QtyFromInt(10), UnitCost: types.NewMoney(1)},
	)

	if _, err := env.svc.Receive(ctx, po.ID, []ReceiveLine{
		{POLineID: po.Lines[0].LineID, Qty: types.QtyFromInt(4), LocationID: loc.ID},
	}); err != nil {
		t.Fatalf("receive: %v", err)
	}

	// 6 remaining; 7 must be rejected and nothing written.
	entriesBefore := len(env.stockRepo.entries)
	_, err := env.svc.Receive(ctx, po.ID, []ReceiveLine{
		{POLineID: po.Lines[0].LineID, Qty: types.QtyFromInt(7), LocationID: loc.ID},
	})
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperror.CodeOverReceipt {
		t.Fatalf("expected over-receipt, got %v", err)
	}
	if len(env.stockRepo.entries) != entriesBefore {
		t.Error("rejected delivery wrote ledger entries")
	}

	po, _ = env.svc.GetOrder(ctx, po.ID)
	if po.Lines[0].QtyReceived != types.QtyFromInt(4) {
		t.Errorf("line received = %s, want unchanged 4", po.Lines[0].QtyReceived)
	}
}

func TestReceive_RequiresSentOrder(t *testing.T) {
	env := newTestEnv()
	ctx := managerCtx()
	p := env.addProduct()
	loc := env.addLocation()

	po := NewPurchaseOrder(id.New())
	po.AddLine(POLine{ProductID: p.ID, Qty: types.QtyFromInt(1), UnitCost: types.NewMoney(1)})
	if err := env.svc.CreateOrder(ctx, po); err != nil {
		t.Fatalf("create order: %v", err)
	}

	if _, err := env.svc.Receive(ctx, po.ID, []ReceiveLine{
		{POLineID: po.Lines[0].LineID, Qty: types.QtyFromInt(1), LocationID: loc.ID},
	}); err == nil {
		t.Error("receiving against a draft order should fail")
	}
}

func TestReceive_AppendsTimeline(t *testing.T) {
	env := newTestEnv()
	ctx := managerCtx()
	p := env.addProduct()
	loc := env.addLocation()

	po := env.sentOrder(t, ctx,
		POLine{ProductID: p.ID, Qty: types.QtyFromInt(2), UnitCost: types.NewMoney(1)},
	)

	if _, err := env.svc.Receive(ctx, po.ID, []ReceiveLine{
		{POLineID: po.Lines[0].LineID, Qty: types.QtyFromInt(2), LocationID: loc.ID},
	}); err != nil {
		t.Fatalf("receive: %v", err)
	}

	entries, err := env.svc.GetTimeline(ctx, po.ID)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	kinds := make([]TimelineKind, len(entries))
	for i, e := range entries {
		kinds[i] = e.Kind
	}
	want := []TimelineKind{TimelineCreated, TimelineSent, TimelineReceived}
	if len(kinds) != len(want) {
		t.Fatalf("timeline kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("timeline[%d] = %s, want %s", i, kinds[i], want[i])
		}
	}
}
