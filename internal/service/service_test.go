package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacksonmacedok2-maker/Venda-flow/internal/auth"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/cache"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/domain"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/localstore"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/membership"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/netstatus"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/queue"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/remote"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/sequence"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/syncengine"
	"github.com/jacksonmacedok2-maker/Venda-flow/pkg/logger"
)

type fixture struct {
	data    *Data
	store   *remote.MemoryStore
	cache   *cache.Cache
	queue   *queue.Queue
	monitor *netstatus.Monitor
	engine  *syncengine.Engine
}

func newFixture(t *testing.T, online bool) *fixture {
	t.Helper()

	log, err := logger.New(&logger.Config{Level: "error", ServiceName: "service-test", Development: true})
	require.NoError(t, err)

	store := remote.NewMemoryStore()
	local := localstore.NewMemoryStore()
	c := cache.New(local)
	q := queue.New(local)
	monitor := netstatus.NewMonitor(online)
	seq := sequence.New(store, "PED", 6)

	resolver := membership.NewResolver(auth.NewMemoryBackend(), store, membership.Config{
		MaxAttempts:    1,
		RetryDelay:     time.Millisecond,
		OverrideTTL:    time.Minute,
		SessionTimeout: time.Second,
	}, log)
	resolver.SetOverride(domain.Membership{
		ID:        "mem-1",
		CompanyID: "tenant-1",
		UserID:    "user-1",
		Role:      domain.RoleOwner,
		Status:    domain.MembershipActive,
	})

	engine, err := syncengine.New(q, monitor, syncengine.Config{MaxAttempts: 5}, log)
	require.NoError(t, err)

	data := NewData(store, c, q, monitor, seq, resolver, log)
	data.RegisterReplayers(engine)

	return &fixture{data: data, store: store, cache: c, queue: q, monitor: monitor, engine: engine}
}

func TestListClientsReadThrough(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	f.store.Seed(remote.CollectionClients, map[string]any{
		"id": "c1", "company_id": "tenant-1", "name": "Ana", "type": "PF",
	})
	f.store.Seed(remote.CollectionClients, map[string]any{
		"id": "c2", "company_id": "other-tenant", "name": "Bruno", "type": "PJ",
	})

	clients, err := f.data.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Ana", clients[0].Name)

	// Offline the snapshot serves the same rows.
	f.monitor.SetOnline(false)
	cached, err := f.data.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "c1", cached[0].ID)
}

func TestListClientsColdCacheOffline(t *testing.T) {
	f := newFixture(t, false)

	clients, err := f.data.ListClients(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, clients)
	assert.Empty(t, clients)
}

func TestCreateClientOnline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	created, err := f.data.CreateClient(ctx, domain.Client{Name: "Ana", Type: domain.ClientTypePF})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, IsTempID(created.ID))
	assert.Equal(t, "tenant-1", created.CompanyID)

	n, err := f.queue.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "online create must not queue")
}

func TestCreateClientOfflineQueuesAndEchoes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	created, err := f.data.CreateClient(ctx, domain.Client{Name: "Ana"})
	require.NoError(t, err)
	assert.True(t, IsTempID(created.ID))

	clients, err := f.data.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, created.ID, clients[0].ID)

	items, err := f.queue.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, queue.KindClient, items[0].Kind)
	assert.Equal(t, "tenant-1", items[0].TenantID)
}

func TestOfflineClientReplaysOnDrain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	_, err := f.data.CreateClient(ctx, domain.Client{Name: "Ana"})
	require.NoError(t, err)

	f.monitor.SetOnline(true)
	waitFor(t, func() bool {
		n, err := f.queue.Len(ctx)
		return err == nil && n == 0
	})
	assert.Equal(t, 1, f.store.InsertCalls(remote.CollectionClients))

	// The refreshed list replaces the temp_ row with the server one.
	clients, err := f.data.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.False(t, IsTempID(clients[0].ID))
}

func TestCreateOrderOnline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	product, err := f.data.CreateProduct(ctx, domain.Product{Name: "Cadeira", Price: 100, Stock: 10})
	require.NoError(t, err)

	order := domain.Order{
		ClientID:    "c1",
		TotalAmount: 200,
		Status:      domain.OrderStatusCompleted,
	}
	items := []domain.OrderItem{{ProductID: product.ID, Name: product.Name, Quantity: 3, UnitPrice: 100}}

	created, err := f.data.CreateOrder(ctx, order, items)
	require.NoError(t, err)
	assert.Equal(t, "PED-000001", created.Code)
	require.Len(t, created.Items, 1)
	assert.Equal(t, created.ID, created.Items[0].OrderID)

	products, err := f.data.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 7, products[0].Stock, "completed order decrements stock")
}

func TestDraftOrderKeepsStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	product, err := f.data.CreateProduct(ctx, domain.Product{Name: "Mesa", Stock: 5})
	require.NoError(t, err)

	_, err = f.data.CreateOrder(ctx, domain.Order{Status: domain.OrderStatusDraft},
		[]domain.OrderItem{{ProductID: product.ID, Quantity: 2}})
	require.NoError(t, err)

	products, err := f.data.ListProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, products[0].Stock)
}

func TestCreateOrderOfflineReplaysWithCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	created, err := f.data.CreateOrder(ctx, domain.Order{TotalAmount: 50, Status: domain.OrderStatusPending},
		[]domain.OrderItem{{ProductID: "p1", Quantity: 1, UnitPrice: 50}})
	require.NoError(t, err)
	assert.True(t, IsTempID(created.ID))
	assert.Empty(t, created.Code, "code is allocated at replay")

	f.monitor.SetOnline(true)
	waitFor(t, func() bool {
		n, err := f.queue.Len(ctx)
		return err == nil && n == 0
	})

	orders, err := f.data.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "PED-000001", orders[0].Code)
	require.Len(t, orders[0].Items, 1)
}

func TestCreateTransactionOffline(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.data.CreateTransaction(context.Background(), domain.Transaction{
		Description: "Aluguel", Amount: 1200, Type: domain.TransactionExpense,
	})
	assert.ErrorIs(t, err, ErrOffline)
}

func TestCommercialSettingsGetOrCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	settings, err := f.data.GetCommercialSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "PED", settings.OrderCodePrefix)
	assert.NotEmpty(t, settings.ID, "first read creates the row")
	assert.Equal(t, 1, f.store.InsertCalls(remote.CollectionCommercialSettings))

	// Second read finds the existing row.
	again, err := f.data.GetCommercialSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.ID, again.ID)
	assert.Equal(t, 1, f.store.InsertCalls(remote.CollectionCommercialSettings))
}

func TestUpdateCompanySettingsOfflineStaysLocal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	updated, err := f.data.UpdateCompanySettings(ctx, domain.CompanySettings{TradeName: "Aurora Móveis"})
	require.NoError(t, err)
	assert.Equal(t, "Aurora Móveis", updated.TradeName)

	cached, err := f.data.GetCompanySettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Aurora Móveis", cached.TradeName)
	assert.Zero(t, f.store.InsertCalls(remote.CollectionCompanySettings))
}

func TestUpdateCompanySettingsOfflineReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	_, err := f.data.UpdateCompanySettings(ctx, domain.CompanySettings{
		TradeName: "Aurora Móveis",
		LegalName: "Aurora Móveis LTDA",
	})
	require.NoError(t, err)

	// The update carries the full document; a second one without the legal
	// name replaces the snapshot rather than merging into it.
	_, err = f.data.UpdateCompanySettings(ctx, domain.CompanySettings{TradeName: "Aurora"})
	require.NoError(t, err)

	cached, err := f.data.GetCompanySettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Aurora", cached.TradeName)
	assert.Empty(t, cached.LegalName)
}

func TestGenerateInvitation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	inv, err := f.data.GenerateInvitation(ctx, "Carlos", "carlos@example.com", domain.RoleSeller, "user-1")
	require.NoError(t, err)
	assert.Len(t, inv.Token, 48)
	assert.Equal(t, domain.InvitationPending, inv.Status)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), inv.ExpiresAt, time.Minute)

	require.NoError(t, f.data.DeleteInvitation(ctx, inv.ID))
	invitations, err := f.data.ListInvitations(ctx)
	require.NoError(t, err)
	assert.Empty(t, invitations)
}

func TestDashboardStatsOfflineZeros(t *testing.T) {
	f := newFixture(t, false)

	stats, err := f.data.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.DailySales)
	assert.Zero(t, stats.PendingOrders)
}

func TestDashboardStatsUseLocalDayBoundary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	f.store.Seed(remote.CollectionOrders, map[string]any{
		"id": "o1", "company_id": "tenant-1",
		"status":       string(domain.OrderStatusCompleted),
		"total_amount": 150.0,
		"created_at":   midnight.Add(time.Minute),
	})
	// Yesterday 23:59 local: out of today's sales regardless of zone.
	f.store.Seed(remote.CollectionOrders, map[string]any{
		"id": "o2", "company_id": "tenant-1",
		"status":       string(domain.OrderStatusCompleted),
		"total_amount": 80.0,
		"created_at":   midnight.Add(-time.Minute),
	})

	stats, err := f.data.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 150.0, stats.DailySales)
	assert.GreaterOrEqual(t, stats.MonthlyRevenue, 150.0)
}

func TestOperationsRequireActiveCompany(t *testing.T) {
	log, err := logger.New(&logger.Config{Level: "error", ServiceName: "service-test", Development: true})
	require.NoError(t, err)

	store := remote.NewMemoryStore()
	local := localstore.NewMemoryStore()
	resolver := membership.NewResolver(auth.NewMemoryBackend(), store, membership.DefaultConfig(), log)

	data := NewData(store, cache.New(local), queue.New(local), netstatus.NewMonitor(true),
		sequence.New(store, "PED", 6), resolver, log)

	_, err = data.ListClients(context.Background())
	assert.True(t, errors.Is(err, ErrNoActiveCompany))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition never became true")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
