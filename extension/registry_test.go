package extension

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockVM is a fake server extension. Lifecycle operations succeed unless
// an error is injected; Terminate tolerates a failing stop because the
// target may already be stopped.
type mockVM struct {
	cfg     Config
	stopErr error // injected failure for the stop step
}

func newMockVM(cfg Config) *mockVM { return &mockVM{cfg: cfg} }

func (m *mockVM) Metadata() Metadata {
	return Metadata{Name: "MockVM", Description: "In-memory test hypervisor", Version: "1.0.0", Author: "payd", Category: CategoryServer}
}

func (m *mockVM) ConfigFields(_ Config) []Field {
	return []Field{
		{Name: "host", Type: FieldText, Label: "Host", Required: true},
	}
}

func (m *mockVM) Create(_ context.Context, svc Service) (*Result, error) {
	return &Result{Success: true, Message: "created", Data: map[string]any{"vmid": svc.ID}}, nil
}

func (m *mockVM) stop(Service) error { return m.stopErr }

func (m *mockVM) Suspend(_ context.Context, svc Service) (*Result, error) {
	if err := m.stop(svc); err != nil {
		return nil, err
	}
	return &Result{Success: true, Message: "suspended"}, nil
}

func (m *mockVM) Unsuspend(_ context.Context, _ Service) (*Result, error) {
	return &Result{Success: true, Message: "unsuspended"}, nil
}

func (m *mockVM) Terminate(_ context.Context, svc Service) (*Result, error) {
	// Best-effort stop: the VM may already be down. Only the deletion
	// step can fail the termination.
	_ = m.stop(svc)
	return &Result{Success: true, Message: "terminated"}, nil
}

// mockGateway implements Gateway without Refunder.
type mockGateway struct {
	cfg Config
}

func (g *mockGateway) Metadata() Metadata {
	return Metadata{Name: "MockPay", Category: CategoryGateway}
}

func (g *mockGateway) ConfigFields(_ Config) []Field { return nil }

func (g *mockGateway) Pay(_ context.Context, inv Invoice) (*PaymentResult, error) {
	return &PaymentResult{RedirectURL: "https://pay.example/session", Reference: "ref-1", Status: "pending"}, nil
}

func (g *mockGateway) Webhook(_ context.Context, _ WebhookRequest) (*WebhookResult, error) {
	return &WebhookResult{Event: "test", Status: "processed"}, nil
}

// mockNotifier implements Other and records the last invocation.
type mockNotifier struct {
	cfg  Config
	last Args
}

func (n *mockNotifier) Metadata() Metadata {
	return Metadata{Name: "MockNotify", Category: CategoryOther}
}

func (n *mockNotifier) ConfigFields(_ Config) []Field { return nil }

func (n *mockNotifier) Execute(_ context.Context, args Args) (*Result, error) {
	n.last = args
	return &Result{Success: true}, nil
}

func newTestRegistry() *Registry {
	r := New()
	r.RegisterServer("MockVM", func(cfg Config) Server { return &mockVM{cfg: cfg} })
	r.RegisterGateway("MockPay", func(cfg Config) Gateway { return &mockGateway{cfg: cfg} })
	r.RegisterOther("MockNotify", func(cfg Config) Other { return &mockNotifier{cfg: cfg} })
	return r
}

func TestRegistry_GetAbsent(t *testing.T) {
	r := newTestRegistry()

	for _, cat := range Categories {
		_, ok := r.Get(cat, "nosuch", nil)
		assert.False(t, ok, "category %s", cat)

		_, ok = r.Metadata(cat, "nosuch")
		assert.False(t, ok)

		_, ok = r.ConfigSchema(cat, "nosuch")
		assert.False(t, ok)
	}
}

func TestRegistry_CaseInsensitiveLookup(t *testing.T) {
	r := newTestRegistry()

	for _, name := range []string{"mockvm", "MOCKVM", "MockVM"} {
		_, ok := r.Server(name, nil)
		assert.True(t, ok, "lookup %q", name)
	}
}

func TestRegistry_InstancesAreIndependent(t *testing.T) {
	r := newTestRegistry()

	cfg := Config{"host": "a"}
	first, ok := r.Server("mockvm", cfg)
	require.True(t, ok)
	second, ok := r.Server("mockvm", cfg)
	require.True(t, ok)

	// Mutating one instance's bound configuration must not leak into the
	// other, nor back into the caller's map.
	first.(*mockVM).cfg["host"] = "changed"
	assert.Equal(t, "a", second.(*mockVM).cfg.String("host", ""))
	assert.Equal(t, "a", cfg["host"])
}

func TestRegistry_ListAllCategories(t *testing.T) {
	r := New()
	r.RegisterGateway("stripe", func(cfg Config) Gateway { return &mockGateway{cfg: cfg} })

	got := r.List()
	require.Len(t, got, 3)
	assert.Equal(t, []string{}, got[CategoryServer], "empty category present as empty slice")
	assert.Equal(t, []string{"stripe"}, got[CategoryGateway])
	assert.Equal(t, []string{}, got[CategoryOther])
}

func TestRegistry_ListPreservesDiscoveryOrder(t *testing.T) {
	r := New()
	r.RegisterServer("zeta", func(cfg Config) Server { return &mockVM{cfg: cfg} })
	r.RegisterServer("alpha", func(cfg Config) Server { return &mockVM{cfg: cfg} })

	got := r.List(CategoryServer)
	assert.Equal(t, []string{"zeta", "alpha"}, got[CategoryServer])
}

func TestRegistry_ListUnknownCategory(t *testing.T) {
	r := newTestRegistry()

	// No filter validation at the registry layer: an unrecognised
	// category just yields nothing.
	got := r.List(Category("bogus"))
	assert.Empty(t, got)
}

func TestRegistry_LoadRunsOnce(t *testing.T) {
	r := newTestRegistry()

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Load()
		}()
	}
	wg.Wait()
	r.Load()

	assert.Equal(t, 1, r.loads)
}

func TestRegistry_DuplicateKeepsFirst(t *testing.T) {
	r := New()
	r.RegisterServer("Box", func(cfg Config) Server { return &mockVM{cfg: cfg, stopErr: nil} })
	// Same name, different case: discovery must skip it.
	r.RegisterServer("BOX", func(cfg Config) Server {
		return &mockVM{cfg: cfg, stopErr: errors.New("second registration")}
	})
	r.Load()

	got := r.List(CategoryServer)
	require.Equal(t, []string{"box"}, got[CategoryServer])

	s, ok := r.Server("box", nil)
	require.True(t, ok)
	assert.NoError(t, s.(*mockVM).stopErr, "first registration wins")
}

func TestRegistry_SkipsBadCandidates(t *testing.T) {
	r := New()
	r.RegisterServer("", func(cfg Config) Server { return &mockVM{cfg: cfg} })
	r.RegisterServer("good", func(cfg Config) Server { return &mockVM{cfg: cfg} })
	r.RegisterGateway("nilfactory", nil)

	got := r.List()
	assert.Equal(t, []string{"good"}, got[CategoryServer])
	assert.Empty(t, got[CategoryGateway])
}

func TestRegistry_RegisterAfterLoadIgnored(t *testing.T) {
	r := newTestRegistry()
	r.Load()
	r.RegisterServer("late", func(cfg Config) Server { return &mockVM{cfg: cfg} })

	_, ok := r.Server("late", nil)
	assert.False(t, ok)
}

func TestRegistry_MetadataAndSchema(t *testing.T) {
	r := newTestRegistry()

	md, ok := r.Metadata(CategoryServer, "mockvm")
	require.True(t, ok)
	assert.Equal(t, "MockVM", md.Name)
	assert.Equal(t, CategoryServer, md.Category)

	fields, ok := r.ConfigSchema(CategoryServer, "mockvm")
	require.True(t, ok)
	require.Len(t, fields, 1)
	assert.Equal(t, "host", fields[0].Name)
	assert.True(t, fields[0].Required)
}

func TestMockVM_Lifecycle(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()
	svc := Service{ID: 42, Name: "vm-42"}

	s, ok := r.Server("mockvm", nil)
	require.True(t, ok)

	res, err := s.Create(ctx, svc)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(42), res.Data["vmid"])

	res, err = s.Terminate(ctx, svc)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestMockVM_TerminateToleratesFailingStop(t *testing.T) {
	vm := &mockVM{stopErr: errors.New("already stopped")}
	ctx := context.Background()
	svc := Service{ID: 7}

	// Suspend surfaces the stop failure...
	_, err := vm.Suspend(ctx, svc)
	require.Error(t, err)

	// ...but Terminate swallows it for the preliminary stop.
	res, err := vm.Terminate(ctx, svc)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestRefund_UnsupportedGateway(t *testing.T) {
	g := &mockGateway{}

	_, err := Refund(context.Background(), g, Transaction{ID: "ch_1", Amount: 5})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestLoginURL_Unsupported(t *testing.T) {
	_, ok := LoginURL(&mockVM{}, Service{ID: 1})
	assert.False(t, ok)
}

func TestParseCategory(t *testing.T) {
	for _, s := range []string{"server", "gateway", "other"} {
		c, err := ParseCategory(s)
		require.NoError(t, err)
		assert.Equal(t, Category(s), c)
	}

	_, err := ParseCategory("servers")
	assert.ErrorIs(t, err, ErrInvalidCategory)
}
