package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/payd-dev/payd/extension"
	"github.com/payd-dev/payd/internal/api"
	"github.com/payd-dev/payd/internal/auth"
	"github.com/payd-dev/payd/internal/billing"
	"github.com/payd-dev/payd/internal/config"
	"github.com/payd-dev/payd/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubVM is a server extension that always succeeds.
type stubVM struct{}

func (stubVM) Metadata() extension.Metadata {
	return extension.Metadata{Name: "stubvm", Description: "test server", Category: extension.CategoryServer}
}
func (stubVM) ConfigFields(extension.Config) []extension.Field {
	return []extension.Field{{Name: "node", Type: extension.FieldText, Label: "Node", Required: true}}
}
func (stubVM) Create(context.Context, extension.Service) (*extension.Result, error) {
	return &extension.Result{Success: true, Data: map[string]any{"vmid": "555"}}, nil
}
func (stubVM) Suspend(context.Context, extension.Service) (*extension.Result, error) {
	return &extension.Result{Success: true}, nil
}
func (stubVM) Unsuspend(context.Context, extension.Service) (*extension.Result, error) {
	return &extension.Result{Success: true}, nil
}
func (stubVM) Terminate(context.Context, extension.Service) (*extension.Result, error) {
	return &extension.Result{Success: true}, nil
}
func (stubVM) LoginURL(svc extension.Service) (string, bool) {
	vmid := svc.Config.String("vmid", "")
	if vmid == "" {
		return "", false
	}
	return "https://vm.example.com/" + vmid, true
}

// stubGateway settles the invoice id baked into the webhook body.
type stubGateway struct{}

func (stubGateway) Metadata() extension.Metadata {
	return extension.Metadata{Name: "stubpay", Description: "test gateway", Category: extension.CategoryGateway}
}
func (stubGateway) ConfigFields(extension.Config) []extension.Field { return nil }
func (stubGateway) Pay(_ context.Context, inv extension.Invoice) (*extension.PaymentResult, error) {
	return &extension.PaymentResult{
		RedirectURL: "https://checkout.example.com/x",
		Reference:   fmt.Sprintf("ref-%d", inv.ID),
		Status:      "pending",
	}, nil
}
func (stubGateway) Webhook(_ context.Context, req extension.WebhookRequest) (*extension.WebhookResult, error) {
	if req.Headers.Get("X-Stub-Signature") != "valid" {
		return nil, fmt.Errorf("signature verification failed")
	}
	var payload struct {
		InvoiceID string `json:"invoice_id"`
	}
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		return nil, err
	}
	return &extension.WebhookResult{Event: "settled", InvoiceID: payload.InvoiceID, Status: "paid"}, nil
}

type harness struct {
	handler       http.Handler
	store         *store.Store
	adminToken    string
	customerToken string
	adminID       int64
	customerID    int64
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "payd-api-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	st, err := store.Open(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Init())
	t.Cleanup(func() { st.Close() })

	reg := extension.New()
	reg.RegisterServer("stubvm", func(extension.Config) extension.Server { return stubVM{} })
	reg.RegisterGateway("stubpay", func(extension.Config) extension.Gateway { return stubGateway{} })

	cfg := &config.Config{}
	tokens := auth.NewManager([]byte("test-secret"), "payd", time.Minute)
	bm := billing.New(st, reg, cfg, nil)
	srv := api.NewServer(st, tokens, bm, reg, cfg, nil)

	h := &harness{handler: srv.Router(), store: st}

	ctx := context.Background()
	hash, err := auth.HashPassword("password1")
	require.NoError(t, err)

	h.adminID, err = st.CreateUser(ctx, &store.User{
		FirstName: "Admin", LastName: "User", Email: "admin@example.com",
		Password: hash, Role: "admin", IsActive: true,
	})
	require.NoError(t, err)
	h.customerID, err = st.CreateUser(ctx, &store.User{
		FirstName: "Cust", LastName: "Omer", Email: "customer@example.com",
		Password: hash, IsActive: true,
	})
	require.NoError(t, err)

	h.adminToken, err = tokens.Issue(h.adminID, "admin@example.com", "admin")
	require.NoError(t, err)
	h.customerToken, err = tokens.Issue(h.customerID, "customer@example.com", "customer")
	require.NoError(t, err)

	return h
}

// do runs one request through the router and returns the recorder.
func (h *harness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

// data decodes the data field of a response envelope into out.
func data(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, out))
}

// --- Auth ---

func TestRegisterLoginMe(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "POST", "/api/v1/auth/register", "", map[string]string{
		"first_name": "New", "last_name": "User",
		"email": "new@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var reg struct {
		Token string      `json:"token"`
		User  *store.User `json:"user"`
	}
	data(t, rec, &reg)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "customer", reg.User.Role)

	rec = h.do(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"email": "new@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var login struct {
		Token string `json:"token"`
	}
	data(t, rec, &login)

	rec = h.do(t, "GET", "/api/v1/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var me store.User
	data(t, rec, &me)
	assert.Equal(t, "new@example.com", me.Email)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "POST", "/api/v1/auth/register", "", map[string]string{
		"email": "admin@example.com", "password": "whatever",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginBadCredentials(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"email": "admin@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "GET", "/api/v1/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, "GET", "/api/v1/orders", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// --- Users ---

func TestUsersAdminOnly(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "GET", "/api/v1/users", h.customerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, "GET", "/api/v1/users", h.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var users []*store.User
	data(t, rec, &users)
	assert.Len(t, users, 2)
}

func TestUpdateUserRole(t *testing.T) {
	h := newHarness(t)

	path := "/api/v1/users/" + strconv.FormatInt(h.customerID, 10)
	rec := h.do(t, "PUT", path, h.adminToken, map[string]any{"role": "admin"})
	require.Equal(t, http.StatusOK, rec.Code)

	var u store.User
	data(t, rec, &u)
	assert.Equal(t, "admin", u.Role)

	rec = h.do(t, "PUT", path, h.adminToken, map[string]any{"role": "superuser"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- Orders ---

func TestOrderScoping(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "POST", "/api/v1/orders", h.customerToken, map[string]string{"currency_code": "EUR"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var order store.Order
	data(t, rec, &order)
	assert.Equal(t, h.customerID, order.UserID)

	// Admin sees it, another customer's view is scoped to their own.
	rec = h.do(t, "GET", "/api/v1/orders", h.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []*store.Order
	data(t, rec, &all)
	assert.Len(t, all, 1)

	rec = h.do(t, "GET", "/api/v1/orders/"+strconv.FormatInt(order.ID, 10), h.adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetMissingOrder(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "GET", "/api/v1/orders/999", h.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Services ---

func (h *harness) createService(t *testing.T) int64 {
	t.Helper()
	rec := h.do(t, "POST", "/api/v1/orders", h.customerToken, map[string]string{})
	require.Equal(t, http.StatusCreated, rec.Code)
	var order store.Order
	data(t, rec, &order)

	rec = h.do(t, "POST", "/api/v1/services", h.adminToken, map[string]any{
		"user_id": h.customerID, "order_id": order.ID,
		"name": "web-01", "extension": "stubvm", "price": 9.99,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var svc store.Service
	data(t, rec, &svc)
	return svc.ID
}

func TestServiceLifecycleOverAPI(t *testing.T) {
	h := newHarness(t)
	sid := h.createService(t)
	base := "/api/v1/services/" + strconv.FormatInt(sid, 10)

	// Customers cannot run lifecycle operations.
	rec := h.do(t, "POST", base+"/provision", h.customerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, "POST", base+"/provision", h.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Driver state persisted by provision feeds the login URL.
	rec = h.do(t, "GET", base+"/login", h.customerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var login map[string]string
	data(t, rec, &login)
	assert.Equal(t, "https://vm.example.com/555", login["url"])

	rec = h.do(t, "POST", base+"/suspend", h.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, "GET", base, h.customerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var svc store.Service
	data(t, rec, &svc)
	assert.Equal(t, store.ServiceStatusSuspended, svc.Status)
}

func TestCreateServiceUnknownExtension(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "POST", "/api/v1/services", h.adminToken, map[string]any{
		"user_id": h.customerID, "order_id": 1,
		"name": "x", "extension": "nothere",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServiceOwnershipEnforced(t *testing.T) {
	h := newHarness(t)
	sid := h.createService(t)

	// A second customer cannot read the first one's service.
	ctx := context.Background()
	hash, err := auth.HashPassword("password1")
	require.NoError(t, err)
	otherID, err := h.store.CreateUser(ctx, &store.User{
		FirstName: "Other", LastName: "User", Email: "other@example.com",
		Password: hash, IsActive: true,
	})
	require.NoError(t, err)
	otherToken, err := auth.NewManager([]byte("test-secret"), "payd", time.Minute).
		Issue(otherID, "other@example.com", "customer")
	require.NoError(t, err)

	rec := h.do(t, "GET", "/api/v1/services/"+strconv.FormatInt(sid, 10), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// --- Invoices ---

func (h *harness) createInvoice(t *testing.T) int64 {
	t.Helper()
	rec := h.do(t, "POST", "/api/v1/invoices", h.adminToken, map[string]any{
		"user_id": h.customerID,
		"items":   []map[string]any{{"description": "VPS hosting", "price": 10.0}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var inv store.Invoice
	data(t, rec, &inv)
	return inv.ID
}

func TestPayInvoiceReturnsRedirect(t *testing.T) {
	h := newHarness(t)
	id := h.createInvoice(t)

	rec := h.do(t, "POST", fmt.Sprintf("/api/v1/invoices/%d/pay", id), h.customerToken,
		map[string]string{"gateway": "stubpay"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res extension.PaymentResult
	data(t, rec, &res)
	assert.Equal(t, "https://checkout.example.com/x", res.RedirectURL)
	assert.Equal(t, fmt.Sprintf("ref-%d", id), res.Reference)
}

func TestPayInvoiceAlreadyPaidIsConflict(t *testing.T) {
	h := newHarness(t)
	id := h.createInvoice(t)
	require.NoError(t, h.store.MarkInvoicePaid(context.Background(), id))

	rec := h.do(t, "POST", fmt.Sprintf("/api/v1/invoices/%d/pay", id), h.customerToken,
		map[string]string{"gateway": "stubpay"})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestPayInvoiceUnknownGateway(t *testing.T) {
	h := newHarness(t)
	id := h.createInvoice(t)

	rec := h.do(t, "POST", fmt.Sprintf("/api/v1/invoices/%d/pay", id), h.customerToken,
		map[string]string{"gateway": "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhookSettlesInvoice(t *testing.T) {
	h := newHarness(t)
	id := h.createInvoice(t)

	body := fmt.Sprintf(`{"invoice_id":"%d"}`, id)
	req := httptest.NewRequest("POST", "/api/v1/webhooks/stubpay", bytes.NewBufferString(body))
	req.Header.Set("X-Stub-Signature", "valid")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	inv, err := h.store.GetInvoice(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, store.InvoiceStatusPaid, inv.Status)
}

func TestWebhookBadSignature(t *testing.T) {
	h := newHarness(t)
	id := h.createInvoice(t)

	body := fmt.Sprintf(`{"invoice_id":"%d"}`, id)
	req := httptest.NewRequest("POST", "/api/v1/webhooks/stubpay", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	inv, err := h.store.GetInvoice(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, store.InvoiceStatusPending, inv.Status)
}

func TestWebhookUnknownGateway(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest("POST", "/api/v1/webhooks/ghost", bytes.NewBufferString("{}"))
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Tickets ---

func TestTicketFlow(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "POST", "/api/v1/tickets", h.customerToken, map[string]string{
		"subject": "VM unreachable", "message": "It stopped responding an hour ago",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var ticket store.Ticket
	data(t, rec, &ticket)
	require.Len(t, ticket.Messages, 1)
	assert.False(t, ticket.Messages[0].IsStaff)

	base := "/api/v1/tickets/" + strconv.FormatInt(ticket.ID, 10)

	// Staff reply is flagged as such.
	rec = h.do(t, "POST", base+"/messages", h.adminToken, map[string]string{"message": "On it"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(t, "GET", base, h.customerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data(t, rec, &ticket)
	require.Len(t, ticket.Messages, 2)
	assert.True(t, ticket.Messages[1].IsStaff)

	rec = h.do(t, "POST", base+"/close", h.customerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, "POST", base+"/messages", h.customerToken, map[string]string{"message": "one more"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "closed tickets reject new messages")
}

func TestTicketInvalidPriority(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "POST", "/api/v1/tickets", h.customerToken, map[string]string{
		"subject": "x", "priority": "urgent",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- Extension queries ---

func TestExtensionQueriesAdminOnly(t *testing.T) {
	h := newHarness(t)

	// Config schemas describe gateway and hypervisor credentials; the
	// whole query surface is restricted to administrators.
	paths := []string{
		"/api/v1/extensions",
		"/api/v1/extensions/server",
		"/api/v1/extensions/server/stubvm",
		"/api/v1/extensions/server/stubvm/metadata",
		"/api/v1/extensions/server/stubvm/config",
	}
	for _, path := range paths {
		rec := h.do(t, "GET", path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)

		rec = h.do(t, "GET", path, h.customerToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}
}

func TestListExtensions(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "GET", "/api/v1/extensions", h.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listing map[string][]string
	data(t, rec, &listing)
	assert.Equal(t, []string{"stubvm"}, listing["server"])
	assert.Equal(t, []string{"stubpay"}, listing["gateway"])
	assert.Empty(t, listing["other"])
}

func TestListExtensionCategory(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "GET", "/api/v1/extensions/server", h.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Filtered listings keep the mapping shape of the full listing.
	var listing map[string][]string
	data(t, rec, &listing)
	require.Len(t, listing, 1)
	assert.Equal(t, []string{"stubvm"}, listing["server"])
}

func TestInvalidCategoryIsBadRequest(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "GET", "/api/v1/extensions/servers", h.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAbsentExtensionIsNotFound(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "GET", "/api/v1/extensions/server/ghost", h.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, "GET", "/api/v1/extensions/server/ghost/metadata", h.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, "GET", "/api/v1/extensions/server/ghost/config", h.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExtensionDetail(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "GET", "/api/v1/extensions/server/STUBVM", h.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, "lookup is case-insensitive")

	var detail struct {
		Metadata extension.Metadata `json:"metadata"`
		Fields   []extension.Field  `json:"fields"`
	}
	data(t, rec, &detail)
	assert.Equal(t, "stubvm", detail.Metadata.Name)
	require.Len(t, detail.Fields, 1)
	assert.Equal(t, "node", detail.Fields[0].Name)
}

func TestExtensionMetadata(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "GET", "/api/v1/extensions/server/stubvm/metadata", h.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var meta extension.Metadata
	data(t, rec, &meta)
	assert.Equal(t, "stubvm", meta.Name)
	assert.Equal(t, extension.CategoryServer, meta.Category)
}

func TestExtensionConfigSchema(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "GET", "/api/v1/extensions/server/stubvm/config", h.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var fields []extension.Field
	data(t, rec, &fields)
	require.Len(t, fields, 1)
	assert.Equal(t, "node", fields[0].Name)
	assert.True(t, fields[0].Required)
}
