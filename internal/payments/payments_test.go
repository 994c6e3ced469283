package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamikdash/storefront/internal/models"
	"github.com/hamikdash/storefront/internal/orders"
)

// fakeProvider accepts callbacks signed with "ok".
type fakeProvider struct {
	name      string
	initErr   error
	initiated []Checkout
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Initiate(_ context.Context, c Checkout) (*Session, error) {
	if f.initErr != nil {
		return nil, f.initErr
	}
	f.initiated = append(f.initiated, c)
	return &Session{TransactionID: c.TransactionID, PaymentURL: "https://pay.test/" + c.TransactionID}, nil
}

func (f *fakeProvider) VerifyCallback(_ context.Context, fields map[string]string) (*CallbackResult, error) {
	if fields["Signature"] != "ok" {
		return nil, ErrSignature
	}
	return &CallbackResult{
		TransactionID: fields["ReturnValue"],
		Success:       fields["ResponseCode"] == "0",
		ResponseCode:  fields["ResponseCode"],
		ProviderRef:   fields["InternalDealNumber"],
	}, nil
}

type fakeRedeemer struct{ codes []string }

func (f *fakeRedeemer) Redeem(_ context.Context, code string) (*models.Coupon, error) {
	f.codes = append(f.codes, code)
	return &models.Coupon{Code: code}, nil
}

type fixture struct {
	svc      *Service
	provider *fakeProvider
	orders   *orders.MemoryStore
	redeemer *fakeRedeemer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	orderStore := orders.NewMemoryStore()
	redeemer := &fakeRedeemer{}
	provider := &fakeProvider{name: "cardcom"}
	rec := orders.NewRecorder(orderStore, nil, redeemer, nil)
	return &fixture{
		svc:      NewService(NewMemoryStore(), rec, nil, provider),
		provider: provider,
		orders:   orderStore,
		redeemer: redeemer,
	}
}

func checkout() Checkout {
	return Checkout{
		Items:        []models.OrderItem{{ProductID: "p1", Name: "Menorah", Quantity: 2, Price: 50}},
		TotalAmount:  90,
		CustomerInfo: models.CustomerInfo{FullName: "Dana Levi", Email: "dana@example.com"},
		CouponCode:   "WELCOME10",
	}
}

func TestNewTransactionID(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	id := NewTransactionID(now)
	assert.Regexp(t, `^TXN_1700000000000_[0-9a-z]{9}$`, id)
	assert.NotEqual(t, id, NewTransactionID(now))
}

func TestInitiate_StoresPendingTransaction(t *testing.T) {
	f := newFixture(t)
	sess, err := f.svc.Initiate(context.Background(), "cardcom", checkout())
	require.NoError(t, err)

	tx, err := f.svc.QueryStatus(context.Background(), sess.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionPending, tx.Status)
	assert.Equal(t, "ILS", tx.Currency)
	assert.Equal(t, 90.0, tx.Amount)
	assert.Equal(t, sess.PaymentURL, tx.PaymentURL)
	assert.Equal(t, "WELCOME10", tx.CouponCode)
}

func TestInitiate_NoIdempotency(t *testing.T) {
	f := newFixture(t)
	s1, err := f.svc.Initiate(context.Background(), "cardcom", checkout())
	require.NoError(t, err)
	s2, err := f.svc.Initiate(context.Background(), "cardcom", checkout())
	require.NoError(t, err)
	assert.NotEqual(t, s1.TransactionID, s2.TransactionID)
}

func TestInitiate_Errors(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Initiate(context.Background(), "paypal", checkout())
	assert.ErrorIs(t, err, ErrUnknownProvider)

	f.provider.initErr = ErrNotConfigured
	_, err = f.svc.Initiate(context.Background(), "cardcom", checkout())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestHandleCallback_SettlesAndRecordsOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Initiate(ctx, "cardcom", checkout())
	require.NoError(t, err)

	fields := map[string]string{"ReturnValue": sess.TransactionID, "ResponseCode": "0", "InternalDealNumber": "77", "Signature": "ok"}
	tx, err := f.svc.HandleCallback(ctx, "cardcom", fields, nil)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionCompleted, tx.Status)
	assert.Equal(t, "77", tx.ProviderRef)

	o, err := f.orders.GetByFormID(ctx, sess.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionCompleted, o.Status())
	assert.Equal(t, "77", o["paymentId"])
	assert.Equal(t, "WELCOME10", o.CouponCode())
	assert.Equal(t, []string{"WELCOME10"}, f.redeemer.codes)

	// A replayed callback changes nothing.
	_, err = f.svc.HandleCallback(ctx, "cardcom", fields, nil)
	require.NoError(t, err)
	list, _ := f.orders.List(ctx)
	assert.Len(t, list, 1)
	assert.Len(t, f.redeemer.codes, 1)
}

// failOnceRecorder fails the first order write and delegates afterwards.
type failOnceRecorder struct {
	next   OrderRecorder
	failed bool
}

func (r *failOnceRecorder) Record(ctx context.Context, o models.Order) (int, error) {
	if !r.failed {
		r.failed = true
		return 0, errors.New("db down")
	}
	return r.next.Record(ctx, o)
}

func TestHandleCallback_FailedOrderWriteReopensTransaction(t *testing.T) {
	orderStore := orders.NewMemoryStore()
	redeemer := &fakeRedeemer{}
	recorder := &failOnceRecorder{next: orders.NewRecorder(orderStore, nil, redeemer, nil)}
	svc := NewService(NewMemoryStore(), recorder, nil, &fakeProvider{name: "cardcom"})
	ctx := context.Background()

	sess, err := svc.Initiate(ctx, "cardcom", checkout())
	require.NoError(t, err)
	fields := map[string]string{"ReturnValue": sess.TransactionID, "ResponseCode": "0", "Signature": "ok"}

	_, err = svc.HandleCallback(ctx, "cardcom", fields, nil)
	require.Error(t, err)
	tx, err := svc.QueryStatus(ctx, sess.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionPending, tx.Status)
	list, err := orderStore.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	tx, err = svc.HandleCallback(ctx, "cardcom", fields, nil)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionCompleted, tx.Status)
	o, err := orderStore.GetByFormID(ctx, sess.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionCompleted, o.Status())

	_, err = svc.HandleCallback(ctx, "cardcom", fields, nil)
	require.NoError(t, err)
	list, err = orderStore.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, []string{"WELCOME10"}, redeemer.codes)
}

func TestHandleCallback_FailedPaymentDoesNotRedeem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Initiate(ctx, "cardcom", checkout())
	require.NoError(t, err)

	tx, err := f.svc.HandleCallback(ctx, "cardcom",
		map[string]string{"ReturnValue": sess.TransactionID, "ResponseCode": "5", "Signature": "ok"}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionFailed, tx.Status)
	assert.Empty(t, f.redeemer.codes)

	o, err := f.orders.GetByFormID(ctx, sess.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, "failed", o.Status())
}

func TestHandleCallback_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.HandleCallback(ctx, "cardcom", map[string]string{"ReturnValue": "x", "Signature": "bad"}, nil)
	assert.ErrorIs(t, err, ErrSignature)

	_, err = f.svc.HandleCallback(ctx, "cardcom", map[string]string{"ReturnValue": "TXN_unknown", "Signature": "ok"}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHandleCallback_UnknownTransactionRecordsPayload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payload := models.Order{"formId": "FORM-1", "status": "completed", "amount": 10.0}

	_, err := f.svc.HandleCallback(ctx, "cardcom",
		map[string]string{"ReturnValue": "FORM-1", "ResponseCode": "0", "Signature": "ok"}, payload)
	require.NoError(t, err)

	o, err := f.orders.GetByFormID(ctx, "FORM-1")
	require.NoError(t, err)
	assert.NotEmpty(t, o["receivedAt"])
}

func newTestRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(f.svc, nil)
	r := gin.New()
	r.POST("/api/cardcom/create-payment", h.CreatePayment("cardcom"))
	r.POST("/api/cardcom/callback", h.CardcomCallback)
	r.GET("/api/cardcom/status/:transactionId", h.Status)
	return r
}

func TestHandler_CreatePaymentAndCallback(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(f)

	raw, _ := json.Marshal(checkout())
	req := httptest.NewRequest(http.MethodPost, "/api/cardcom/create-payment", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var created struct {
		Success       bool   `json:"success"`
		PaymentURL    string `json:"paymentUrl"`
		TransactionID string `json:"transactionId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.True(t, created.Success)
	assert.Equal(t, "https://pay.test/"+created.TransactionID, created.PaymentURL)

	form := url.Values{}
	form.Set("ReturnValue", created.TransactionID)
	form.Set("ResponseCode", "0")
	form.Set("Signature", "ok")
	req = httptest.NewRequest(http.MethodPost, "/api/cardcom/callback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cardcom/status/"+created.TransactionID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"completed"`)
}

func TestHandler_Errors(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(f)

	req := httptest.NewRequest(http.MethodPost, "/api/cardcom/create-payment", strings.NewReader(`{"items":[]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.provider.initErr = ErrNotConfigured
	raw, _ := json.Marshal(checkout())
	req = httptest.NewRequest(http.MethodPost, "/api/cardcom/create-payment", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/cardcom/callback", strings.NewReader(`{"ReturnValue":"x","Signature":"forged"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cardcom/status/TXN_missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
