package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamikdash/storefront/internal/emaillogs"
	"github.com/hamikdash/storefront/internal/models"
	"github.com/hamikdash/storefront/pkg/queue"
)

type mailServer struct {
	mu       sync.Mutex
	received []Email
	auth     []string
	status   int
}

func newMailServer(t *testing.T, status int) (*mailServer, *httptest.Server) {
	t.Helper()
	ms := &mailServer{status: status}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		var e Email
		_ = json.NewDecoder(r.Body).Decode(&e)
		ms.mu.Lock()
		ms.received = append(ms.received, e)
		ms.auth = append(ms.auth, r.Header.Get("Authorization"))
		ms.mu.Unlock()
		w.WriteHeader(ms.status)
		_, _ = w.Write([]byte(`{"id":"msg_1"}`))
	}))
	t.Cleanup(srv.Close)
	return ms, srv
}

func sampleOrder() models.Order {
	return models.Order{
		"formId":   "TXN_1",
		"status":   "completed",
		"amount":   199.5,
		"currency": "ILS",
		"customerInfo": map[string]interface{}{
			"fullName": "Dana Levi",
			"email":    "dana@example.com",
			"phone":    "050-1234567",
		},
		"items": []interface{}{
			map[string]interface{}{"id": "p1", "name": "מחתה", "quantity": 2, "price": 99.75},
		},
		"couponCode": "WELCOME10",
	}
}

func TestRender_Bilingual(t *testing.T) {
	msg, err := Render(sampleOrder())
	require.NoError(t, err)

	assert.Equal(t, "הזמנה חדשה / New Order #TXN_1 - ₪199.50", msg.Subject)
	assert.Contains(t, msg.HTML, `dir="rtl"`)
	assert.Contains(t, msg.HTML, `dir="ltr"`)
	assert.Contains(t, msg.HTML, "Dana Levi")
	assert.Contains(t, msg.HTML, "מחתה")
	assert.Contains(t, msg.HTML, "WELCOME10")
	assert.Contains(t, msg.Text, "x2 = ₪199.50")
}

func TestRender_MissingFieldsUsePlaceholders(t *testing.T) {
	msg, err := Render(models.Order{"items": "not-a-list"})
	require.NoError(t, err)

	assert.Contains(t, msg.Subject, "#N/A")
	assert.Contains(t, msg.HTML, missingHe)
	assert.Contains(t, msg.Text, missingHe+" / "+missingEn)
}

func TestRender_EscapesHTML(t *testing.T) {
	o := sampleOrder()
	o["dedication"] = "<script>alert(1)</script>"
	msg, err := Render(o)
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<script>")
}

func TestService_SendOrderNotification(t *testing.T) {
	ms, srv := newMailServer(t, http.StatusOK)
	svc := NewService(NewMailClient(srv.URL, "re_key"), "shop@example.com", "owner@example.com", nil)

	ok := svc.SendOrderNotification(context.Background(), sampleOrder())
	require.True(t, ok)

	require.Len(t, ms.received, 1)
	assert.Equal(t, "Bearer re_key", ms.auth[0])
	assert.Equal(t, []string{"owner@example.com"}, ms.received[0].To)
	assert.Equal(t, "shop@example.com", ms.received[0].From)
	assert.Contains(t, ms.received[0].Subject, "TXN_1")
}

func TestService_NotConfigured(t *testing.T) {
	ms, srv := newMailServer(t, http.StatusOK)

	noKey := NewService(NewMailClient(srv.URL, ""), "shop@example.com", "owner@example.com", nil)
	assert.False(t, noKey.SendOrderNotification(context.Background(), sampleOrder()))

	noRecipient := NewService(NewMailClient(srv.URL, "re_key"), "shop@example.com", "", nil)
	assert.False(t, noRecipient.SendOrderNotification(context.Background(), sampleOrder()))

	assert.Empty(t, ms.received)
}

func TestService_ProviderRejects(t *testing.T) {
	_, srv := newMailServer(t, http.StatusUnprocessableEntity)
	svc := NewService(NewMailClient(srv.URL, "re_key"), "shop@example.com", "owner@example.com", nil)
	assert.False(t, svc.Notify(context.Background(), sampleOrder()))
}

func TestService_RecordsDeliveryLog(t *testing.T) {
	_, okSrv := newMailServer(t, http.StatusOK)
	_, badSrv := newMailServer(t, http.StatusBadGateway)
	logs := emaillogs.NewMemoryRepository()
	ctx := context.Background()

	sent := NewService(NewMailClient(okSrv.URL, "re_key"), "shop@example.com", "owner@example.com", nil)
	sent.SetDeliveryLog(logs)
	require.True(t, sent.SendOrderNotification(ctx, sampleOrder()))

	failed := NewService(NewMailClient(badSrv.URL, "re_key"), "shop@example.com", "owner@example.com", nil)
	failed.SetDeliveryLog(logs)
	require.False(t, failed.SendOrderNotification(ctx, sampleOrder()))

	skipped := NewService(NewMailClient(okSrv.URL, ""), "shop@example.com", "owner@example.com", nil)
	skipped.SetDeliveryLog(logs)
	require.False(t, skipped.SendOrderNotification(ctx, sampleOrder()))

	list, err := logs.List(ctx, "TXN_1", 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, models.EmailLogStatusSkipped, list[0].Status)
	assert.Equal(t, models.EmailLogStatusFailed, list[1].Status)
	assert.NotEmpty(t, list[1].ErrorMessage)
	assert.Equal(t, models.EmailLogStatusSent, list[2].Status)
	assert.Equal(t, "msg_1", list[2].MessageID)
	assert.Equal(t, "owner@example.com", list[2].RecipientEmail)
	assert.NotNil(t, list[2].SentAt)
	assert.Contains(t, list[2].Subject, "TXN_1")
}

type fakeQueue struct {
	payloads []queue.NotificationPayload
	err      error
}

func (f *fakeQueue) EnqueueNotification(_ context.Context, p queue.NotificationPayload) error {
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, p)
	return nil
}

func TestDispatcher_Enqueues(t *testing.T) {
	ms, srv := newMailServer(t, http.StatusOK)
	q := &fakeQueue{}
	d := NewDispatcher(NewService(NewMailClient(srv.URL, "re_key"), "a@b", "c@d", nil), q, nil)

	assert.True(t, d.Notify(context.Background(), sampleOrder()))
	require.Len(t, q.payloads, 1)
	assert.Equal(t, "TXN_1", q.payloads[0].FormID)

	var back models.Order
	require.NoError(t, json.Unmarshal(q.payloads[0].Order, &back))
	assert.Equal(t, "TXN_1", back.FormID())
	assert.Empty(t, ms.received)
}

func TestDispatcher_FallsBackInline(t *testing.T) {
	ms, srv := newMailServer(t, http.StatusOK)
	svc := NewService(NewMailClient(srv.URL, "re_key"), "a@b", "c@d", nil)

	d := NewDispatcher(svc, &fakeQueue{err: errors.New("redis down")}, nil)
	assert.True(t, d.Notify(context.Background(), sampleOrder()))

	inline := NewDispatcher(svc, nil, nil)
	assert.True(t, inline.Notify(context.Background(), sampleOrder()))

	assert.Len(t, ms.received, 2)
}
