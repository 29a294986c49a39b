package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cafe-storefront/internal/backend"
	"github.com/noah-isme/cafe-storefront/internal/cart"
	"github.com/noah-isme/cafe-storefront/internal/catalog"
	"github.com/noah-isme/cafe-storefront/internal/common"
	"github.com/noah-isme/cafe-storefront/internal/events"
	"github.com/noah-isme/cafe-storefront/internal/pricing"
	"github.com/noah-isme/cafe-storefront/internal/session"
)

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

type topicRecorder struct{ topics []string }

func (r *topicRecorder) Notify(_ context.Context, ev events.Event) error {
	r.topics = append(r.topics, ev.Topic)
	return nil
}

type orderFixture struct {
	service  *Service
	sessions *session.Store
	carts    *cart.Registry
	tasks    *fakeEnqueuer
	topics   *topicRecorder
	posted   backend.CreateOrderRequest
	auth     string
	status   int
	onPost   func()
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	f := &orderFixture{tasks: &fakeEnqueuer{}, topics: &topicRecorder{}, status: http.StatusCreated}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/orders":
			_ = json.NewDecoder(r.Body).Decode(&f.posted)
			if f.onPost != nil {
				f.onPost()
			}
			w.WriteHeader(f.status)
			if f.status >= 300 {
				_, _ = w.Write([]byte(`{"detail":"boom"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":501,"status":"pending"}`))
		case r.URL.Path == "/users/7/orders":
			_, _ = w.Write([]byte(`[{"id":501,"date":"2026-10-01","total":52272,"status":"pending"},{"id":"500","date":"2026-09-12","total":12100,"status":"delivered"}]`))
		case r.URL.Path == "/orders/501":
			_, _ = w.Write([]byte(`{"id":501,"date":"2026-10-01","total":52272,"status":"pending","items":[{"id":1,"product_name":"Café Huila","quantity":2,"price":21600}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Not found"}`))
		}
	}))
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f.sessions = session.NewStore(rdb, time.Hour)
	f.carts = cart.NewRegistry(cart.RegistryConfig{TaxRate: pricing.DefaultTaxRate})
	f.service = &Service{
		Backend:  backend.New(backend.Config{BaseURL: srv.URL, Logger: zerolog.Nop()}),
		Sessions: f.sessions,
		Carts:    f.carts,
		Tasks:    f.tasks,
		Bus:      &events.Bus{Notifiers: []events.Notifier{f.topics}},
		Logger:   zerolog.Nop(),
	}
	return f
}

func (f *orderFixture) customer(t *testing.T, phone, address string) session.Session {
	t.Helper()
	sess, err := f.sessions.New(context.Background())
	require.NoError(t, err)
	sess.User = &session.User{ID: "7", Email: "ana@example.com", Name: "Ana Pérez", Phone: phone, Address: address, UserType: session.UserTypeRetail}
	sess.BackendToken = "backend-token"
	require.NoError(t, f.sessions.Save(context.Background(), sess))
	return sess
}

func (f *orderFixture) fill(t *testing.T, sessionID string) {
	t.Helper()
	huila := catalog.Product{ID: "3", Name: "Café Huila", Price: decimal.NewFromInt(12000)}
	_, err := f.carts.Get(sessionID).Add(context.Background(), huila, cart.GrindEspresso, cart.Regular{Presentation: pricing.Half, Quantity: 2})
	require.NoError(t, err)
}

func TestPlaceSubmitsCartAndClearsIt(t *testing.T) {
	f := newOrderFixture(t)
	sess := f.customer(t, "1155550000", "Av. Siempre Viva 742, CABA, Buenos Aires, 1405")
	f.fill(t, sess.ID)

	placed, err := f.service.Place(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Equal(t, "501", placed.OrderID)
	require.Equal(t, "pending", placed.Status)
	require.Equal(t, "¡Pedido realizado!", placed.Notice.Title)
	require.Equal(t, "52272.00", placed.Summary.Totals.Formatted.Total)

	require.Equal(t, "Bearer backend-token", f.auth)
	require.Equal(t, "7", f.posted.UserID)
	require.Equal(t, "1155550000", f.posted.Phone)
	require.Equal(t, "43200.00", f.posted.Subtotal)
	require.Equal(t, "9072.00", f.posted.Tax)
	require.Len(t, f.posted.Items, 1)
	line := f.posted.Items[0]
	require.Equal(t, "3", line.ProductID)
	require.Equal(t, "espresso", line.Grind)
	require.Equal(t, "half", line.Presentation)
	require.Equal(t, 2, line.Quantity)
	require.Equal(t, "21600.00", line.UnitPrice)
	require.Equal(t, "43200.00", line.Total)

	require.Zero(t, f.carts.CurrentCount(sess.ID))
	require.Len(t, f.tasks.tasks, 1)
	require.Equal(t, TypeConfirmation, f.tasks.tasks[0].Type())
	require.Contains(t, f.topics.topics, events.TopicOrderPlaced)
}

func TestPlaceKeepsItemsAddedWhileSubmitting(t *testing.T) {
	f := newOrderFixture(t)
	sess := f.customer(t, "1155550000", "Av. Siempre Viva 742, CABA, Buenos Aires, 1405")
	f.fill(t, sess.ID)
	f.onPost = func() {
		narino := catalog.Product{ID: "9", Name: "Café Nariño", Price: decimal.NewFromInt(15000)}
		_, _ = f.carts.Get(sess.ID).Add(context.Background(), narino, cart.GrindWhole, cart.Regular{Quantity: 1})
	}

	placed, err := f.service.Place(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Equal(t, 2, placed.Summary.Count)
	require.Len(t, f.posted.Items, 1)

	store, ok := f.carts.Lookup(sess.ID)
	require.True(t, ok)
	items := store.Items()
	require.Len(t, items, 1)
	require.Equal(t, "9", items[0].Product.ID)
	require.Equal(t, 1, f.carts.CurrentCount(sess.ID))
}

func TestPlaceRequiresContactData(t *testing.T) {
	f := newOrderFixture(t)
	sess := f.customer(t, "", "Calle 1")
	f.fill(t, sess.ID)

	_, err := f.service.Place(context.Background(), sess.ID)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
	fields := appErr.Details.(map[string]any)["fields"].(map[string]string)
	require.Contains(t, fields, "phone")
	require.NotContains(t, fields, "address")
	require.Equal(t, 2, f.carts.CurrentCount(sess.ID))
}

func TestPlaceRejectsEmptyCart(t *testing.T) {
	f := newOrderFixture(t)
	sess := f.customer(t, "221", "Calle 1")

	_, err := f.service.Place(context.Background(), sess.ID)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "EMPTY_CART", appErr.Code)
	require.Empty(t, f.tasks.tasks)
}

func TestPlaceRequiresSignIn(t *testing.T) {
	f := newOrderFixture(t)
	anon, err := f.sessions.New(context.Background())
	require.NoError(t, err)
	f.fill(t, anon.ID)

	_, err = f.service.Place(context.Background(), anon.ID)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus)
}

func TestPlaceBackendFailureKeepsCart(t *testing.T) {
	f := newOrderFixture(t)
	f.status = http.StatusBadRequest
	sess := f.customer(t, "221", "Calle 1")
	f.fill(t, sess.ID)

	_, err := f.service.Place(context.Background(), sess.ID)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusBadGateway, appErr.HTTPStatus)
	require.Equal(t, 2, f.carts.CurrentCount(sess.ID))
	require.Empty(t, f.tasks.tasks)
}

func TestSummaryWithoutCart(t *testing.T) {
	f := newOrderFixture(t)
	sess := f.customer(t, "", "")

	sum, err := f.service.Summary(context.Background(), sess.ID)
	require.NoError(t, err)
	require.False(t, sum.Ready)
	require.Zero(t, sum.Count)
	require.Empty(t, sum.Groups)
	require.Equal(t, "0.00", sum.Totals.Formatted.Total)
	require.Equal(t, "Ana Pérez", sum.Customer.Name)
}

func TestHistoryAndDetail(t *testing.T) {
	f := newOrderFixture(t)
	sess := f.customer(t, "221", "Calle 1")

	orders, err := f.service.History(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, backend.ID("500"), orders[1].ID)

	detail, err := f.service.Detail(context.Background(), sess.ID, "501")
	require.NoError(t, err)
	require.Len(t, detail.Items, 1)
	require.Equal(t, "Café Huila", detail.Items[0].ProductName)

	_, err = f.service.Detail(context.Background(), sess.ID, "404")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
}
