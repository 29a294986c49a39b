// Package order turns the session cart into a backend order and exposes the
// customer's order history.
package order

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cafe-storefront/internal/backend"
	"github.com/noah-isme/cafe-storefront/internal/cart"
	"github.com/noah-isme/cafe-storefront/internal/common"
	"github.com/noah-isme/cafe-storefront/internal/events"
	"github.com/noah-isme/cafe-storefront/internal/obs"
	"github.com/noah-isme/cafe-storefront/internal/pricing"
	"github.com/noah-isme/cafe-storefront/internal/session"
)

var (
	errSignInRequired = common.NewAppError("UNAUTHORIZED", "Inicia sesión para continuar", http.StatusUnauthorized, nil)
	errEmptyCart      = common.NewAppError("EMPTY_CART", "Tu carrito está vacío", http.StatusConflict, nil)
	errNotFound       = common.NewAppError("NOT_FOUND", "Pedido no encontrado", http.StatusNotFound, nil)
)

// Backend is the subset of the backend client used for orders.
type Backend interface {
	Get(ctx context.Context, path, token string, out any) error
	Post(ctx context.Context, path, token string, body, out any) error
}

// Carts looks up the cart of a session without creating one.
type Carts interface {
	Lookup(sessionID string) (*cart.Store, bool)
}

// Enqueuer schedules background tasks. *asynq.Client satisfies it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Customer is the contact data printed on the purchase form.
type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Summary is what the customer confirms before placing the order.
type Summary struct {
	Customer  Customer       `json:"customer"`
	Groups    []cart.Group   `json:"groups"`
	Totals    pricing.Totals `json:"totals"`
	Count     int            `json:"count"`
	Wholesale bool           `json:"wholesale"`
	// Ready is false until the customer has a phone and an address on file.
	Ready bool `json:"ready"`
}

// Notice is the confirmation shown after the order went through.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Placed is the outcome of Place.
type Placed struct {
	OrderID string  `json:"orderId"`
	Status  string  `json:"status"`
	Summary Summary `json:"summary"`
	Notice  Notice  `json:"notice"`
}

var placedNotice = Notice{Title: "¡Pedido realizado!", Description: "Te contactaremos pronto para confirmar tu pedido."}

// Service coordinates sessions, carts and the backend order API.
type Service struct {
	Backend  Backend
	Sessions *session.Store
	Carts    Carts
	Tasks    Enqueuer
	Bus      *events.Bus
	Logger   zerolog.Logger
}

// Summary returns the purchase form data for the session.
func (s *Service) Summary(ctx context.Context, sessionID string) (Summary, error) {
	sess, err := s.signedIn(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	return s.summarize(sess), nil
}

func (s *Service) summarize(sess session.Session) Summary {
	sum, _ := s.snapshot(sess)
	return sum
}

// snapshot summarizes the session cart and returns the items it was built from.
func (s *Service) snapshot(sess session.Session) (Summary, []cart.Item) {
	sum := Summary{
		Customer: Customer{
			Name:    sess.User.Name,
			Email:   sess.User.Email,
			Phone:   sess.User.Phone,
			Address: sess.User.Address,
		},
		Groups:    []cart.Group{},
		Totals:    pricing.Summarize(nil, pricing.DefaultTaxRate),
		Wholesale: sess.User.IsWholesale(),
		Ready:     sess.User.CanOrder(),
	}
	var items []cart.Item
	if store, ok := s.Carts.Lookup(sess.ID); ok {
		view := store.View()
		sum.Groups = view.Groups
		sum.Totals = view.Totals
		sum.Count = view.Count
		items = view.Items
	}
	return sum, items
}

// Place submits the session cart as an order, takes the ordered items out of
// the cart and schedules the confirmation email. Items added while the order
// is in flight stay in the cart.
func (s *Service) Place(ctx context.Context, sessionID string) (Placed, error) {
	sess, err := s.signedIn(ctx, sessionID)
	if err != nil {
		return Placed{}, err
	}
	if !sess.User.CanOrder() {
		fields := map[string]string{}
		if strings.TrimSpace(sess.User.Phone) == "" {
			fields["phone"] = "Ingresa tu teléfono"
		}
		if strings.TrimSpace(sess.User.Address) == "" {
			fields["address"] = "Ingresa tu dirección"
		}
		return Placed{}, common.ValidationError("Completa tus datos de contacto para continuar", fields)
	}
	store, ok := s.Carts.Lookup(sess.ID)
	if !ok || store.Count() == 0 {
		return Placed{}, errEmptyCart
	}

	sum, ordered := s.snapshot(sess)
	if sum.Count == 0 {
		return Placed{}, errEmptyCart
	}
	req := buildRequest(sess.User, sum)

	var resp backend.CreateOrderResponse
	if err := s.Backend.Post(ctx, "/orders", sess.BackendToken, req, &resp); err != nil {
		obs.CountOrder("error")
		s.Logger.Error().Err(err).Str("session_id", sess.ID).Str("user_id", sess.User.ID).Msg("order submission failed")
		return Placed{}, upstreamError(err, "No pudimos registrar tu pedido. Intenta nuevamente.")
	}
	orderID := resp.ID.String()
	status := resp.Status
	if status == "" {
		status = "pending"
	}

	store.Deduct(ctx, ordered)
	obs.CountOrder("ok")

	payload := confirmationFrom(orderID, sess.User, sum)
	if s.Tasks != nil {
		task, err := NewConfirmationTask(payload)
		if err == nil {
			_, err = s.Tasks.EnqueueContext(ctx, task)
		}
		if err != nil {
			s.Logger.Warn().Err(err).Str("order_id", orderID).Msg("enqueue order confirmation")
		}
	}
	if s.Bus != nil {
		if _, err := s.Bus.Emit(ctx, events.TopicOrderPlaced, sess.ID, map[string]any{
			"orderId":   orderID,
			"sessionId": sess.ID,
			"userId":    sess.User.ID,
			"total":     sum.Totals.Formatted.Total,
		}); err != nil {
			s.Logger.Warn().Err(err).Str("topic", events.TopicOrderPlaced).Msg("event fanout failed")
		}
	}
	s.Logger.Info().Str("session_id", sess.ID).Str("order_id", orderID).Str("total", sum.Totals.Formatted.Total).Msg("order placed")
	return Placed{OrderID: orderID, Status: status, Summary: sum, Notice: placedNotice}, nil
}

// History lists the signed-in customer's past orders.
func (s *Service) History(ctx context.Context, sessionID string) ([]backend.OrderSummary, error) {
	sess, err := s.signedIn(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var orders []backend.OrderSummary
	path := "/users/" + url.PathEscape(sess.User.ID) + "/orders"
	if err := s.Backend.Get(ctx, path, sess.BackendToken, &orders); err != nil {
		return nil, upstreamError(err, "No se pudieron cargar tus pedidos")
	}
	if orders == nil {
		orders = []backend.OrderSummary{}
	}
	return orders, nil
}

// Detail returns one order with its lines.
func (s *Service) Detail(ctx context.Context, sessionID, orderID string) (backend.OrderDetail, error) {
	sess, err := s.signedIn(ctx, sessionID)
	if err != nil {
		return backend.OrderDetail{}, err
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return backend.OrderDetail{}, errNotFound
	}
	var detail backend.OrderDetail
	if err := s.Backend.Get(ctx, "/orders/"+url.PathEscape(orderID), sess.BackendToken, &detail); err != nil {
		if backend.IsStatus(err, http.StatusNotFound) {
			return backend.OrderDetail{}, errNotFound
		}
		return backend.OrderDetail{}, upstreamError(err, "No se pudo cargar el pedido")
	}
	return detail, nil
}

func (s *Service) signedIn(ctx context.Context, sessionID string) (session.Session, error) {
	sess, err := s.Sessions.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return session.Session{}, errSignInRequired
		}
		return session.Session{}, err
	}
	if !sess.Authenticated() {
		return session.Session{}, errSignInRequired
	}
	return sess, nil
}

func upstreamError(err error, message string) error {
	if backend.IsStatus(err, http.StatusUnauthorized) {
		return common.NewAppError("UNAUTHORIZED", "Inicia sesión para continuar", http.StatusUnauthorized, err)
	}
	return common.NewAppError("UPSTREAM_ERROR", message, http.StatusBadGateway, err)
}

func buildRequest(u *session.User, sum Summary) backend.CreateOrderRequest {
	req := backend.CreateOrderRequest{
		UserID:   u.ID,
		Phone:    u.Phone,
		Address:  u.Address,
		Subtotal: sum.Totals.Formatted.Subtotal,
		Tax:      sum.Totals.Formatted.Tax,
		Total:    sum.Totals.Formatted.Total,
	}
	for _, g := range sum.Groups {
		for _, row := range g.Rows {
			req.Items = append(req.Items, backend.OrderLine{
				ProductID:    g.ProductID,
				ProductName:  g.Product.Name,
				Grind:        string(g.Grind),
				Presentation: string(row.Presentation),
				Quantity:     row.Quantity,
				UnitPrice:    pricing.UnitPrice(g.Product.Price, row.Presentation).StringFixed(2),
				Total:        row.Total.StringFixed(2),
			})
		}
	}
	return req
}
