package order

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cafe-storefront/internal/common"
	"github.com/noah-isme/cafe-storefront/internal/session"
)

// TypeConfirmation is the asynq task type of the order confirmation email.
const TypeConfirmation = "order:confirmation"

// QueueName is the asynq queue order tasks are enqueued into.
const QueueName = "orders"

// ConfirmationLine is one row of the confirmation email.
type ConfirmationLine struct {
	Product  string `json:"product"`
	Grind    string `json:"grind"`
	Label    string `json:"label"`
	Quantity int    `json:"quantity"`
	Total    string `json:"total"`
}

// ConfirmationPayload is the body of a TypeConfirmation task.
type ConfirmationPayload struct {
	OrderID  string             `json:"orderId"`
	Email    string             `json:"email"`
	Name     string             `json:"name"`
	Phone    string             `json:"phone"`
	Address  string             `json:"address"`
	Lines    []ConfirmationLine `json:"lines"`
	Subtotal string             `json:"subtotal"`
	Tax      string             `json:"tax"`
	Total    string             `json:"total"`
}

func confirmationFrom(orderID string, u *session.User, sum Summary) ConfirmationPayload {
	p := ConfirmationPayload{
		OrderID:  orderID,
		Email:    u.Email,
		Name:     u.Name,
		Phone:    u.Phone,
		Address:  u.Address,
		Subtotal: sum.Totals.Formatted.Subtotal,
		Tax:      sum.Totals.Formatted.Tax,
		Total:    sum.Totals.Formatted.Total,
	}
	for _, g := range sum.Groups {
		for _, row := range g.Rows {
			p.Lines = append(p.Lines, ConfirmationLine{
				Product:  g.Product.Name,
				Grind:    g.GrindLabel,
				Label:    row.Label,
				Quantity: row.Quantity,
				Total:    row.Total.StringFixed(2),
			})
		}
	}
	return p
}

// NewConfirmationTask builds the task that emails the order confirmation.
func NewConfirmationTask(p ConfirmationPayload) (*asynq.Task, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode confirmation: %w", err)
	}
	return asynq.NewTask(TypeConfirmation, body,
		asynq.Queue(QueueName),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
		asynq.TaskID("order-confirmation:"+p.OrderID),
	), nil
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<p>Hola {{.Name}},</p>
<p>Recibimos tu pedido <strong>#{{.OrderID}}</strong>. Te contactaremos pronto para confirmarlo.</p>
<table>
{{range .Lines}}<tr><td>{{.Product}} ({{.Grind}})</td><td>{{.Label}}</td><td>{{.Quantity}}</td><td>${{.Total}}</td></tr>
{{end}}</table>
<p>Subtotal: ${{.Subtotal}}<br>IVA: ${{.Tax}}<br><strong>Total: ${{.Total}}</strong></p>
<p>Entrega: {{.Address}}<br>Teléfono: {{.Phone}}</p>`))

// ConfirmationHandler emails the customer once an order was placed.
type ConfirmationHandler struct {
	Mail   common.EmailSender
	Logger zerolog.Logger
}

// ProcessTask implements asynq.Handler.
func (h ConfirmationHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p ConfirmationPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode confirmation: %v: %w", err, asynq.SkipRetry)
	}
	logger := h.Logger.With().Str("order_id", p.OrderID).Logger()
	if strings.TrimSpace(p.Email) == "" {
		logger.Warn().Msg("order confirmation without recipient")
		return nil
	}
	var body bytes.Buffer
	if err := confirmationTemplate.Execute(&body, p); err != nil {
		return fmt.Errorf("render confirmation: %v: %w", err, asynq.SkipRetry)
	}
	if h.Mail == nil {
		logger.Info().Msg("order confirmation skipped: no mailer")
		return nil
	}
	msg := common.Email{
		To:      p.Email,
		Subject: fmt.Sprintf("Recibimos tu pedido #%s", p.OrderID),
		HTML:    body.String(),
	}
	if err := h.Mail.Send(ctx, msg); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	logger.Info().Str("to", p.Email).Msg("order confirmation sent")
	return nil
}

// Register mounts the order task handlers on mux.
func Register(mux *asynq.ServeMux, h ConfirmationHandler) {
	mux.Handle(TypeConfirmation, h)
}
