package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cafe-storefront/internal/common"
)

func TestConfirmationHandlerSendsEmail(t *testing.T) {
	mail := &common.Outbox{}
	task, err := NewConfirmationTask(ConfirmationPayload{
		OrderID: "501",
		Email:   "ana@example.com",
		Name:    "Ana <Pérez>",
		Lines:   []ConfirmationLine{{Product: "Café Huila", Grind: "Espresso", Label: "1/2 kg", Quantity: 2, Total: "43200.00"}},
		Total:   "52272.00",
	})
	require.NoError(t, err)

	h := ConfirmationHandler{Mail: mail, Logger: zerolog.Nop()}
	require.NoError(t, h.ProcessTask(context.Background(), task))
	sent := mail.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "ana@example.com", sent[0].To)
	require.Equal(t, "Recibimos tu pedido #501", sent[0].Subject)
	require.Contains(t, sent[0].HTML, "Café Huila (Espresso)")
	require.Contains(t, sent[0].HTML, "$52272.00")
	require.Contains(t, sent[0].HTML, "Ana &lt;Pérez&gt;")
}

func TestConfirmationHandlerSkipsBadPayload(t *testing.T) {
	h := ConfirmationHandler{Mail: &common.Outbox{}, Logger: zerolog.Nop()}
	err := h.ProcessTask(context.Background(), asynq.NewTask(TypeConfirmation, []byte("{")))
	require.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestConfirmationHandlerWithoutRecipient(t *testing.T) {
	mail := &common.Outbox{}
	body, _ := json.Marshal(ConfirmationPayload{OrderID: "9"})
	h := ConfirmationHandler{Mail: mail, Logger: zerolog.Nop()}
	require.NoError(t, h.ProcessTask(context.Background(), asynq.NewTask(TypeConfirmation, body)))
	require.Empty(t, mail.Sent())
}

func TestRegisterMountsConfirmation(t *testing.T) {
	mux := asynq.NewServeMux()
	mail := &common.Outbox{}
	Register(mux, ConfirmationHandler{Mail: mail, Logger: zerolog.Nop()})

	body, _ := json.Marshal(ConfirmationPayload{OrderID: "1", Email: "a@b.c"})
	require.NoError(t, mux.ProcessTask(context.Background(), asynq.NewTask(TypeConfirmation, body)))
	require.Len(t, mail.Sent(), 1)
}
