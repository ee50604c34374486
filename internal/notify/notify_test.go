package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/table-order/internal/config"
	"github.com/vasiliy-maslov/table-order/internal/notify"
)

func TestLINE_Push(t *testing.T) {
	var got struct {
		To       string `json:"to"`
		Messages []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"messages"`
	}
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()

	n := notify.NewLINE("token-123", srv.URL, srv.Client())
	err := n.Push(context.Background(), "U42", "hello")
	require.NoError(t, err)

	assert.Equal(t, "Bearer token-123", auth)
	assert.Equal(t, "U42", got.To)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "text", got.Messages[0].Type)
	assert.Equal(t, "hello", got.Messages[0].Text)
}

func TestLINE_PushRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"The request body has 1 error(s)"}`))
	}))
	defer srv.Close()

	err := notify.NewLINE("t", srv.URL, srv.Client()).Push(context.Background(), "U1", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "1 error(s)")
}

func TestNew_WithoutCredentialsIsNoop(t *testing.T) {
	n := notify.New(config.LineConfig{ChannelAccessToken: "only-token"})
	assert.IsType(t, notify.Noop{}, n)
	assert.NoError(t, n.Push(context.Background(), "U1", "ignored"))

	assert.IsType(t, &notify.LINE{}, notify.New(config.LineConfig{ChannelAccessToken: "a", ChannelSecret: "b"}))
}

func TestOrderConfirmation(t *testing.T) {
	msg := notify.OrderConfirmation("7", "ORD-20250101-ABC123")
	assert.Contains(t, msg, "Table 7")
	assert.Contains(t, msg, "テーブル 7")
	assert.Contains(t, msg, "Order ID: ORD-20250101-ABC123")
	assert.Contains(t, msg, "\n\n")
}
