package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/twinpizza/backend-orders/internal/notify"
)

func TestSMSGatewaySendsPayload(t *testing.T) {
	var gotAuth string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	gw := &notify.SMSGateway{Client: srv.Client(), Endpoint: srv.URL, APIKey: "secret"}
	require.NoError(t, gw.Send(context.Background(), "+33612345678", "Vous avez gagné 60 points."))
	require.Equal(t, "Bearer secret", gotAuth)
	require.Equal(t, "+33612345678", gotBody["to"])
	require.Equal(t, "Vous avez gagné 60 points.", gotBody["body"])
}

func TestSMSGatewayRejectsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "provider down", http.StatusBadGateway)
	}))
	defer srv.Close()

	gw := &notify.SMSGateway{Client: srv.Client(), Endpoint: srv.URL}
	err := gw.Send(context.Background(), "+33612345678", "test")
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}

func TestPrinterGatewayPushesTicket(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 1024)
		n, _ := r.Body.Read(buf)
		got = string(buf[:n])
	}))
	defer srv.Close()

	gw := &notify.PrinterGateway{Client: srv.Client(), Endpoint: srv.URL}
	require.NoError(t, gw.Print(context.Background(), "COMMANDE A1B2C3D4\n"))
	require.Contains(t, got, "COMMANDE A1B2C3D4")
}
