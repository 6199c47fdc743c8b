package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newRegistryServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestRegistryValidateSerialExact(t *testing.T) {
	unitID := uuid.NewString()
	srv := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/units/"+unitID, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"serial":"` + unitID + `","product_name":"BQ520 Heat Pump"}`))
	})

	client := NewRegistryClient(srv.URL, time.Second)
	record, err := client.Validate(context.Background(), unitID)
	require.NoError(t, err)
	require.Equal(t, unitID, record.UnitID)
	require.Equal(t, "serial-exact", record.MatchedBy)
	require.NotNil(t, record.ProductName)
	require.Equal(t, "BQ520 Heat Pump", *record.ProductName)
}

func TestRegistryValidateFallsBackToPrintedURL(t *testing.T) {
	unitID := uuid.NewString()
	srv := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/units/" + unitID:
			w.WriteHeader(http.StatusNotFound)
		case "/api/units/search":
			require.Equal(t, unitID, r.URL.Query().Get("printed_url"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"items":[{"serial":"` + unitID + `","product_name":"RX900 Compressor"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	client := NewRegistryClient(srv.URL, time.Second)
	record, err := client.Validate(context.Background(), unitID)
	require.NoError(t, err)
	require.Equal(t, "printed-url-contains", record.MatchedBy)
	require.NotNil(t, record.ProductName)
	require.Equal(t, "RX900 Compressor", *record.ProductName)
}

func TestRegistryValidateUnknownUnit(t *testing.T) {
	srv := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/units/search" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"items":[]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	client := NewRegistryClient(srv.URL, time.Second)
	record, err := client.Validate(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, ErrUnknownUnit)
	require.Nil(t, record)
}

func TestRegistryValidateServerErrorIsUnreachable(t *testing.T) {
	srv := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	client := NewRegistryClient(srv.URL, time.Second)
	_, err := client.Validate(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, ErrRegistryUnreachable)
}

func TestRegistryValidateConnectionRefusedIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewRegistryClient(url, time.Second)
	_, err := client.Validate(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, ErrRegistryUnreachable)
}

func TestRegistryValidateStopsAfterFirstHit(t *testing.T) {
	unitID := uuid.NewString()
	var searchCalls int32
	srv := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/units/search" {
			atomic.AddInt32(&searchCalls, 1)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"serial":"` + unitID + `","product_name":"BQ520 Heat Pump"}`))
	})

	client := NewRegistryClient(srv.URL, time.Second)
	_, err := client.Validate(context.Background(), unitID)
	require.NoError(t, err)
	require.Zero(t, atomic.LoadInt32(&searchCalls))
}

func TestRegistryResolvesNameViaProductLookup(t *testing.T) {
	unitID := uuid.NewString()
	productID := "prod-" + uuid.NewString()
	srv := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/units/" + unitID:
			_, _ = w.Write([]byte(`{"serial":"` + unitID + `","product_id":"` + productID + `"}`))
		case "/api/products/" + productID:
			_, _ = w.Write([]byte(`{"id":"` + productID + `","name":"VRF Outdoor Unit"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	client := NewRegistryClient(srv.URL, time.Second)
	record, err := client.Validate(context.Background(), unitID)
	require.NoError(t, err)
	require.NotNil(t, record.ProductName)
	require.Equal(t, "VRF Outdoor Unit", *record.ProductName)
}

func TestRegistryUnresolvedNameIsNotAFailure(t *testing.T) {
	unitID := uuid.NewString()
	productID := "prod-" + uuid.NewString()
	srv := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/units/" + unitID:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"serial":"` + unitID + `","product_id":"` + productID + `"}`))
		default:
			// Product catalogue endpoint is down; the unit check already passed.
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	client := NewRegistryClient(srv.URL, time.Second)
	record, err := client.Validate(context.Background(), unitID)
	require.NoError(t, err)
	require.Nil(t, record.ProductName)
	require.Equal(t, "serial-exact", record.MatchedBy)
}
