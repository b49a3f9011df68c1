package flowcontext

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommerceServer(t *testing.T) *httptest.Server {
	t.Helper()

	router := mux.NewRouter()
	router.HandleFunc("/threads/{id}/order", func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["id"] != "thread-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"orderId": "order-1"})
	})
	router.HandleFunc("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if mux.Vars(r)["id"] != "order-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(Order{ID: "order-1", OrderNumber: "1001", CreatedAt: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)})
	})
	router.HandleFunc("/orders/{id}/line-items", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"id":"li-1","productName":"Desk Lamp","quantity":1,"warranty":{"warrantyDays":90,"coversDamagedItems":true}}]}`))
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPOrderStore_Found(t *testing.T) {
	srv := newCommerceServer(t)
	store := NewHTTPOrderStore(srv.URL+"/", "secret", 0)
	ctx := context.Background()

	orderID, err := store.OrderIDForThread(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", orderID)

	order, err := store.GetOrder(ctx, orderID)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "1001", order.OrderNumber)

	items, err := store.GetLineItems(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "li-1", items[0].Warranty.LineItemID)
	assert.Equal(t, 90, items[0].Warranty.WarrantyDays)
	assert.True(t, items[0].Warranty.CoversDamagedItems)
}

func TestHTTPOrderStore_NotFound(t *testing.T) {
	srv := newCommerceServer(t)
	store := NewHTTPOrderStore(srv.URL, "secret", time.Second)
	ctx := context.Background()

	orderID, err := store.OrderIDForThread(ctx, "thread-2")
	require.NoError(t, err)
	assert.Empty(t, orderID)

	order, err := store.GetOrder(ctx, "order-2")
	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestHTTPOrderStore_ErrorStatus(t *testing.T) {
	srv := newCommerceServer(t)
	store := NewHTTPOrderStore(srv.URL, "wrong", time.Second)

	_, err := store.GetOrder(context.Background(), "order-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestHTTPOrderStore_FeedsBuilder(t *testing.T) {
	srv := newCommerceServer(t)
	b := NewBuilder(NewHTTPOrderStore(srv.URL, "secret", time.Second), nil)

	fc := b.Build(context.Background(), "thread-1", "")
	require.True(t, fc.HasOrder)
	assert.Equal(t, "1001", fc.Order.OrderNumber)
	assert.Len(t, fc.Items, 1)
}
