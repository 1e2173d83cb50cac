package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightloom/billing_api/internal/models"
	"github.com/brightloom/billing_api/internal/service"
)

type stubCatalogGateway struct {
	products []models.RawProduct
	prices   []models.RawPrice
	err      error
}

func (g *stubCatalogGateway) ListActiveProducts(ctx context.Context) ([]models.RawProduct, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.products, nil
}

func (g *stubCatalogGateway) ListActivePrices(ctx context.Context) ([]models.RawPrice, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.prices, nil
}

func catalogRouter(gw service.CatalogGateway) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewCatalogHandler(service.NewCatalogService(gw, time.Minute))
	r.GET("/v1/catalog", h.GetCatalog)
	r.GET("/v1/catalog/:planId", h.GetPlan)
	r.GET("/v1/catalog/:planId/price", h.ValidatePrice)
	r.POST("/v1/admin/catalog/refresh", h.Refresh)
	return r
}

func seededCatalogGateway() *stubCatalogGateway {
	return &stubCatalogGateway{
		products: []models.RawProduct{
			{ID: "prod_1", Name: "Starter", Active: true, Metadata: map[string]string{
				"plan_id":       "starter",
				"display_order": "1",
			}},
			{ID: "prod_2", Name: "Pro", Active: true, Metadata: map[string]string{
				"plan_id":       "pro",
				"display_order": "2",
			}},
		},
		prices: []models.RawPrice{
			{ID: "price_starter_m", ProductID: "prod_1", Active: true, UnitAmount: 900, Currency: "usd",
				Recurring: &models.Recurring{Interval: "month", IntervalCount: 1}},
			{ID: "price_pro_m", ProductID: "prod_2", Active: true, UnitAmount: 2900, Currency: "usd",
				Recurring: &models.Recurring{Interval: "month", IntervalCount: 1}},
		},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func doRequest(t *testing.T, router *gin.Engine, method, path string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func TestGetCatalogReturnsOrderedPlans(t *testing.T) {
	router := catalogRouter(seededCatalogGateway())

	code, env := doRequest(t, router, http.MethodGet, "/v1/catalog")
	require.Equal(t, http.StatusOK, code)
	require.True(t, env.Success)

	var data struct {
		Plans      []models.Plan `json:"plans"`
		TTLSeconds int           `json:"ttlSeconds"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Plans, 2)
	assert.Equal(t, "starter", data.Plans[0].PlanID)
	assert.Equal(t, "pro", data.Plans[1].PlanID)
	assert.Equal(t, 60, data.TTLSeconds)
}

func TestGetCatalogProviderFailure(t *testing.T) {
	router := catalogRouter(&stubCatalogGateway{err: errors.New("provider down")})

	code, env := doRequest(t, router, http.MethodGet, "/v1/catalog")
	assert.Equal(t, http.StatusBadGateway, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CATALOG_UNAVAILABLE", env.Error.Code)
}

func TestGetPlan(t *testing.T) {
	router := catalogRouter(seededCatalogGateway())

	code, env := doRequest(t, router, http.MethodGet, "/v1/catalog/pro")
	require.Equal(t, http.StatusOK, code)

	var plan models.Plan
	require.NoError(t, json.Unmarshal(env.Data, &plan))
	assert.Equal(t, "Pro", plan.Name)
	assert.Contains(t, plan.Prices, models.CycleMonthly)
}

func TestGetPlanNotFound(t *testing.T) {
	router := catalogRouter(seededCatalogGateway())

	code, env := doRequest(t, router, http.MethodGet, "/v1/catalog/nonexistent")
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "PLAN_NOT_FOUND", env.Error.Code)
}

func TestValidatePriceEndpoint(t *testing.T) {
	router := catalogRouter(seededCatalogGateway())

	code, env := doRequest(t, router, http.MethodGet, "/v1/catalog/starter/price?cycle=monthly")
	require.Equal(t, http.StatusOK, code)

	var data struct {
		PriceID string `json:"priceId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "price_starter_m", data.PriceID)
}

func TestValidatePriceMissingCycle(t *testing.T) {
	router := catalogRouter(seededCatalogGateway())

	code, env := doRequest(t, router, http.MethodGet, "/v1/catalog/starter/price")
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)
}

func TestValidatePriceUnknownCycle(t *testing.T) {
	router := catalogRouter(seededCatalogGateway())

	code, env := doRequest(t, router, http.MethodGet, "/v1/catalog/starter/price?cycle=yearly")
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "PRICE_NOT_FOUND", env.Error.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	router := catalogRouter(seededCatalogGateway())

	code, env := doRequest(t, router, http.MethodPost, "/v1/admin/catalog/refresh")
	require.Equal(t, http.StatusOK, code)

	var result service.RefreshResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 2, result.Plans)
	assert.Equal(t, 2, result.Prices)
}
