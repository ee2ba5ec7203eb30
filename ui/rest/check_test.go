package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/ozcart/salewatch/domains/catalog"
	"github.com/ozcart/salewatch/ui/rest/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSaleChecker struct {
	response catalog.CheckItemsResponse
	items    []string
	postcode string
}

func (s *stubSaleChecker) CheckItems(_ context.Context, items []string, postcode string) (catalog.CheckItemsResponse, error) {
	s.items = items
	s.postcode = postcode
	return s.response, nil
}

func newCheckApp(service catalog.ISaleCheckUsecase) *fiber.App {
	app := fiber.New()
	app.Use(middleware.Recovery())
	InitRestCheck(app.Group("/api"), service)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestCheckItemsEndpoint(t *testing.T) {
	best := "Full Cream Milk 2L [WOW:123]"
	service := &stubSaleChecker{
		response: catalog.CheckItemsResponse{
			Results: []catalog.ItemResult{{
				Input:     "milk 2L",
				Retailer:  "woolworths",
				BestMatch: &best,
				OnSale:    true,
			}},
			Postcode:     "2000",
			ItemsChecked: 1,
		},
	}
	app := newCheckApp(service)

	resp := postJSON(t, app, "/api/check", catalog.CheckItemsRequest{
		Items:    []string{"milk 2L"},
		Postcode: "2000",
	})
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"milk 2L"}, service.items)
	assert.Equal(t, "2000", service.postcode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), best)
	assert.Contains(t, string(body), `"itemsChecked":1`)
}

func TestCheckItemsEndpointRejectsBadPostcode(t *testing.T) {
	app := newCheckApp(&stubSaleChecker{})

	resp := postJSON(t, app, "/api/check", catalog.CheckItemsRequest{
		Items:    []string{"milk 2L"},
		Postcode: "20AB",
	})
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "VALIDATION_ERROR")
}

func TestCheckItemsEndpointRejectsEmptyItems(t *testing.T) {
	app := newCheckApp(&stubSaleChecker{})

	resp := postJSON(t, app, "/api/check", catalog.CheckItemsRequest{
		Items:    []string{},
		Postcode: "2000",
	})
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
