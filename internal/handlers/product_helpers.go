package handlers

import (
	"storefront/internal/catalog"
	"storefront/internal/models"
	"storefront/internal/money"
)

type productResponse struct {
	models.Product
	PriceLabel string `json:"priceLabel"`
}

func toProductResponse(p models.Product) productResponse {
	return productResponse{Product: p, PriceLabel: money.Format(p.Price)}
}

func toProductResponses(products []models.Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	return out
}

type productDetailResponse struct {
	Product   productResponse `json:"product"`
	Gallery   []string        `json:"gallery"`
	Favorited bool            `json:"favorited"`
}

func toDetailResponse(d catalog.Detail) productDetailResponse {
	return productDetailResponse{
		Product:   toProductResponse(d.Product),
		Gallery:   d.Gallery,
		Favorited: d.Favorited,
	}
}

type totalsResponse struct {
	Subtotal      float64 `json:"subtotal"`
	Shipping      float64 `json:"shipping"`
	Total         float64 `json:"total"`
	SubtotalLabel string  `json:"subtotalLabel"`
	ShippingLabel string  `json:"shippingLabel"`
	TotalLabel    string  `json:"totalLabel"`
}

func toTotalsResponse(t money.Totals) totalsResponse {
	return totalsResponse{
		Subtotal:      t.Subtotal,
		Shipping:      t.Shipping,
		Total:         t.Total,
		SubtotalLabel: money.Format(t.Subtotal),
		ShippingLabel: money.Format(t.Shipping),
		TotalLabel:    money.Format(t.Total),
	}
}
