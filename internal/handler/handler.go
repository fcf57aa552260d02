// Package handler exposes the domain services as a JSON HTTP API. It is a
// thin mapping layer: request decoding, delegating to a service, and
// translating domain errors into status codes all live here; every business
// rule lives in the domain packages.
package handler

import (
	"net/http"

	"github.com/commerceflow/backend/internal/domain/category"
	"github.com/commerceflow/backend/internal/domain/customer"
	"github.com/commerceflow/backend/internal/domain/order"
	"github.com/commerceflow/backend/internal/domain/product"
)

// Handler holds the domain services behind the API.
type Handler struct {
	categories *category.Service
	products   *product.Service
	customers  *customer.Service
	orders     *order.Service
}

// New constructs a Handler with the required domain services.
func New(
	categories *category.Service,
	products *product.Service,
	customers *customer.Service,
	orders *order.Service,
) *Handler {
	return &Handler{
		categories: categories,
		products:   products,
		customers:  customers,
		orders:     orders,
	}
}

// Routes returns a mux with every API route registered under /api.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/categories", h.createCategory)
	mux.HandleFunc("GET /api/categories", h.listCategories)
	mux.HandleFunc("GET /api/categories/{id}", h.getCategory)
	mux.HandleFunc("PUT /api/categories/{id}", h.updateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", h.deleteCategory)

	mux.HandleFunc("POST /api/products", h.createProduct)
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("PUT /api/products/{id}", h.updateProduct)
	mux.HandleFunc("DELETE /api/products/{id}", h.deleteProduct)

	mux.HandleFunc("POST /api/customers", h.createCustomer)
	mux.HandleFunc("GET /api/customers", h.listCustomers)
	mux.HandleFunc("GET /api/customers/{id}", h.getCustomer)
	mux.HandleFunc("PUT /api/customers/{id}", h.updateCustomer)
	mux.HandleFunc("DELETE /api/customers/{id}", h.deleteCustomer)

	mux.HandleFunc("POST /api/orders", h.createOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", h.deleteOrder)

	mux.HandleFunc("POST /api/orders/{id}/items", h.addOrderItem)
	mux.HandleFunc("GET /api/orders/{id}/items", h.listOrderItems)
	mux.HandleFunc("GET /api/order-items/{id}", h.getOrderItem)
	mux.HandleFunc("PUT /api/order-items/{id}", h.updateOrderItem)
	mux.HandleFunc("DELETE /api/order-items/{id}", h.deleteOrderItem)

	return mux
}
