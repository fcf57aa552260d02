package handler

import (
	"net/http"
	"time"

	"github.com/commerceflow/backend/internal/domain/order"
)

type orderCreateRequest struct {
	CustomerID string             `json:"customerId"`
	Items      []orderLineRequest `json:"items"`
}

type orderLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type orderItemUpdateRequest struct {
	Quantity int `json:"quantity"`
}

type orderResponse struct {
	ID         string              `json:"id"`
	CustomerID string              `json:"customerId"`
	OrderDate  time.Time           `json:"orderDate"`
	Status     string              `json:"status"`
	Total      float64             `json:"total"`
	Items      []orderItemResponse `json:"items"`
}

type orderItemResponse struct {
	ID        string  `json:"id"`
	OrderID   string  `json:"orderId"`
	ProductID string  `json:"productId"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"lineTotal"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i := range o.Items {
		items[i] = toOrderItemResponse(&o.Items[i])
	}
	return orderResponse{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		OrderDate:  o.OrderDate,
		Status:     o.Status,
		Total:      o.Total.InexactFloat64(),
		Items:      items,
	}
}

func toOrderItemResponse(item *order.Item) orderItemResponse {
	return orderItemResponse{
		ID:        item.ID,
		OrderID:   item.OrderID,
		ProductID: item.ProductID,
		UnitPrice: item.UnitPrice.InexactFloat64(),
		Quantity:  item.Quantity,
		LineTotal: item.LineTotal.InexactFloat64(),
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orderCreateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	lines := make([]order.Line, len(req.Items))
	for i, item := range req.Items {
		lines[i] = order.Line{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}

	o, err := h.orders.Create(r.Context(), order.CreateRequest{
		CustomerID: req.CustomerID,
		Lines:      lines,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addOrderItem(w http.ResponseWriter, r *http.Request) {
	var req orderLineRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.orders.AddItem(r.Context(), r.PathValue("id"), req.ProductID, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, toOrderItemResponse(item))
}

func (h *Handler) listOrderItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.orders.ListItems(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]orderItemResponse, len(items))
	for i := range items {
		resp[i] = toOrderItemResponse(&items[i])
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) getOrderItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.orders.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderItemResponse(item))
}

func (h *Handler) updateOrderItem(w http.ResponseWriter, r *http.Request) {
	var req orderItemUpdateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.orders.UpdateItemQuantity(r.Context(), r.PathValue("id"), req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, toOrderItemResponse(item))
}

func (h *Handler) deleteOrderItem(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.RemoveItem(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
