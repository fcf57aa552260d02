package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/commerceflow/backend/internal/domain/category"
	"github.com/commerceflow/backend/internal/domain/customer"
	"github.com/commerceflow/backend/internal/domain/order"
	"github.com/commerceflow/backend/internal/domain/product"
)

// respondError maps a domain error to an HTTP status: missing entities are
// 404, rejected input is 400, reference conflicts are 409, and anything else
// is a 500 whose detail stays in the log rather than the response.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, category.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, customer.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, order.ErrItemNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
		return

	case errors.Is(err, category.ErrInUse),
		errors.Is(err, product.ErrInUse):
		writeError(w, r, http.StatusConflict, err.Error())
		return

	case isInvalidArgument(err):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	trace.SpanFromContext(r.Context()).RecordError(err)
	zctx.From(r.Context()).Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, r, http.StatusInternalServerError, "internal server error")
}

func isInvalidArgument(err error) bool {
	var iqErr *order.InvalidQuantityError
	if errors.As(err, &iqErr) {
		return true
	}

	for _, sentinel := range []error{
		order.ErrEmptyItems,
		category.ErrEmptyName,
		category.ErrNameTaken,
		product.ErrEmptySKU,
		product.ErrEmptyName,
		product.ErrSKUTaken,
		product.ErrPriceNegative,
		product.ErrQtyNegative,
		customer.ErrFirstNameRequired,
		customer.ErrInvalidEmail,
		customer.ErrInvalidPhone,
		customer.ErrEmailTaken,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
