package payment

import (
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// Callback statuses passed to the landing page
const (
	CallbackApproved = "approved"
	CallbackDeclined = "declined"
	CallbackError    = "error"
)

// HandleCallback handles POST /api/v1/payments/callback, the browser returning
// from the gateway. Whatever happens the browser is redirected (302) to a
// landing page carrying orderId and status; the gateway never sees an error page.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Warn("Failed to parse gateway callback form", zap.Error(err))
		h.redirect(w, r, h.pages.Failure, "", CallbackError)
		return
	}

	result, err := h.payments.ProcessCallback(r.Context(), r.PostForm)
	if err != nil {
		h.logger.Warn("Gateway callback not applied",
			zap.String("order_id", r.PostForm.Get("oid")),
			zap.Error(err),
		)
		h.redirect(w, r, h.pages.Failure, r.PostForm.Get("oid"), CallbackError)
		return
	}

	if result.Approved {
		h.redirect(w, r, h.pages.Success, result.OrderID, CallbackApproved)
		return
	}
	h.redirect(w, r, h.pages.Failure, result.OrderID, CallbackDeclined)
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, page, orderID, status string) {
	target, err := url.Parse(page)
	if err != nil || page == "" {
		target = &url.URL{Path: "/"}
	}
	q := target.Query()
	if orderID != "" {
		q.Set("orderId", orderID)
	}
	q.Set("status", status)
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}
