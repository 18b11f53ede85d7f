package backend

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/codr1/drivewise-admin/internal/models"
)

const (
	bookingsPath  = "/admin/bookings"
	insurancePath = "/admin/insurance-requests"
	requestsPath  = "/admin/car-requests"
	customersPath = "/admin/customers"
	statsPath     = "/admin/dashboard/stats"
)

type BookingsAPI struct{ c *Client }

func (c *Client) Bookings() BookingsAPI { return BookingsAPI{c: c} }

func (a BookingsAPI) GetAll(ctx context.Context, sess TokenHolder, statusFilter string, skip, limit int) Result[[]models.Booking] {
	endpoint := bookingsPath + "?" + ListQuery(statusFilter, skip, limit)
	return doRoute[[]models.Booking](ctx, a.c, sess, http.MethodGet, bookingsPath, endpoint, nil)
}

func (a BookingsAPI) UpdateStatus(ctx context.Context, sess TokenHolder, id, status string) Result[json.RawMessage] {
	return doRoute[json.RawMessage](ctx, a.c, sess, http.MethodPut, bookingsPath+"/{id}/status", statusPath(bookingsPath, id), statusUpdate{Status: status})
}

type InsuranceAPI struct{ c *Client }

func (c *Client) Insurance() InsuranceAPI { return InsuranceAPI{c: c} }

func (a InsuranceAPI) GetAll(ctx context.Context, sess TokenHolder, statusFilter string, skip, limit int) Result[[]models.InsuranceRequest] {
	endpoint := insurancePath + "?" + ListQuery(statusFilter, skip, limit)
	return doRoute[[]models.InsuranceRequest](ctx, a.c, sess, http.MethodGet, insurancePath, endpoint, nil)
}

func (a InsuranceAPI) UpdateStatus(ctx context.Context, sess TokenHolder, id, status string) Result[json.RawMessage] {
	return doRoute[json.RawMessage](ctx, a.c, sess, http.MethodPut, insurancePath+"/{id}/status", statusPath(insurancePath, id), statusUpdate{Status: status})
}

// RequestsAPI covers general car requests. The backend offers no status filter
// for this collection.
type RequestsAPI struct{ c *Client }

func (c *Client) Requests() RequestsAPI { return RequestsAPI{c: c} }

func (a RequestsAPI) GetAll(ctx context.Context, sess TokenHolder, skip, limit int) Result[[]models.GeneralRequest] {
	endpoint := requestsPath + "?" + ListQuery("", skip, limit)
	return doRoute[[]models.GeneralRequest](ctx, a.c, sess, http.MethodGet, requestsPath, endpoint, nil)
}

func (a RequestsAPI) UpdateStatus(ctx context.Context, sess TokenHolder, id, status string) Result[json.RawMessage] {
	return doRoute[json.RawMessage](ctx, a.c, sess, http.MethodPut, requestsPath+"/{id}/status", statusPath(requestsPath, id), statusUpdate{Status: status})
}

type CustomersAPI struct{ c *Client }

func (c *Client) Customers() CustomersAPI { return CustomersAPI{c: c} }

func (a CustomersAPI) GetAll(ctx context.Context, sess TokenHolder) Result[[]models.Customer] {
	return Get[[]models.Customer](ctx, a.c, sess, customersPath)
}

type StatsAPI struct{ c *Client }

func (c *Client) Stats() StatsAPI { return StatsAPI{c: c} }

func (a StatsAPI) Get(ctx context.Context, sess TokenHolder) Result[models.DashboardStats] {
	return Get[models.DashboardStats](ctx, a.c, sess, statsPath)
}
