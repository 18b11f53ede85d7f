package listctl

import (
	"context"
	"encoding/json"

	"github.com/codr1/drivewise-admin/internal/backend"
	"github.com/codr1/drivewise-admin/internal/models"
)

const (
	ResourceBookings  = "bookings"
	ResourceInsurance = "insurance"
	ResourceRequests  = "requests"
)

// Bookings describes the bookings collection. limit caps each fetch.
func Bookings(client *backend.Client, limit int) Resource[models.Booking] {
	api := client.Bookings()
	return Resource[models.Booking]{
		Name:     ResourceBookings,
		Statuses: models.BookingStatuses,
		Fetch: func(ctx context.Context, sess backend.TokenHolder, serverFilter string) backend.Result[[]models.Booking] {
			return api.GetAll(ctx, sess, serverFilter, backend.DefaultSkip, limit)
		},
		Update: func(ctx context.Context, sess backend.TokenHolder, id, status string) backend.Result[json.RawMessage] {
			return api.UpdateStatus(ctx, sess, id, status)
		},
		ID:        func(b models.Booking) string { return b.ID },
		Status:    func(b models.Booking) string { return b.Status },
		SetStatus: func(b *models.Booking, status string) { b.Status = status },
		SearchText: func(b models.Booking) []string {
			return []string{b.Brand, b.Model, string(b.Year), b.Phone}
		},
	}
}

func Insurance(client *backend.Client, limit int) Resource[models.InsuranceRequest] {
	api := client.Insurance()
	return Resource[models.InsuranceRequest]{
		Name:     ResourceInsurance,
		Statuses: models.InsuranceStatuses,
		Fetch: func(ctx context.Context, sess backend.TokenHolder, serverFilter string) backend.Result[[]models.InsuranceRequest] {
			return api.GetAll(ctx, sess, serverFilter, backend.DefaultSkip, limit)
		},
		Update: func(ctx context.Context, sess backend.TokenHolder, id, status string) backend.Result[json.RawMessage] {
			return api.UpdateStatus(ctx, sess, id, status)
		},
		ID:        func(r models.InsuranceRequest) string { return r.ID },
		Status:    func(r models.InsuranceRequest) string { return r.Status },
		SetStatus: func(r *models.InsuranceRequest, status string) { r.Status = status },
		SearchText: func(r models.InsuranceRequest) []string {
			return []string{r.Brand, r.Model, string(r.Year)}
		},
	}
}

// Requests describes general car requests. The backend has no status filter
// for them, so serverFilter is ignored.
func Requests(client *backend.Client, limit int) Resource[models.GeneralRequest] {
	api := client.Requests()
	return Resource[models.GeneralRequest]{
		Name:     ResourceRequests,
		Statuses: models.GeneralRequestStatuses,
		Fetch: func(ctx context.Context, sess backend.TokenHolder, _ string) backend.Result[[]models.GeneralRequest] {
			return api.GetAll(ctx, sess, backend.DefaultSkip, limit)
		},
		Update: func(ctx context.Context, sess backend.TokenHolder, id, status string) backend.Result[json.RawMessage] {
			return api.UpdateStatus(ctx, sess, id, status)
		},
		ID:        func(r models.GeneralRequest) string { return r.ID },
		Status:    func(r models.GeneralRequest) string { return r.Status },
		SetStatus: func(r *models.GeneralRequest, status string) { r.Status = status },
		SearchText: func(r models.GeneralRequest) []string {
			return []string{r.Brand, r.Model, string(r.Year)}
		},
	}
}
