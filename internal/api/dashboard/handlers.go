// internal/api/dashboard/handlers.go
package dashboard

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/codr1/drivewise-admin/internal/api/apiutil"
	"github.com/codr1/drivewise-admin/internal/api/auth"
	"github.com/codr1/drivewise-admin/internal/api/htmx"
	"github.com/codr1/drivewise-admin/internal/dashboard"
	"github.com/codr1/drivewise-admin/internal/session"
	dashboardtempl "github.com/codr1/drivewise-admin/internal/templates/components/dashboard"
	"github.com/codr1/drivewise-admin/internal/templates/layouts"
)

const pageTitle = "Overview"

var aggregator *dashboard.Aggregator

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(a *dashboard.Aggregator) {
	if a == nil {
		log.Warn().Msg("InitHandlers called with nil aggregator; dashboard handlers will be unavailable")
		return
	}
	aggregator = a
}

// HandleDashboardPage renders the overview for GET /.
func HandleDashboardPage(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if aggregator == nil {
		logger.Error().Msg("Dashboard aggregator not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	sess := session.FromContext(r.Context())
	if sess == nil {
		htmx.Redirect(w, r, "/login")
		return
	}

	summary := aggregator.Aggregate(r.Context(), sess)
	if summary.Unauthorized {
		htmx.Redirect(w, r, "/login")
		return
	}
	if r.Context().Err() != nil {
		return
	}

	shell := auth.Shell(r.Context(), pageTitle, "dashboard")
	if summary.Failed() {
		page := layouts.Base(shell, dashboardtempl.Error(summary.Stats.Error))
		apiutil.RenderHTMLComponentStatus(r.Context(), w, http.StatusBadGateway, page, nil, "Failed to render dashboard error", "Failed to render page")
		return
	}

	page := layouts.Base(shell, dashboardtempl.Page(buildData(summary)))
	apiutil.RenderHTMLComponent(r.Context(), w, page, nil, "Failed to render dashboard", "Failed to render page")
}

func buildData(summary dashboard.Summary) dashboardtempl.Data {
	stats := summary.Stats.Data
	data := dashboardtempl.Data{
		Cards: []dashboardtempl.Card{
			{Label: "Total Bookings", Value: count(stats.TotalBookings)},
			{Label: "Pending Bookings", Value: count(stats.PendingBookings)},
			{Label: "Completed Bookings", Value: count(stats.CompletedBookings)},
			{Label: "Revenue", Value: fmt.Sprintf("%.2f", stats.TotalRevenue)},
			{
				Label: "Unique Customers",
				Value: strconv.Itoa(summary.UniqueCustomers),
				Hint:  "Distinct phone numbers in recent bookings",
			},
			{
				Label: "Total Requests",
				Value: count(summary.TotalRequests),
				Hint:  fmt.Sprintf("%d insurance, %d car requests", stats.TotalInsuranceRequests, stats.TotalCarRequests),
			},
		},
	}

	for _, section := range []struct {
		name  string
		state dashboard.SectionState
	}{
		{"bookings", summary.Bookings.State},
		{"insurance requests", summary.Insurance.State},
		{"car requests", summary.Requests.State},
	} {
		if section.state == dashboard.SectionError {
			data.Unavailable = append(data.Unavailable, section.name)
		}
	}

	data.Activity = make([]dashboardtempl.ActivityItem, 0, len(summary.RecentActivity))
	for _, entry := range summary.RecentActivity {
		data.Activity = append(data.Activity, dashboardtempl.ActivityItem{
			Source:    entry.Source,
			Title:     entry.Vehicle.Title(),
			Status:    entry.Status,
			CreatedAt: entry.CreatedAt,
		})
	}
	return data
}

func count(n int64) string {
	return strconv.FormatInt(n, 10)
}
