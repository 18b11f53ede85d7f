// Package dashboard gathers the overview page: stats cards and the recent
// activity feed built from the three request lists.
package dashboard

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/drivewise-admin/internal/backend"
	"github.com/codr1/drivewise-admin/internal/models"
)

const (
	DefaultRecentLimit = 5
	DefaultPhoneRegion = "US"
)

// SectionState tracks one fan-out call.
type SectionState int

const (
	SectionLoading SectionState = iota
	SectionReady
	SectionError
)

func (s SectionState) String() string {
	switch s {
	case SectionReady:
		return "ready"
	case SectionError:
		return "error"
	default:
		return "loading"
	}
}

type Section[T any] struct {
	State        SectionState
	Data         T
	Error        string
	Unauthorized bool
}

func settle[T any](result backend.Result[T]) Section[T] {
	if !result.Success {
		return Section[T]{State: SectionError, Error: result.Error, Unauthorized: result.Unauthorized}
	}
	return Section[T]{State: SectionReady, Data: result.Data}
}

// Source labels where an activity entry came from.
const (
	SourceBooking   = "Booking"
	SourceInsurance = "Insurance"
	SourceRequest   = "Car Request"
)

type Activity struct {
	Source    string
	ID        string
	Vehicle   models.Vehicle
	Status    string
	CreatedAt models.Timestamp
}

type Summary struct {
	Stats     Section[models.DashboardStats]
	Bookings  Section[[]models.Booking]
	Insurance Section[[]models.InsuranceRequest]
	Requests  Section[[]models.GeneralRequest]

	UniqueCustomers int
	TotalRequests   int64
	RecentActivity  []Activity

	// Unauthorized is set when any call was rejected with a 401.
	Unauthorized bool
}

// Failed reports whether the page should show its error view. Only a stats
// failure blocks the page; the list sections degrade to empty on their own.
func (s Summary) Failed() bool {
	return s.Stats.State == SectionError
}

type Options struct {
	PhoneRegion string
	RecentLimit int
	// FetchLimit caps each list fetch.
	FetchLimit int
}

// Aggregator runs the dashboard fan-out against one backend.
type Aggregator struct {
	client *backend.Client
	opts   Options
}

func New(client *backend.Client, opts Options) *Aggregator {
	if opts.PhoneRegion == "" {
		opts.PhoneRegion = DefaultPhoneRegion
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = DefaultRecentLimit
	}
	if opts.FetchLimit <= 0 {
		opts.FetchLimit = backend.DefaultLimit
	}
	return &Aggregator{client: client, opts: opts}
}

// Aggregate issues the stats, bookings, insurance and general request fetches
// concurrently and returns once all four have settled.
func (a *Aggregator) Aggregate(ctx context.Context, sess backend.TokenHolder) Summary {
	var (
		summary Summary
		g       errgroup.Group
	)

	g.Go(func() error {
		summary.Stats = settle(a.client.Stats().Get(ctx, sess))
		return nil
	})
	g.Go(func() error {
		summary.Bookings = settle(a.client.Bookings().GetAll(ctx, sess, "", backend.DefaultSkip, a.opts.FetchLimit))
		return nil
	})
	g.Go(func() error {
		summary.Insurance = settle(a.client.Insurance().GetAll(ctx, sess, "", backend.DefaultSkip, a.opts.FetchLimit))
		return nil
	})
	g.Go(func() error {
		summary.Requests = settle(a.client.Requests().GetAll(ctx, sess, backend.DefaultSkip, a.opts.FetchLimit))
		return nil
	})
	_ = g.Wait()

	summary.Unauthorized = summary.Stats.Unauthorized || summary.Bookings.Unauthorized ||
		summary.Insurance.Unauthorized || summary.Requests.Unauthorized

	logger := log.Ctx(ctx)
	if summary.Failed() {
		logger.Error().Str("error", summary.Stats.Error).Msg("Failed to load dashboard stats")
	}
	for name, errText := range map[string]string{
		"bookings":  summary.Bookings.Error,
		"insurance": summary.Insurance.Error,
		"requests":  summary.Requests.Error,
	} {
		if errText != "" {
			logger.Warn().Str("section", name).Str("error", errText).Msg("Dashboard section unavailable")
		}
	}

	summary.UniqueCustomers = UniqueCustomers(summary.Bookings.Data, a.opts.PhoneRegion)
	summary.TotalRequests = TotalRequests(summary.Stats.Data)
	summary.RecentActivity = RecentActivity(summary.Bookings.Data, summary.Insurance.Data, summary.Requests.Data, a.opts.RecentLimit)
	return summary
}

// UniqueCustomers counts distinct phone numbers across bookings. Numbers are
// compared in E.164 form; ones libphonenumber cannot parse are compared as
// typed, less surrounding space. Blank numbers are ignored.
func UniqueCustomers(bookings []models.Booking, region string) int {
	seen := make(map[string]struct{}, len(bookings))
	for _, booking := range bookings {
		if key := normalizePhone(booking.Phone, region); key != "" {
			seen[key] = struct{}{}
		}
	}
	return len(seen)
}

func normalizePhone(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if parsed, err := phonenumbers.Parse(raw, region); err == nil && phonenumbers.IsValidNumber(parsed) {
		return phonenumbers.Format(parsed, phonenumbers.E164)
	}
	return raw
}

// TotalRequests sums the server totals for the three request kinds.
func TotalRequests(stats models.DashboardStats) int64 {
	return stats.TotalBookings + stats.TotalInsuranceRequests + stats.TotalCarRequests
}

// RecentActivity merges the three lists, newest first, and keeps the first
// limit entries. Entries without a parseable timestamp sort last.
func RecentActivity(bookings []models.Booking, insurance []models.InsuranceRequest, requests []models.GeneralRequest, limit int) []Activity {
	feed := make([]Activity, 0, len(bookings)+len(insurance)+len(requests))
	for _, b := range bookings {
		feed = append(feed, Activity{Source: SourceBooking, ID: b.ID, Vehicle: b.Vehicle, Status: b.Status, CreatedAt: b.CreatedAt})
	}
	for _, r := range insurance {
		feed = append(feed, Activity{Source: SourceInsurance, ID: r.ID, Vehicle: r.Vehicle, Status: r.Status, CreatedAt: r.CreatedAt})
	}
	for _, r := range requests {
		feed = append(feed, Activity{Source: SourceRequest, ID: r.ID, Vehicle: r.Vehicle, Status: r.Status, CreatedAt: r.CreatedAt})
	}

	sort.SliceStable(feed, func(i, j int) bool {
		return after(feed[i].CreatedAt.Time, feed[j].CreatedAt.Time)
	})
	if limit > 0 && len(feed) > limit {
		feed = feed[:limit]
	}
	return feed
}

func after(a, b time.Time) bool {
	switch {
	case a.IsZero():
		return false
	case b.IsZero():
		return true
	default:
		return a.After(b)
	}
}
