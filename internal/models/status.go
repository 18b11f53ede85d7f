package models

import (
	"regexp"
	"strings"
)

var hexColorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func IsHexColor(value string) bool {
	return hexColorRegex.MatchString(strings.TrimSpace(value))
}

// StatusAll is the filter value that disables status filtering.
const StatusAll = "all"

const (
	StatusPending          = "pending"
	StatusConfirmed        = "confirmed"
	StatusCompleted        = "completed"
	StatusCancelled        = "cancelled"
	StatusNew              = "new"
	StatusContacted        = "contacted"
	StatusRejected         = "rejected"
	StatusInProgress       = "in-progress"
	StatusResolved         = "resolved"
	StatusNotInterested    = "not-interested"
	StatusToFollowUp       = "to-follow-up"
	StatusColdEnquiry      = "cold-enq"
	StatusBookingConfirmed = "booking-confirmed"
)

// StatusDisplay holds the badge styling for a status value.
type StatusDisplay struct {
	Label     string
	BgColor   string
	TextColor string
}

const (
	defaultBadgeBg   = "#e5e7eb"
	defaultBadgeText = "#1f2937"
)

var statusDisplays = map[string]StatusDisplay{
	StatusPending:          {Label: "Pending", BgColor: "#fef3c7", TextColor: "#92400e"},
	StatusConfirmed:        {Label: "Confirmed", BgColor: "#dbeafe", TextColor: "#1e40af"},
	StatusCompleted:        {Label: "Completed", BgColor: "#dcfce7", TextColor: "#166534"},
	StatusCancelled:        {Label: "Cancelled", BgColor: "#fee2e2", TextColor: "#991b1b"},
	StatusNew:              {Label: "New", BgColor: "#e0e7ff", TextColor: "#3730a3"},
	StatusContacted:        {Label: "Contacted", BgColor: "#dbeafe", TextColor: "#1e40af"},
	StatusRejected:         {Label: "Rejected", BgColor: "#fee2e2", TextColor: "#991b1b"},
	StatusInProgress:       {Label: "In Progress", BgColor: "#fef3c7", TextColor: "#92400e"},
	StatusResolved:         {Label: "Resolved", BgColor: "#dcfce7", TextColor: "#166534"},
	StatusNotInterested:    {Label: "Not Interested", BgColor: "#f3f4f6", TextColor: "#4b5563"},
	StatusToFollowUp:       {Label: "To Follow Up", BgColor: "#ffedd5", TextColor: "#9a3412"},
	StatusColdEnquiry:      {Label: "Cold Enquiry", BgColor: "#e0f2fe", TextColor: "#075985"},
	StatusBookingConfirmed: {Label: "Booking Confirmed", BgColor: "#d1fae5", TextColor: "#065f46"},
}

// DisplayForStatus returns badge styling for status, falling back to a neutral
// badge labelled with the raw value for statuses the dashboard does not know.
func DisplayForStatus(status string) StatusDisplay {
	display, ok := statusDisplays[status]
	if !ok {
		return StatusDisplay{Label: status, BgColor: defaultBadgeBg, TextColor: defaultBadgeText}
	}
	if !IsHexColor(display.BgColor) {
		display.BgColor = defaultBadgeBg
	}
	if !IsHexColor(display.TextColor) {
		display.TextColor = defaultBadgeText
	}
	return display
}

// StatusSet is the ordered list of statuses a resource accepts.
type StatusSet []string

var (
	BookingStatuses = StatusSet{
		StatusPending,
		StatusConfirmed,
		StatusCompleted,
		StatusCancelled,
		StatusNotInterested,
		StatusToFollowUp,
		StatusColdEnquiry,
		StatusBookingConfirmed,
	}
	InsuranceStatuses = StatusSet{
		StatusNew,
		StatusContacted,
		StatusCompleted,
		StatusRejected,
		StatusNotInterested,
		StatusToFollowUp,
		StatusColdEnquiry,
		StatusBookingConfirmed,
	}
	GeneralRequestStatuses = StatusSet{
		StatusNew,
		StatusInProgress,
		StatusResolved,
		StatusNotInterested,
		StatusToFollowUp,
		StatusColdEnquiry,
		StatusBookingConfirmed,
	}
)

func (s StatusSet) IsValid(status string) bool {
	for _, candidate := range s {
		if candidate == status {
			return true
		}
	}
	return false
}

// IsFilterAll reports whether a status filter value means "no filter".
func IsFilterAll(status string) bool {
	status = strings.TrimSpace(status)
	return status == "" || strings.EqualFold(status, StatusAll)
}
