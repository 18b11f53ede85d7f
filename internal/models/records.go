package models

import (
	"encoding/json"
	"fmt"
)

type Booking struct {
	ID string `json:"_id"`
	Vehicle
	Phone      string    `json:"phone"`
	Status     string    `json:"status"`
	TotalPrice Amount    `json:"totalPrice"`
	CreatedAt  Timestamp `json:"createdAt"`
}

type InsuranceRequest struct {
	ID string `json:"_id"`
	Vehicle
	Status    string    `json:"status"`
	CreatedAt Timestamp `json:"createdAt"`
}

type GeneralRequest struct {
	ID string `json:"_id"`
	Vehicle
	Status    string    `json:"status"`
	CreatedAt Timestamp `json:"createdAt"`
}

// Customer keeps the backend's profile document as-is; only the identifier is
// interpreted.
type Customer struct {
	ID     string
	Fields map[string]any
}

func (c *Customer) UnmarshalJSON(data []byte) error {
	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	c.Fields = fields
	c.ID = ""
	if raw, ok := fields["_id"]; ok && raw != nil {
		c.ID = fmt.Sprint(raw)
	}
	return nil
}

func (c Customer) MarshalJSON() ([]byte, error) {
	if c.Fields == nil {
		return json.Marshal(map[string]any{"_id": c.ID})
	}
	return json.Marshal(c.Fields)
}

// Field returns a display string for a profile field, or "" when absent.
func (c Customer) Field(name string) string {
	value, ok := c.Fields[name]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}

// DashboardStats holds the server-computed counters. Keys the dashboard does
// not render are kept in Extra.
type DashboardStats struct {
	TotalBookings          int64   `json:"total_bookings"`
	PendingBookings        int64   `json:"pending_bookings"`
	CompletedBookings      int64   `json:"completed_bookings"`
	TotalInsuranceRequests int64   `json:"total_insurance_requests"`
	TotalCarRequests       int64   `json:"total_car_requests"`
	TotalCustomers         int64   `json:"total_customers"`
	TotalRevenue           float64 `json:"total_revenue"`

	Extra map[string]any `json:"-"`
}

var knownStatsKeys = map[string]struct{}{
	"total_bookings":           {},
	"pending_bookings":         {},
	"completed_bookings":       {},
	"total_insurance_requests": {},
	"total_car_requests":       {},
	"total_customers":          {},
	"total_revenue":            {},
}

func (s *DashboardStats) UnmarshalJSON(data []byte) error {
	type plain DashboardStats
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	all := map[string]any{}
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for key := range knownStatsKeys {
		delete(all, key)
	}
	if len(all) > 0 {
		decoded.Extra = all
	}
	*s = DashboardStats(decoded)
	return nil
}
