// Package events provides an in-process event bus for pricing activity.
package events

import (
	"time"
)

// EventType represents different event types
type EventType string

const (
	RecommendationCreated       EventType = "RECOMMENDATION_CREATED"
	RecommendationStatusChanged EventType = "RECOMMENDATION_STATUS_CHANGED"
	PriceUpdated                EventType = "PRICE_UPDATED"
	SaleRecorded                EventType = "SALE_RECORDED"
	CompetitorPriceRecorded     EventType = "COMPETITOR_PRICE_RECORDED"
	ProductCreated              EventType = "PRODUCT_CREATED"
	BackupCompleted             EventType = "BACKUP_COMPLETED"
	ErrorOccurred               EventType = "ERROR_OCCURRED"
)

// AllTypes lists every event type, in the order stream clients see them documented
var AllTypes = []EventType{
	RecommendationCreated,
	RecommendationStatusChanged,
	PriceUpdated,
	SaleRecorded,
	CompetitorPriceRecorded,
	ProductCreated,
	BackupCompleted,
	ErrorOccurred,
}

// Event represents a system event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Module    string                 `json:"module"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// ParseTypes converts names to known event types, skipping unknown ones
func ParseTypes(names []string) []EventType {
	known := make(map[EventType]bool, len(AllTypes))
	for _, t := range AllTypes {
		known[t] = true
	}

	var types []EventType
	for _, name := range names {
		if t := EventType(name); known[t] {
			types = append(types, t)
		}
	}
	return types
}
