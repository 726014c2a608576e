package events

// EventData is implemented by typed event payloads
type EventData interface {
	EventType() EventType
}

// RecommendationCreatedData contains data for RecommendationCreated events
type RecommendationCreatedData struct {
	UUID             string  `json:"uuid"`
	ProductID        int64   `json:"product_id"`
	CurrentPrice     float64 `json:"current_price"`
	RecommendedPrice float64 `json:"recommended_price"`
	Source           string  `json:"source"` // "request" or "scheduler"
}

// EventType returns the event type for RecommendationCreatedData
func (d *RecommendationCreatedData) EventType() EventType {
	return RecommendationCreated
}

// RecommendationStatusChangedData contains data for RecommendationStatusChanged events
type RecommendationStatusChangedData struct {
	UUID      string `json:"uuid"`
	ProductID int64  `json:"product_id"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// EventType returns the event type for RecommendationStatusChangedData
func (d *RecommendationStatusChangedData) EventType() EventType {
	return RecommendationStatusChanged
}

// PriceUpdatedData contains data for PriceUpdated events
type PriceUpdatedData struct {
	ProductID        int64   `json:"product_id"`
	OldPrice         float64 `json:"old_price"`
	NewPrice         float64 `json:"new_price"`
	RecommendationID string  `json:"recommendation_id,omitempty"`
}

// EventType returns the event type for PriceUpdatedData
func (d *PriceUpdatedData) EventType() EventType {
	return PriceUpdated
}

// SaleRecordedData contains data for SaleRecorded events
type SaleRecordedData struct {
	ProductID  int64   `json:"product_id"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	StockLevel int     `json:"stock_level"`
}

// EventType returns the event type for SaleRecordedData
func (d *SaleRecordedData) EventType() EventType {
	return SaleRecorded
}

// CompetitorPriceRecordedData contains data for CompetitorPriceRecorded events
type CompetitorPriceRecordedData struct {
	ProductID    int64   `json:"product_id"`
	CompetitorID int64   `json:"competitor_id"`
	Price        float64 `json:"price"`
}

// EventType returns the event type for CompetitorPriceRecordedData
func (d *CompetitorPriceRecordedData) EventType() EventType {
	return CompetitorPriceRecorded
}

// ProductCreatedData contains data for ProductCreated events
type ProductCreatedData struct {
	ProductID    int64   `json:"product_id"`
	UserID       int64   `json:"user_id"`
	Name         string  `json:"name"`
	CurrentPrice float64 `json:"current_price"`
}

// EventType returns the event type for ProductCreatedData
func (d *ProductCreatedData) EventType() EventType {
	return ProductCreated
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Archive    string `json:"archive"`
	SizeBytes  int64  `json:"size_bytes"`
	DurationMs int64  `json:"duration_ms"`
	Deleted    int    `json:"deleted"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
