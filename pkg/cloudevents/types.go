package cloudevents

import "time"

// Event types published by the warehouse state engine
const (
	OrderStatusChanged         = "wms.order.status-changed"
	AMRDispatched              = "wms.amr.dispatched"
	InventoryProjectionRebuilt = "wms.inventory.projection-rebuilt"
)

// WMSCloudEvent is a CloudEvents 1.0 envelope with WMS extensions
type WMSCloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	CorrelationID string `json:"wmscorrelationid,omitempty"`
	OrderID       string `json:"wmsorderid,omitempty"`
	AMRID         string `json:"wmsamrid,omitempty"`
}

// OrderStatusChangedData is the payload of wms.order.status-changed
type OrderStatusChangedData struct {
	OrderID        string    `json:"orderId"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	Message        string    `json:"message"`
	ChangedAt      time.Time `json:"changedAt"`
}

// AMRDispatchedData is the payload of wms.amr.dispatched
type AMRDispatchedData struct {
	AMRID    string  `json:"amrId"`
	TaskType string  `json:"taskType"`
	Label    string  `json:"label"`
	TargetX  float64 `json:"targetX"`
	TargetY  float64 `json:"targetY"`
	OrderID  string  `json:"orderId,omitempty"`
}

// InventoryProjectionRebuiltData is the payload of wms.inventory.projection-rebuilt
type InventoryProjectionRebuiltData struct {
	OrdersReplayed    int `json:"ordersReplayed"`
	LinesApplied      int `json:"linesApplied"`
	LinesSkipped      int `json:"linesSkipped"`
	ClampedPairs      int `json:"clampedPairs"`
	OccupiedLocations int `json:"occupiedLocations"`
}
