package warehouse

import "time"

// Well-known partition names used by path selection.
const (
	// BufferZone is the staging partition used as an intermediate hop.
	BufferZone = "BUFFER"
	// WorkStation is the outbound operations platform.
	WorkStation = "STATION"
)

// PartitionStatus is the operating state of a logical partition.
type PartitionStatus string

const (
	PartitionNormal  PartitionStatus = "normal"
	PartitionUnknown PartitionStatus = "unknown"
)

// EquipmentStatus is the recorded operating state of a unit.
type EquipmentStatus string

const (
	StatusRunning          EquipmentStatus = "running"
	StatusBusy             EquipmentStatus = "busy"
	StatusMinorFault       EquipmentStatus = "minor fault"
	StatusNeedsCalibration EquipmentStatus = "needs calibration"
	StatusUnknown          EquipmentStatus = "unknown"
)

// Equipment categories.
const (
	CategoryAGV     = "agv"
	CategoryStacker = "stacker"
	CategorySorter  = "sorter"
)

// OrderType classifies an order for prioritisation.
type OrderType string

const (
	OrderUrgent  OrderType = "urgent"
	OrderNormal  OrderType = "normal"
	OrderOverdue OrderType = "overdue"
)

// Unit is one piece of handling equipment.
type Unit struct {
	ID              string          `json:"id"`
	Category        string          `json:"category"`
	Status          EquipmentStatus `json:"status"`
	Partition       string          `json:"partition"`
	Load            float64         `json:"load"` // percent
	RuntimeHours    int             `json:"runtime_hours"`
	LastMaintenance time.Time       `json:"last_maintenance"`
}

// Mapping links a unit to the partition it was registered in.
type Mapping struct {
	EquipmentID string `json:"equipment_id"`
	Category    string `json:"category"`
	Partition   string `json:"partition"`
	Code        string `json:"code"`
}

// Inventory maps material name to quantity for one partition.
type Inventory map[string]int

// Order is a customer or replenishment request. Immutable once generated.
type Order struct {
	ID          string    `json:"id"`
	Material    string    `json:"material"`
	Target      string    `json:"target"`
	Type        OrderType `json:"type"`
	RequestedBy time.Time `json:"requested_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// NoPredecessor marks the first operation of an order.
const NoPredecessor = "none"

// Operation is one atomic step of an order.
type Operation struct {
	Order
	Name        string `json:"name"`
	Sequence    int    `json:"sequence"`
	Partitions  string `json:"partitions"`
	Predecessor string `json:"predecessor"`
}

// PlanStatusAssigned is the status of every emitted plan entry.
const PlanStatusAssigned = "assigned"

// PlanEntry is an operation bound to a unit and a start time.
type PlanEntry struct {
	Operation
	EquipmentID      string    `json:"equipment_id"`
	Category         string    `json:"category"`
	CurrentPartition string    `json:"current_partition"`
	ExecuteAt        time.Time `json:"execute_at"`
	Status           string    `json:"status"`
	Fallback         bool      `json:"fallback"`
}

// CommandParams are the execution parameters sent to a terminal.
type CommandParams struct {
	Target   string   `json:"target"`
	Path     []string `json:"path"`
	Priority int      `json:"priority"`
}

// IssueStatusIssued marks a command delivered to its terminal.
const IssueStatusIssued = "issued"

// Command is a control instruction derived from a plan entry.
type Command struct {
	ID          string        `json:"id"`
	TaskID      string        `json:"task_id"`
	Operation   string        `json:"operation"`
	EquipmentID string        `json:"equipment_id"`
	ExecuteAt   time.Time     `json:"execute_at"`
	Params      CommandParams `json:"params"`
	Timing      string        `json:"timing"`
	IssueStatus string        `json:"issue_status,omitempty"`
	IssuedAt    time.Time     `json:"issued_at,omitempty"`
}

// Feedback is a terminal's report on a command.
type Feedback struct {
	CommandID   string    `json:"command_id"`
	TaskID      string    `json:"task_id"`
	EquipmentID string    `json:"equipment_id"`
	StatusCode  int       `json:"status_code"`
	Position    string    `json:"position"`
	Progress    int       `json:"progress"` // percent
	ReportedAt  time.Time `json:"reported_at"`
	Anomaly     string    `json:"anomaly,omitempty"`
}

// Deviation compares feedback with the model's prediction.
//
// Score = (Position*0.3 + Progress*0.7) * 10, so it lies in [0, 10].
type Deviation struct {
	EquipmentID   string  `json:"equipment_id"`
	CommandID     string  `json:"command_id"`
	Position      int     `json:"position"`
	Progress      float64 `json:"progress"`
	Score         float64 `json:"score"`
	OverThreshold bool    `json:"over_threshold"`
}
