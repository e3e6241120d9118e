package warehouse

// Link lists the partitions reachable from one partition.
type Link struct {
	From string   `mapstructure:"from" yaml:"from" json:"from"`
	To   []string `mapstructure:"to" yaml:"to" json:"to"`
}

// Fleet is the roster of one equipment category.
type Fleet struct {
	Category string   `mapstructure:"category" yaml:"category" json:"category"`
	IDs      []string `mapstructure:"ids" yaml:"ids" json:"ids"`
}

// Layout is the static description of a warehouse: partitions, adjacency,
// equipment fleets and stocked materials.
type Layout struct {
	Partitions []string `mapstructure:"partitions" yaml:"partitions" json:"partitions"`
	Links      []Link   `mapstructure:"links" yaml:"links" json:"links"`
	Fleets     []Fleet  `mapstructure:"fleets" yaml:"fleets" json:"fleets"`
	Materials  []string `mapstructure:"materials" yaml:"materials" json:"materials"`
}

// StoragePartitions returns the partitions that hold stock and receive
// orders: everything except the buffer zone and the work station.
func (l Layout) StoragePartitions() []string {
	out := make([]string, 0, len(l.Partitions))
	for _, p := range l.Partitions {
		if p == BufferZone || p == WorkStation {
			continue
		}
		out = append(out, p)
	}
	return out
}

// DefaultLayout returns the five-aisle demonstration warehouse.
func DefaultLayout() Layout {
	return Layout{
		Partitions: []string{"A1", "A2", "A3", "A4", "A5", BufferZone, WorkStation},
		Links: []Link{
			{From: "A1", To: []string{"A2", BufferZone}},
			{From: "A2", To: []string{"A1", "A3", WorkStation}},
			{From: "A3", To: []string{"A2", "A4"}},
			{From: "A4", To: []string{"A3", "A5", BufferZone}},
			{From: "A5", To: []string{"A4", WorkStation}},
			{From: BufferZone, To: []string{"A1", "A4", WorkStation}},
			{From: WorkStation, To: []string{"A2", "A5", BufferZone}},
		},
		Fleets: []Fleet{
			{Category: CategoryAGV, IDs: []string{"AGV1", "AGV2", "AGV3"}},
			{Category: CategoryStacker, IDs: []string{"STACKER1", "STACKER2"}},
			{Category: CategorySorter, IDs: []string{"SORTER1", "SORTER2"}},
		},
		Materials: []string{
			"electronic components",
			"mechanical parts",
			"packaging materials",
			"chemical feedstock",
			"food ingredients",
		},
	}
}
