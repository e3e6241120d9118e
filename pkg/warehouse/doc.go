/*
Package warehouse holds the world state of a virtual warehouse and the
records that flow through a scheduling run.

# World State

A WorldState is built from a Topology (logical partitions plus directed
edges carrying length and passage efficiency) and an equipment list:

	state, err := warehouse.Build(topology, units)
	if err != nil {
		// errors.Is(err, wferrors.ErrInvalidTopology)
	}
	err = state.Inject(inventory, orders)

Build records every partition with status "normal", keeps the roster of each
equipment category in registration order, and derives the equipment-partition
mapping, whose attribute code has the form "<category>_<id>_<partition>".

The state is owned by a single goroutine. Only the inject step (inventory and
orders) and the deviation corrector (equipment status) write to it.

# Records

Order, Operation, PlanEntry, Command, Feedback and Deviation are the fixed
records produced by successive stages. Each later record embeds the earlier
one it was derived from, so a PlanEntry still carries the order and operation
fields.
*/
package warehouse
