/*
Package wareflow schedules warehouse logistics work.

A run builds a snapshot of the warehouse (partitions, equipment, inventory
and pending orders), chooses a scheduling rule from the observed state,
splits orders into operations, assigns equipment, issues commands,
collects feedback and flags units whose execution drifted from the plan.

Packages:

  - pkg/warehouse: domain records, topology and world state
  - pkg/synth: reproducible synthetic snapshots
  - pkg/scheduling: rules, decomposition, assignment, command strategy,
    the stage pipeline and the job scheduler
  - pkg/execution: command dispatch, throttling and terminals
  - pkg/correction: deviation scoring and calibration marks
  - pkg/engine: the end-to-end run
  - pkg/report and pkg/store: run summaries and their persistence
  - pkg/metrics: Prometheus instrumentation

The wareflow command (cmd/wareflow) runs single simulations, serves
scheduled runs with metrics, and prints stored reports.
*/
package wareflow
