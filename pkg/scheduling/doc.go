/*
Package scheduling groups the stages that turn warehouse orders into
executable equipment commands, plus the generic machinery that runs them.

  - rules: scheduling rules, feature extraction and the rule selector
  - decompose: splitting orders into chained operations
  - assign: matching operations to equipment units
  - strategy: building equipment commands from the plan
  - pipeline: typed multi-stage execution with timing and callbacks
  - scheduler: one-shot, interval and cron jobs for repeated runs

The stages are pure functions over a warehouse.WorldState and can be used on
their own:

	ops, err := decompose.Decompose(state, state.Orders)
	if err != nil {
		return err
	}
	plan, err := assign.New(assign.Config{}).Assign(state, ops)
	if err != nil {
		return err
	}
	cmds := strategy.NewExecutor(state.Topology, seed).Commands(plan)

The engine package wires them into a pipeline.Pipeline together with command
dispatch and correction.
*/
package scheduling
