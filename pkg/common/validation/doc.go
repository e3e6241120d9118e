// Package validation provides the checks used when loading wareflow
// configuration.
//
// Every helper returns a *errors.ValidationError naming the module and field,
// so a bad config file reports exactly which key to fix.
package validation
