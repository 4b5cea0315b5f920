// Package ciutil detects the execution environment (local or CI) and locates
// the repository root, so developer commands such as migration creation work
// from any directory inside the checkout.
package ciutil
