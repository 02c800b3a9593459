// Package inventory guards the availability flag of catalog entries.
//
// TryClaim is the only way a book becomes unavailable and Release the only way it becomes
// available again. Both run against the catalog store of the caller's unit of work, so a
// claim rolls back together with everything else when the unit of work fails.
package inventory
