package lending

import "context"

// ConsistencyLevel defines which database node a read may be served from.
type ConsistencyLevel int

const (
	// StrongConsistency reads from the primary. Units of work always run with strong consistency,
	// because claims and version checks must see the latest committed state.
	StrongConsistency ConsistencyLevel = iota

	// EventualConsistency allows reads from a replica. Suitable for history and listing
	// queries that tolerate slightly stale data.
	EventualConsistency
)

type contextKey string

// ConsistencyLevelKey is the context key used to store the consistency level.
const ConsistencyLevelKey contextKey = "lending.consistency_level"

// WithStrongConsistency returns a context that routes reads to the primary.
func WithStrongConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, StrongConsistency)
}

// WithEventualConsistency returns a context that allows reads from a replica.
//
// Example usage:
//
//	ctx = lending.WithEventualConsistency(ctx)
//	history, err := manager.GetHistory(ctx, borrowerID)
func WithEventualConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, EventualConsistency)
}

// GetConsistencyLevel extracts the consistency level from the context, StrongConsistency if none is set.
func GetConsistencyLevel(ctx context.Context) ConsistencyLevel {
	if level, ok := ctx.Value(ConsistencyLevelKey).(ConsistencyLevel); ok {
		return level
	}

	return StrongConsistency
}

// String provides a string representation of ConsistencyLevel for logging.
func (c ConsistencyLevel) String() string {
	switch c {
	case StrongConsistency:
		return "strong"
	case EventualConsistency:
		return "eventual"
	default:
		return "unknown"
	}
}
