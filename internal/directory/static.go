package directory

import (
	"context"

	"stageflow/internal/core/ports"
)

// StaticResolver serves position assignments from a fixed in-process map,
// typically loaded from configuration. Unknown positions resolve to nobody.
type StaticResolver struct {
	positions map[string][]ports.Assignee
}

func NewStaticResolver(positions map[string][]ports.Assignee) *StaticResolver {
	if positions == nil {
		positions = map[string][]ports.Assignee{}
	}
	return &StaticResolver{positions: positions}
}

func (r *StaticResolver) ResolveAssignees(ctx context.Context, positionID string) ([]ports.Assignee, error) {
	return append([]ports.Assignee(nil), r.positions[positionID]...), nil
}

var _ ports.DirectoryResolver = (*StaticResolver)(nil)
