package protocol

import (
	"github.com/matzehuels/rewritetree/pkg/builder"
	"github.com/matzehuels/rewritetree/pkg/errors"
	"github.com/matzehuels/rewritetree/pkg/tree"
)

// ErrNoTree is returned by [Apply] for a FinishTree command that arrives
// while no tree is being built.
var ErrNoTree = errors.New(errors.ErrCodeNoTree, "finish without a tree in progress")

// Apply runs cmd against b. It returns the finished tree for FinishTree
// commands and nil otherwise.
func Apply(b *builder.Builder, cmd Command) (*tree.Tree, error) {
	switch c := cmd.(type) {
	case NewTree:
		b.NewTree(c.Label)
	case FinishTree:
		if !b.Building() {
			return nil, ErrNoTree
		}
		return b.FinishTree(), nil
	case PushScope:
		b.PushScope()
	case PopScope:
		b.PopScope()
	case SetSubroot:
		b.SetSubroot(c.ID)
	case AddChild:
		b.AddChildWithProperties(c.Parent, c.ID, c.Label, c.Properties, c.Comment)
	case AddComment:
		b.AddComment(c.Parent, c.ID, c.Label, c.Payload, c.Properties)
	case RemoveLastChild:
		b.RemoveLastChild(c.Parent)
	case SaveNodeCount:
		b.SaveNodeCount()
	case RestoreNodeCount:
		b.RestoreNodeCount(c.Commit)
	case ToggleIgnore:
		b.ToggleIgnore(c.On)
	default:
		return nil, errors.New(errors.ErrCodeInvalidCommand, "unsupported command type %T", cmd)
	}
	return nil, nil
}
