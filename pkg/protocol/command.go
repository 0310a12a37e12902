package protocol

// Command is a single producer instruction for a tree builder.
type Command interface {
	// Op returns the wire name of the command.
	Op() string

	isCommand()
}

// Wire names of the commands.
const (
	OpNewTree          = "new"
	OpFinishTree       = "finish"
	OpPushScope        = "push"
	OpPopScope         = "pop"
	OpSetSubroot       = "subroot"
	OpAddChild         = "add"
	OpAddComment       = "comment"
	OpRemoveLastChild  = "remove"
	OpSaveNodeCount    = "save"
	OpRestoreNodeCount = "restore"
	OpToggleIgnore     = "ignore"
)

// NewTree discards any tree in progress and starts a new one.
type NewTree struct {
	Label string
}

// FinishTree hands the tree in progress to consumers.
type FinishTree struct{}

// PushScope enters a nested scope.
type PushScope struct{}

// PopScope leaves the active scope.
type PopScope struct{}

// SetSubroot moves the insertion cursor to the node bound to ID.
type SetSubroot struct {
	ID string
}

// AddChild appends a node under Parent and optionally binds it to ID.
type AddChild struct {
	Parent     string
	ID         string
	Label      string
	Comment    bool
	Properties string
}

// AddComment appends a comment labeled Label under Parent, wrapping a term
// labeled Payload. ID binds the comment.
type AddComment struct {
	Parent     string
	ID         string
	Label      string
	Payload    string
	Properties string
}

// RemoveLastChild removes the last child of Parent.
type RemoveLastChild struct {
	Parent string
}

// SaveNodeCount checkpoints the node count.
type SaveNodeCount struct{}

// RestoreNodeCount pops the last checkpoint, rolling back to it if Commit
// is set.
type RestoreNodeCount struct {
	Commit bool
}

// ToggleIgnore turns command ignoring on or off.
type ToggleIgnore struct {
	On bool
}

func (NewTree) Op() string          { return OpNewTree }
func (FinishTree) Op() string       { return OpFinishTree }
func (PushScope) Op() string        { return OpPushScope }
func (PopScope) Op() string         { return OpPopScope }
func (SetSubroot) Op() string       { return OpSetSubroot }
func (AddChild) Op() string         { return OpAddChild }
func (AddComment) Op() string       { return OpAddComment }
func (RemoveLastChild) Op() string  { return OpRemoveLastChild }
func (SaveNodeCount) Op() string    { return OpSaveNodeCount }
func (RestoreNodeCount) Op() string { return OpRestoreNodeCount }
func (ToggleIgnore) Op() string     { return OpToggleIgnore }

func (NewTree) isCommand()          {}
func (FinishTree) isCommand()       {}
func (PushScope) isCommand()        {}
func (PopScope) isCommand()         {}
func (SetSubroot) isCommand()       {}
func (AddChild) isCommand()         {}
func (AddComment) isCommand()       {}
func (RemoveLastChild) isCommand()  {}
func (SaveNodeCount) isCommand()    {}
func (RestoreNodeCount) isCommand() {}
func (ToggleIgnore) isCommand()     {}
