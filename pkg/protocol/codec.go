package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"github.com/matzehuels/rewritetree/pkg/errors"
)

// MaxLineSize is the longest command line a [Reader] accepts.
const MaxLineSize = 1 << 20

// message is the flat wire form shared by all commands.
type message struct {
	Op         string `json:"op"`
	Parent     string `json:"parent,omitempty"`
	ID         string `json:"id,omitempty"`
	Label      string `json:"label,omitempty"`
	Payload    string `json:"payload,omitempty"`
	Properties string `json:"properties,omitempty"`
	Comment    bool   `json:"comment,omitempty"`
	Commit     bool   `json:"commit,omitempty"`
	On         bool   `json:"on,omitempty"`
}

// =============================================================================
// Encoding
// =============================================================================

// Encode returns the single-line JSON form of cmd without a trailing newline.
func Encode(cmd Command) ([]byte, error) {
	m, err := toMessage(cmd)
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// Write encodes cmds to w as JSON Lines.
func Write(w io.Writer, cmds ...Command) error {
	for _, cmd := range cmds {
		data, err := Encode(cmd)
		if err != nil {
			return err
		}
		data = append(data, '\n')
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

func toMessage(cmd Command) (message, error) {
	m := message{}
	switch c := cmd.(type) {
	case NewTree:
		m.Label = c.Label
	case FinishTree, PushScope, PopScope, SaveNodeCount:
	case SetSubroot:
		m.ID = c.ID
	case AddChild:
		m.Parent, m.ID, m.Label, m.Comment, m.Properties = c.Parent, c.ID, c.Label, c.Comment, c.Properties
	case AddComment:
		m.Parent, m.ID, m.Label, m.Payload, m.Properties = c.Parent, c.ID, c.Label, c.Payload, c.Properties
	case RemoveLastChild:
		m.Parent = c.Parent
	case RestoreNodeCount:
		m.Commit = c.Commit
	case ToggleIgnore:
		m.On = c.On
	default:
		return m, errors.New(errors.ErrCodeInvalidCommand, "unsupported command type %T", cmd)
	}
	m.Op = cmd.Op()
	return m, nil
}

// =============================================================================
// Decoding
// =============================================================================

// Decode parses one JSON command. Unknown fields, unknown operations and
// invalid identifiers are reported as INVALID_COMMAND errors.
func Decode(data []byte) (Command, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var m message
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCommand, err, "decode command")
	}
	if dec.More() {
		return nil, errors.New(errors.ErrCodeInvalidCommand, "trailing data after command")
	}
	return fromMessage(m)
}

func fromMessage(m message) (Command, error) {
	for _, id := range []string{m.Parent, m.ID} {
		if err := errors.ValidateIdentifier(id); err != nil {
			return nil, err
		}
	}

	switch m.Op {
	case OpNewTree:
		return NewTree{Label: m.Label}, nil
	case OpFinishTree:
		return FinishTree{}, nil
	case OpPushScope:
		return PushScope{}, nil
	case OpPopScope:
		return PopScope{}, nil
	case OpSetSubroot:
		if m.ID == "" {
			return nil, errors.New(errors.ErrCodeInvalidCommand, "%s: missing id", m.Op)
		}
		return SetSubroot{ID: m.ID}, nil
	case OpAddChild:
		return AddChild{Parent: m.Parent, ID: m.ID, Label: m.Label, Comment: m.Comment, Properties: m.Properties}, nil
	case OpAddComment:
		return AddComment{Parent: m.Parent, ID: m.ID, Label: m.Label, Payload: m.Payload, Properties: m.Properties}, nil
	case OpRemoveLastChild:
		return RemoveLastChild{Parent: m.Parent}, nil
	case OpSaveNodeCount:
		return SaveNodeCount{}, nil
	case OpRestoreNodeCount:
		return RestoreNodeCount{Commit: m.Commit}, nil
	case OpToggleIgnore:
		return ToggleIgnore{On: m.On}, nil
	case "":
		return nil, errors.New(errors.ErrCodeInvalidCommand, "missing op")
	default:
		return nil, errors.New(errors.ErrCodeInvalidCommand, "unknown op %q", m.Op)
	}
}

// Reader decodes a JSON Lines command stream. Blank lines and lines
// starting with '#' are skipped.
type Reader struct {
	sc   *bufio.Scanner
	line int
}

// NewReader returns a Reader consuming r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return &Reader{sc: sc}
}

// Next returns the next command. It returns io.EOF at the end of the
// stream. Malformed lines yield an *errors.LineError; reading may continue
// after one. Any other error is fatal for the stream.
func (r *Reader) Next() (Command, error) {
	for r.sc.Scan() {
		r.line++
		text := bytes.TrimSpace(r.sc.Bytes())
		if len(text) == 0 || text[0] == '#' {
			continue
		}
		cmd, err := Decode(text)
		if err != nil {
			return nil, &errors.LineError{Line: r.line, Err: err}
		}
		return cmd, nil
	}
	if err := r.sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read line %d", r.line+1)
	}
	return nil, io.EOF
}

// Line returns the number of the line read last.
func (r *Reader) Line() int { return r.line }
