package behaviours

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/labels"
)

// ToYaml renders a behaviour as an editable document. Sounds, flags and
// cutscenes with a label in l get it as a trailing comment; l may be nil.
func ToYaml(id int, b Behaviour, l *labels.Set) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Index: %d\n", id)
	fmt.Fprintf(&sb, "Name: %s\n", b.Name)
	sb.WriteString(ScriptToYaml(b.Commands, l))
	return sb.String()
}

// ScriptToYaml renders only the command list.
func ScriptToYaml(cmds []Command, l *labels.Set) string {
	var sb strings.Builder
	sb.WriteString("Script:\n")
	for i, c := range cmds {
		name := c.Type.String()
		if len(c.Params) > 0 {
			name += ":"
		}
		fmt.Fprintf(&sb, "- %-28s  # <Command #%d>\n", name, i+1)
		for _, p := range c.Params {
			sb.WriteString("    ")
			sb.WriteString(paramToYaml(p, l))
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func paramToYaml(p Param, l *labels.Set) string {
	s := fmt.Sprintf("%-16s%-10s", p.Name+": ", p.String())
	if l == nil {
		return s
	}
	var category string
	switch p.Type {
	case ParamSound:
		category = labels.Sounds
	case ParamFlag:
		category = labels.Flags
	case ParamLowCutscene, ParamHighCutscene:
		category = labels.Cutscenes
	default:
		return s
	}
	if label, ok := l.Get(category, p.Int); ok {
		s += "  # " + label
	}
	return s
}

// FromYaml parses a document written by ToYaml.
func FromYaml(src []byte) (int, Behaviour, error) {
	root, err := parseDocument(src)
	if err != nil {
		return 0, Behaviour{}, err
	}
	if root.Kind != yaml.MappingNode {
		return 0, Behaviour{}, codec.Malformed("behaviour.yaml", nil, "expected Index, Name and Script")
	}
	idNode := mappingValue(root, "Index")
	if idNode == nil {
		return 0, Behaviour{}, codec.Malformed("behaviour.yaml", nil, "missing Index")
	}
	var id int
	if err := idNode.Decode(&id); err != nil {
		return 0, Behaviour{}, codec.Malformed("behaviour.yaml", err, "line %d: bad Index", idNode.Line)
	}
	b := Behaviour{Name: fmt.Sprintf("Behaviour%d", id)}
	if n := mappingValue(root, "Name"); n != nil {
		b.Name = n.Value
	}
	b.Commands, err = scriptFromNode(root)
	if err != nil {
		return 0, Behaviour{}, err
	}
	return id, b, nil
}

// ScriptFromYaml parses a command list, either bare or under a Script key.
func ScriptFromYaml(src []byte) ([]Command, error) {
	root, err := parseDocument(src)
	if err != nil {
		return nil, err
	}
	return scriptFromNode(root)
}

// AllToYaml renders every behaviour in id order.
func AllToYaml(t Table, l *labels.Set) []string {
	out := make([]string, 0, len(t))
	for _, id := range t.IDs() {
		out = append(out, ToYaml(id, t[id], l))
	}
	return out
}

// AllFromYaml parses a set of documents into a table. A repeated index keeps
// the first document.
func AllFromYaml(docs [][]byte) (Table, error) {
	t := make(Table, len(docs))
	for i, d := range docs {
		id, b, err := FromYaml(d)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i+1, err)
		}
		if _, dup := t[id]; dup {
			log.Warn("behaviour %d defined more than once, keeping the first", id)
			continue
		}
		t[id] = b
	}
	return t, nil
}

func parseDocument(src []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, codec.Malformed("behaviour.yaml", err, "parse")
	}
	if len(doc.Content) == 0 {
		return &yaml.Node{Kind: yaml.SequenceNode}, nil
	}
	return doc.Content[0], nil
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func scriptFromNode(n *yaml.Node) ([]Command, error) {
	if s := mappingValue(n, "Script"); s != nil {
		n = s
	}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, codec.Malformed("behaviour.yaml", nil, "line %d: expected a list of commands", n.Line)
	}
	cmds := make([]Command, 0, len(n.Content))
	for i, item := range n.Content {
		cmd, err := commandFromNode(i+1, item)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

func commandFromNode(index int, n *yaml.Node) (Command, error) {
	switch {
	case n.Kind == yaml.ScalarNode:
		def, err := LookupName(n.Value)
		if err != nil {
			return Command{}, fmt.Errorf("#%d: %w", index, err)
		}
		if len(def.Params) > 0 {
			return Command{}, codec.Malformed("behaviour.yaml", codec.ErrBadParameter,
				"#%d: Expected parameters for command %q\n%s", index, def.Name(), requiredParams(def))
		}
		return Command{Type: def.ID}, nil

	case n.Kind == yaml.MappingNode && len(n.Content) >= 2:
		def, err := LookupName(n.Content[0].Value)
		if err != nil {
			return Command{}, fmt.Errorf("#%d: %w", index, err)
		}
		cmd := Command{Type: def.ID, Params: newParams(len(def.Params))}
		set := make([]bool, len(def.Params))
		params := n.Content[1]
		for i := 0; params.Kind == yaml.MappingNode && i+1 < len(params.Content); i += 2 {
			name := params.Content[i].Value
			k := paramIndex(def, name)
			if k < 0 {
				return Command{}, codec.Malformed("behaviour.yaml", codec.ErrBadParameter,
					"#%d: Bad parameter %q for command %q\n%s", index, name, def.Name(), requiredParams(def))
			}
			p := Param{Name: name, Type: def.Params[k].Type}
			var err error
			if p.Type.IsCoordinate() {
				err = params.Content[i+1].Decode(&p.Coord)
			} else {
				err = params.Content[i+1].Decode(&p.Int)
			}
			if err != nil {
				return Command{}, codec.Malformed("behaviour.yaml", codec.ErrBadParameter,
					"#%d: parameter %q of %q: %v", index, name, def.Name(), err)
			}
			cmd.Params[k] = p
			set[k] = true
		}
		for _, ok := range set {
			if !ok {
				return Command{}, codec.Malformed("behaviour.yaml", codec.ErrBadParameter,
					"#%d: Expected %d parameters for command %q\n%s", index, len(def.Params), def.Name(), requiredParams(def))
			}
		}
		return cmd, nil
	}
	return Command{}, codec.Malformed("behaviour.yaml", nil, "#%d: Unexpected element in YAML at line %d", index, n.Line)
}

func paramIndex(def CommandDef, name string) int {
	for i, p := range def.Params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func requiredParams(def CommandDef) string {
	if len(def.Params) == 0 {
		return "The command takes no parameters"
	}
	names := make([]string, len(def.Params))
	for i, p := range def.Params {
		names[i] = fmt.Sprintf("%q", p.Name)
	}
	return "The following parameters are required: " + strings.Join(names, ", ")
}
