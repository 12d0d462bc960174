package filesystem

import (
	"fmt"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/bytedance/sonic"
)

// NodeKind discriminates filesystem nodes
type NodeKind string

const (
	KindFile      NodeKind = "file"
	KindDirectory NodeKind = "directory"
)

// Node is either a *File or a *Directory
type Node interface {
	Kind() NodeKind
	Times() (created, modified time.Time)
	clone() Node
}

// File holds text content
type File struct {
	Content  string
	Created  time.Time
	Modified time.Time
}

// Kind implements Node
func (f *File) Kind() NodeKind { return KindFile }

// Times implements Node
func (f *File) Times() (time.Time, time.Time) { return f.Created, f.Modified }

// Size returns the content length in bytes
func (f *File) Size() int { return len(f.Content) }

func (f *File) clone() Node {
	c := *f
	return &c
}

// Directory holds an ordered set of child names
type Directory struct {
	Children []string
	Created  time.Time
	Modified time.Time
}

// Kind implements Node
func (d *Directory) Kind() NodeKind { return KindDirectory }

// Times implements Node
func (d *Directory) Times() (time.Time, time.Time) { return d.Created, d.Modified }

// Has reports whether name is a child
func (d *Directory) Has(name string) bool {
	for _, c := range d.Children {
		if c == name {
			return true
		}
	}
	return false
}

// add appends name if absent, preserving insertion order
func (d *Directory) add(name string) {
	if !d.Has(name) {
		d.Children = append(d.Children, name)
	}
}

// remove drops name, preserving the order of the rest
func (d *Directory) remove(name string) {
	kept := d.Children[:0:0]
	for _, c := range d.Children {
		if c != name {
			kept = append(kept, c)
		}
	}
	d.Children = kept
}

func (d *Directory) clone() Node {
	c := *d
	c.Children = append([]string{}, d.Children...)
	return &c
}

// record is the persisted shape of a node
type record struct {
	Type     NodeKind  `json:"type"`
	Content  *string   `json:"content,omitempty"`
	Children []string  `json:"children,omitempty"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// Tree maps absolute paths to nodes
type Tree map[string]Node

// Clone deep copies the tree
func (t Tree) Clone() Tree {
	out := make(Tree, len(t))
	for p, n := range t {
		out[p] = n.clone()
	}
	return out
}

// Dir returns the directory at p, if p is one
func (t Tree) Dir(p string) (*Directory, bool) {
	d, ok := t[p].(*Directory)
	return d, ok
}

// File returns the file at p, if p is one
func (t Tree) File(p string) (*File, bool) {
	f, ok := t[p].(*File)
	return f, ok
}

// MarshalTree encodes t in the persisted JSON map format
func MarshalTree(t Tree) ([]byte, error) {
	records := make(map[string]record, len(t))
	for p, n := range t {
		switch node := n.(type) {
		case *File:
			content := node.Content
			records[p] = record{Type: KindFile, Content: &content, Created: node.Created, Modified: node.Modified}
		case *Directory:
			children := node.Children
			if children == nil {
				children = []string{}
			}
			records[p] = record{Type: KindDirectory, Children: children, Created: node.Created, Modified: node.Modified}
		default:
			return nil, errs.Invariant("filesystem.encode", fmt.Sprintf("unknown node type at %s", p))
		}
	}
	return sonic.ConfigStd.Marshal(records)
}

// UnmarshalTree decodes the persisted JSON map format
func UnmarshalTree(data []byte) (Tree, error) {
	var records map[string]record
	if err := sonic.ConfigStd.Unmarshal(data, &records); err != nil {
		return nil, errs.Wrap(errs.KindValidation, "filesystem.decode", err)
	}

	t := make(Tree, len(records))
	for p, r := range records {
		switch r.Type {
		case KindFile:
			f := &File{Created: r.Created, Modified: r.Modified}
			if r.Content != nil {
				f.Content = *r.Content
			}
			t[p] = f
		case KindDirectory:
			t[p] = &Directory{Children: append([]string{}, r.Children...), Created: r.Created, Modified: r.Modified}
		default:
			return nil, errs.Validation("filesystem.decode", fmt.Sprintf("node %s has unknown type %q", p, r.Type))
		}
	}
	return t, nil
}
