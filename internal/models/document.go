package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// NodeType tags a node of a rich-text document. The names follow the
// editor's JSON schema so bodies round-trip without translation.
type NodeType string

const (
	NodeDoc            NodeType = "doc"
	NodeParagraph      NodeType = "paragraph"
	NodeHeading        NodeType = "heading"
	NodeText           NodeType = "text"
	NodeBulletList     NodeType = "bulletList"
	NodeOrderedList    NodeType = "orderedList"
	NodeListItem       NodeType = "listItem"
	NodeBlockquote     NodeType = "blockquote"
	NodeCodeBlock      NodeType = "codeBlock"
	NodeHardBreak      NodeType = "hardBreak"
	NodeHorizontalRule NodeType = "horizontalRule"
	NodeImage          NodeType = "image"
	NodeEmoji          NodeType = "emoji"
)

const maxDocumentDepth = 32

var (
	ErrEmptyDocument   = errors.New("document has no text")
	ErrInvalidDocument = errors.New("invalid document")
)

var blockNodes = map[NodeType]bool{
	NodeParagraph:      true,
	NodeHeading:        true,
	NodeBulletList:     true,
	NodeOrderedList:    true,
	NodeListItem:       true,
	NodeBlockquote:     true,
	NodeCodeBlock:      true,
	NodeHorizontalRule: true,
	NodeImage:          true,
}

var inlineNodes = map[NodeType]bool{
	NodeText:      true,
	NodeHardBreak: true,
	NodeEmoji:     true,
}

type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

type Node struct {
	Type    NodeType       `json:"type"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Content []Node         `json:"content,omitempty"`
}

// Document is the root of a rich-text body.
type Document struct {
	Type    NodeType `json:"type"`
	Content []Node   `json:"content"`
}

// NewDocument builds a document from plain text, one paragraph per
// blank-line separated block.
func NewDocument(text string) Document {
	doc := Document{Type: NodeDoc, Content: []Node{}}
	for _, block := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		para := Node{Type: NodeParagraph}
		for i, line := range strings.Split(block, "\n") {
			if i > 0 {
				para.Content = append(para.Content, Node{Type: NodeHardBreak})
			}
			if line != "" {
				para.Content = append(para.Content, Node{Type: NodeText, Text: line})
			}
		}
		doc.Content = append(doc.Content, para)
	}
	return doc
}

// UnmarshalJSON accepts either the editor's tree or a bare string.
func (d *Document) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*d = NewDocument(text)
		return nil
	}

	type plain Document
	var doc plain
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*d = Document(doc)
	return nil
}

// Validate checks the tree shape: a doc root holding block nodes, text only
// on leaves, and at least some visible text.
func (d Document) Validate() error {
	if d.Type != NodeDoc {
		return fmt.Errorf("%w: root must be %q, got %q", ErrInvalidDocument, NodeDoc, d.Type)
	}
	for _, n := range d.Content {
		if !blockNodes[n.Type] {
			return fmt.Errorf("%w: %q is not allowed at the top level", ErrInvalidDocument, n.Type)
		}
		if err := n.validate(1); err != nil {
			return err
		}
	}
	if d.PlainText() == "" {
		return ErrEmptyDocument
	}
	return nil
}

func (n Node) validate(depth int) error {
	if depth > maxDocumentDepth {
		return fmt.Errorf("%w: nested deeper than %d", ErrInvalidDocument, maxDocumentDepth)
	}
	if !blockNodes[n.Type] && !inlineNodes[n.Type] {
		return fmt.Errorf("%w: unknown node type %q", ErrInvalidDocument, n.Type)
	}
	if n.Type == NodeText {
		if n.Text == "" {
			return fmt.Errorf("%w: empty text node", ErrInvalidDocument)
		}
		if len(n.Content) > 0 {
			return fmt.Errorf("%w: text node with children", ErrInvalidDocument)
		}
		return nil
	}
	if n.Text != "" {
		return fmt.Errorf("%w: %q node carries text", ErrInvalidDocument, n.Type)
	}
	for _, child := range n.Content {
		if err := child.validate(depth + 1); err != nil {
			return err
		}
	}
	return nil
}

// PlainText extracts the visible text. Blocks are separated by newlines.
func (d Document) PlainText() string {
	var b strings.Builder
	for _, n := range d.Content {
		n.writeText(&b)
	}
	return strings.TrimSpace(b.String())
}

func (n Node) writeText(b *strings.Builder) {
	switch n.Type {
	case NodeText:
		b.WriteString(n.Text)
		return
	case NodeHardBreak:
		b.WriteByte('\n')
		return
	case NodeEmoji:
		if name, ok := n.Attrs["name"].(string); ok {
			b.WriteString(":" + name + ":")
		}
		return
	}
	for _, child := range n.Content {
		child.writeText(b)
	}
	if blockNodes[n.Type] && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteByte('\n')
	}
}
