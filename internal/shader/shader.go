// Package shader reads GLSL sources from <script> blocks in an HTML
// document, the way the demo page ships its shaders.
package shader

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/toxichemicals/GO/holy-textures/internal/gpu"
)

// Script types that mark shader blocks.
const (
	VertexType   = "x-shader/x-vertex"
	FragmentType = "x-shader/x-fragment"
)

var (
	ErrNotFound     = errors.New("shader: no script with that id")
	ErrUnknownStage = errors.New("shader: script type is not a shader stage")
)

//go:embed shaders.html
var defaultDocument string

// Source is one shader stage's text.
type Source struct {
	ID    string
	Stage gpu.ShaderStage
	Text  string
}

type script struct {
	typ  string
	text string
}

// Document indexes the script blocks of a page by id.
type Document struct {
	scripts map[string]script
}

// ParseDocument collects every <script> element that has an id.
func ParseDocument(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse shader document: %w", err)
	}
	doc := &Document{scripts: map[string]script{}}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Script {
			var id, typ string
			for _, a := range n.Attr {
				switch a.Key {
				case "id":
					id = a.Val
				case "type":
					typ = a.Val
				}
			}
			if id != "" {
				doc.scripts[id] = script{typ: typ, text: textOf(n)}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return doc, nil
}

// Default returns the embedded document holding sphereMap-V and sphereMap-F.
func Default() *Document {
	doc, err := ParseDocument(strings.NewReader(defaultDocument))
	if err != nil {
		panic(err)
	}
	return doc
}

// Open parses the document at path, or the embedded one when path is empty.
func Open(path string) (*Document, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shader document %s: %w", path, err)
	}
	defer f.Close()
	return ParseDocument(f)
}

// Lookup returns the shader script with the given id. Text is trimmed of
// surrounding whitespace and otherwise passed through verbatim.
func (d *Document) Lookup(id string) (Source, error) {
	s, ok := d.scripts[id]
	if !ok {
		return Source{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	src := Source{ID: id, Text: strings.TrimSpace(s.text)}
	switch s.typ {
	case VertexType:
		src.Stage = gpu.VertexStage
	case FragmentType:
		src.Stage = gpu.FragmentStage
	default:
		return Source{}, fmt.Errorf("%w: %q has type %q", ErrUnknownStage, id, s.typ)
	}
	return src, nil
}

// IDs returns the ids of all script blocks in the document.
func (d *Document) IDs() []string {
	ids := make([]string, 0, len(d.scripts))
	for id := range d.scripts {
		ids = append(ids, id)
	}
	return ids
}

func textOf(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
