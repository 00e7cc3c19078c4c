package preview

import (
	"embed"
	"errors"
	"path"
	"sort"
	"sync"
)

// Buffer names one of the three editable sources.
type Buffer string

const (
	BufferMarkup Buffer = "html"
	BufferStyle  Buffer = "css"
	BufferScript Buffer = "js"
)

var (
	ErrUnknownBuffer  = errors.New("unknown buffer")
	ErrUnknownExample = errors.New("unknown example")
)

// Sources is the markup/style/script triple.
type Sources struct {
	Markup string `json:"html"`
	Style  string `json:"css"`
	Script string `json:"js"`
}

// Document is one composition of the workspace. Version increases on every
// change so clients can drop stale frames.
type Document struct {
	Version int     `json:"version"`
	Sources Sources `json:"sources"`
	HTML    string  `json:"document"`
}

//go:embed examples
var examplesFS embed.FS

// Example names of the built-in starter buffers.
const (
	ExampleDefault = "default"
	ExampleBlank   = "blank"
	ExampleCounter = "counter"
	ExampleTodo    = "todo"
)

// Examples lists the built-in example names.
func Examples() []string {
	entries, err := examplesFS.ReadDir("examples")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// Example returns the sources of a built-in example.
func Example(name string) (Sources, error) {
	read := func(file string) (string, error) {
		data, err := examplesFS.ReadFile(path.Join("examples", name, file))
		if err != nil {
			return "", ErrUnknownExample
		}
		return string(data), nil
	}
	var (
		src Sources
		err error
	)
	if src.Markup, err = read("index.html"); err != nil {
		return Sources{}, err
	}
	if src.Style, err = read("style.css"); err != nil {
		return Sources{}, err
	}
	if src.Script, err = read("script.js"); err != nil {
		return Sources{}, err
	}
	return src, nil
}

// Workspace holds one editing session's buffers and recomposes on every edit.
// Buffers are never persisted.
type Workspace struct {
	mu      sync.Mutex
	sources Sources
	version int
	doc     string
}

// NewWorkspace starts from the default example.
func NewWorkspace() *Workspace {
	w := &Workspace{}
	src, err := Example(ExampleDefault)
	if err == nil {
		w.sources = src
	}
	w.doc = Compose(w.sources.Markup, w.sources.Style, w.sources.Script)
	return w
}

// Edit replaces one buffer and returns the recomposed document.
func (w *Workspace) Edit(buf Buffer, text string) (Document, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch buf {
	case BufferMarkup:
		w.sources.Markup = text
	case BufferStyle:
		w.sources.Style = text
	case BufferScript:
		w.sources.Script = text
	default:
		return w.documentLocked(), ErrUnknownBuffer
	}
	return w.recomposeLocked(), nil
}

// Set replaces all three buffers at once.
func (w *Workspace) Set(src Sources) Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sources = src
	return w.recomposeLocked()
}

// Load replaces the buffers with a built-in example.
func (w *Workspace) Load(name string) (Document, error) {
	src, err := Example(name)
	if err != nil {
		return w.Document(), err
	}
	return w.Set(src), nil
}

// Clear resets the buffers to the blank starter.
func (w *Workspace) Clear() Document {
	doc, err := w.Load(ExampleBlank)
	if err != nil {
		return w.Set(Sources{})
	}
	return doc
}

// Document returns the latest composition without changing it.
func (w *Workspace) Document() Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.documentLocked()
}

func (w *Workspace) recomposeLocked() Document {
	w.version++
	w.doc = Compose(w.sources.Markup, w.sources.Style, w.sources.Script)
	return w.documentLocked()
}

func (w *Workspace) documentLocked() Document {
	return Document{Version: w.version, Sources: w.sources, HTML: w.doc}
}
