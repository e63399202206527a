package render

import "context"

// Kind identifies the type of a rendered element.
type Kind string

const (
	// KindPhoto is a clickable wrapper around an image.
	KindPhoto Kind = "photo"

	// KindError is a user-visible error message.
	KindError Kind = "error"
)

// TargetBlank opens a link in a new browsing context.
const TargetBlank = "_blank"

// Element is one node appended to a surface.
type Element struct {
	Kind Kind `json:"kind"`

	// Photo wrapper fields.
	Href   string `json:"href,omitempty"`
	Target string `json:"target,omitempty"`
	Src    string `json:"src,omitempty"`
	Alt    string `json:"alt,omitempty"`
	Title  string `json:"title,omitempty"`

	// Error message fields.
	Text  string `json:"text,omitempty"`
	Align string `json:"align,omitempty"`
}

// PhotoElement builds a wrapper linking to href, opening in a new browsing
// context, around an image with the given source. label is both the
// accessible label and the tooltip.
func PhotoElement(href, src, label string) Element {
	return Element{
		Kind:   KindPhoto,
		Href:   href,
		Target: TargetBlank,
		Src:    src,
		Alt:    label,
		Title:  label,
	}
}

// ErrorElement builds a center-aligned error message.
func ErrorElement(text string) Element {
	return Element{
		Kind:  KindError,
		Text:  text,
		Align: "center",
	}
}

// Surface is the write side of a render target.
type Surface interface {
	// AppendElement adds e after every element already on the surface.
	AppendElement(ctx context.Context, e Element) error

	// SetLoaderVisible shows or hides the loading indicator.
	SetLoaderVisible(ctx context.Context, visible bool) error
}

// Reader is the read side of a render target.
type Reader interface {
	// Elements returns the elements at index from onwards.
	Elements(ctx context.Context, from int) ([]Element, error)

	// Len returns the number of elements appended so far.
	Len(ctx context.Context) (int, error)

	// LoaderVisible reports the loading indicator state.
	LoaderVisible(ctx context.Context) (bool, error)
}

// ReadWriter is a surface that can also be read back.
type ReadWriter interface {
	Surface
	Reader
}
