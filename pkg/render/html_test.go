package render

import (
	"strings"
	"testing"
)

func TestHTML_Photo(t *testing.T) {
	out, err := HTML([]Element{PhotoElement("https://unsplash.example/photos/p1", "https://images.example/p1.jpg", "waves on a beach")})
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}

	for _, want := range []string{
		`<a href="https://unsplash.example/photos/p1" target="_blank"`,
		`<img src="https://images.example/p1.jpg"`,
		`alt="waves on a beach"`,
		`title="waves on a beach"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("HTML() missing %q in %q", want, out)
		}
	}
}

func TestHTML_Error(t *testing.T) {
	out, err := HTML([]Element{ErrorElement("Failed to load images. Please try again later.")})
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}

	if !strings.Contains(out, `style="text-align: center"`) {
		t.Errorf("HTML() missing center alignment in %q", out)
	}
	if !strings.Contains(out, ">Failed to load images. Please try again later.</p>") {
		t.Errorf("HTML() missing error text in %q", out)
	}
}

func TestHTML_EscapesContent(t *testing.T) {
	out, err := HTML([]Element{
		PhotoElement("javascript:alert(1)", "u", `"><script>alert(1)</script>`),
	})
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}

	if strings.Contains(out, "<script>") {
		t.Errorf("HTML() did not escape label: %q", out)
	}
	if strings.Contains(out, `href="javascript:`) {
		t.Errorf("HTML() kept unsafe href: %q", out)
	}
}

func TestHTML_PreservesOrder(t *testing.T) {
	out, err := HTML([]Element{
		PhotoElement("l1", "first.jpg", "a"),
		PhotoElement("l2", "second.jpg", "b"),
	})
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}

	if strings.Index(out, "first.jpg") > strings.Index(out, "second.jpg") {
		t.Errorf("HTML() reordered elements: %q", out)
	}
}

func TestHTML_Empty(t *testing.T) {
	out, err := HTML(nil)
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	if out != "" {
		t.Errorf("HTML(nil) = %q, want empty", out)
	}
}
