// internal/listing/parse.go
package listing

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Markers whose co-occurrence in a response body identifies a login
// bounce instead of listing content.
const (
	usernameMarker = `name="username"`
	passwordMarker = `name="password"`
)

// idPattern matches the numeric posting id embedded in a row's text.
var idPattern = regexp.MustCompile(`#\d+`)

// Control classification word lists. Cancel wins over accept: a control
// matching both lists must never be treated as an accept control.
var (
	acceptWords = []string{"annehmen", "übernehmen", "accept"}
	cancelWords = []string{"stornieren", "absagen", "storno", "cancel"}
)

// maxKeyFragment bounds the fallback key derived from row text.
const maxKeyFragment = 80

// IsLoginPage reports whether body is the portal's login page.
func IsLoginPage(body string) bool {
	return strings.Contains(body, usernameMarker) && strings.Contains(body, passwordMarker)
}

// Parse extracts every entry block from raw listing markup. Each form in
// the document is one candidate entry; callers filter on the entry's
// flags. Parse never touches the network.
func Parse(raw []byte) ([]Entry, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("listing parse: %w", err)
	}

	var entries []Entry
	for _, form := range findAll(doc, atom.Form) {
		entries = append(entries, entryFromForm(form))
	}
	return entries, nil
}

func entryFromForm(form *html.Node) Entry {
	text := collapse(textContent(entryBlock(form)))

	e := Entry{
		RawText: text,
		Key:     deriveKey(text),
		Form: Form{
			Action: attr(form, "action"),
			Method: strings.ToUpper(attr(form, "method")),
			Fields: make(map[string]string),
		},
	}

	for _, in := range findAll(form, atom.Input) {
		name := attr(in, "name")
		if name == "" {
			continue
		}
		switch strings.ToLower(attr(in, "type")) {
		case "submit", "button", "image":
			classifyControl(&e, name, attr(in, "value"), attr(in, "value"))
		default:
			e.Form.Fields[name] = attr(in, "value")
		}
	}

	for _, btn := range findAll(form, atom.Button) {
		// Unspecified button type defaults to submit.
		typ := strings.ToLower(attr(btn, "type"))
		if typ == "" || typ == "submit" {
			classifyControl(&e, attr(btn, "name"), attr(btn, "value"), textContent(btn))
		}
	}

	return e
}

// classifyControl records a submit control on the entry. The first accept
// control wins; any cancel-flavored control taints the whole entry.
func classifyControl(e *Entry, name, value, label string) {
	probe := strings.ToLower(name + " " + value + " " + label)
	switch {
	case containsAny(probe, cancelWords):
		e.HasCancel = true
	case containsAny(probe, acceptWords):
		if !e.HasAccept {
			e.HasAccept = true
			e.Form.AcceptName = name
			e.Form.AcceptValue = value
		}
	}
}

// deriveKey prefers the embedded numeric id; otherwise falls back to the
// row's leading text fragment (location/date in the portal's layout).
func deriveKey(text string) string {
	if m := idPattern.FindString(text); m != "" {
		return m
	}
	r := []rune(text)
	if len(r) > maxKeyFragment {
		r = r[:maxKeyFragment]
	}
	return strings.TrimSpace(string(r))
}

// entryBlock climbs from the form to the row container it belongs to:
// a table row, list item, or an element whose class mentions "job".
// Falls back to the form itself.
func entryBlock(form *html.Node) *html.Node {
	for n := form.Parent; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if n.DataAtom == atom.Body || n.DataAtom == atom.Html {
			break
		}
		if n.DataAtom == atom.Tr || n.DataAtom == atom.Li {
			return n
		}
		if strings.Contains(strings.ToLower(attr(n, "class")), "job") {
			return n
		}
	}
	return form
}

// ---- node helpers ----

func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == a {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
