// Package interactive walks an accessibility forest into InteractiveElement
// and FormRepresentation records, classifying roles into Charlotte's closed
// element-type vocabulary.
package interactive

import (
	"regexp"
	"strings"

	"github.com/ticktockbent/charlotte/internal/axtree"
	"github.com/ticktockbent/charlotte/internal/domsig"
	"github.com/ticktockbent/charlotte/internal/elementid"
	"github.com/ticktockbent/charlotte/internal/layout"
)

// State is the set of boolean flags attached to an InteractiveElement.
type State struct {
	Enabled  bool `json:"enabled"`
	Visible  bool `json:"visible"`
	Focused  bool `json:"focused"`
	Checked  bool `json:"checked"`
	Expanded bool `json:"expanded"`
	Selected bool `json:"selected"`
	Required bool `json:"required"`
	Invalid  bool `json:"invalid"`
}

// Option is one entry of a select/combobox's option list.
type Option struct {
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// Element is an InteractiveElement record.
type Element struct {
	ID          string               `json:"id"`
	Type        elementid.ElementType `json:"type"`
	Label       string               `json:"label"`
	Bounds      *layout.Bounds       `json:"bounds,omitempty"`
	State       State                `json:"state"`
	Href        string               `json:"href,omitempty"`
	Placeholder string               `json:"placeholder,omitempty"`
	Value       string               `json:"value,omitempty"`
	Options     []Option             `json:"options,omitempty"`

	node *axtree.Node
}

// Form is a FormRepresentation record.
type Form struct {
	ID     string   `json:"id"`
	Action string   `json:"action,omitempty"`
	Method string   `json:"method,omitempty"`
	Fields []string `json:"fields"`
	Submit string   `json:"submit,omitempty"`
}

var roleToType = map[string]elementid.ElementType{
	"button":           elementid.TypeButton,
	"menuitem":         elementid.TypeButton,
	"tab":              elementid.TypeButton,
	"link":             elementid.TypeLink,
	"textbox":          elementid.TypeTextInput,
	"searchbox":        elementid.TypeTextInput,
	"combobox":         elementid.TypeSelect,
	"listbox":          elementid.TypeSelect,
	"checkbox":         elementid.TypeCheckbox,
	"menuitemcheckbox": elementid.TypeCheckbox,
	"radio":            elementid.TypeRadio,
	"menuitemradio":    elementid.TypeRadio,
	"switch":           elementid.TypeToggle,
	"slider":           elementid.TypeRange,
	"spinbutton":       elementid.TypeRange,
}

var submitRegexp = regexp.MustCompile(`(?i)submit|send|save|continue|ok`)

// classify maps a node's role (and, for textbox/searchbox, its multiline
// property) to an element type. Unknown interactive roles default to button
// per the open-role-set tolerance rule.
func classify(n *axtree.Node) elementid.ElementType {
	role := n.Role

	if t, ok := roleToType[role]; ok {
		if (role == "textbox" || role == "searchbox") && n.PropBool("multiline") {
			return elementid.TypeTextarea
		}
		return t
	}

	switch strings.ToLower(n.Prop("inputType")) {
	case "date":
		return elementid.TypeDateInput
	case "file":
		return elementid.TypeFileInput
	case "color":
		return elementid.TypeColorInput
	}

	return elementid.TypeButton
}

// Walker walks a forest into interactive elements and forms.
type Walker struct {
	gen *elementid.Generator
}

// NewWalker builds a Walker that allocates ids from gen (the pipeline's
// fresh, per-render generator).
func NewWalker(gen *elementid.Generator) *Walker {
	return &Walker{gen: gen}
}

// frame is one stack entry of Walk's explicit traversal: the node plus the
// index of the next child to descend into, so a node's post-children work
// (closing its form, if it opened one) runs once every child has been
// pushed and popped.
type frame struct {
	node     *axtree.Node
	childIdx int
	isForm   bool
	thisForm *Form
}

// Walk traverses roots, returning interactive elements and forms in
// document order. bounds maps backend DOM node ids to geometry; nodes
// absent from the map (or lacking a backend id) get nil Bounds. Walked with
// an explicit work stack rather than call recursion — the forest can run
// 10^4 nodes deep on heavy SPAs.
func (w *Walker) Walk(roots []*axtree.Node, bounds map[int]layout.Bounds) ([]*Element, []*Form) {
	var elements []*Element
	var forms []*Form

	// formStack tracks open ancestor forms so descendant interactive
	// elements can be attributed to the innermost enclosing form.
	var formStack []*Form
	elementsByNode := make(map[*axtree.Node]*Element)

	for _, root := range roots {
		stack := []*frame{{node: root}}
		for len(stack) > 0 {
			top := stack[len(stack)-1]

			if top.childIdx == 0 {
				top.isForm = top.node.Role == "form"
				if top.isForm {
					top.thisForm = &Form{
						ID:     w.gen.GenerateID(elementid.TypeForm, top.node.Role, top.node.Name, domsig.Compute(top.node), top.node.BackendDOMNodeID),
						Action: top.node.Prop("url"),
					}
					forms = append(forms, top.thisForm)
					formStack = append(formStack, top.thisForm)
				}

				if axtree.IsInteractiveRole(top.node.Role) {
					el := buildElement(w.gen, top.node, bounds)
					elements = append(elements, el)
					elementsByNode[top.node] = el
					if len(formStack) > 0 {
						parent := formStack[len(formStack)-1]
						parent.Fields = append(parent.Fields, el.ID)
					}
				}
			}

			if top.childIdx < len(top.node.Children) {
				child := top.node.Children[top.childIdx]
				top.childIdx++
				stack = append(stack, &frame{node: child})
				continue
			}

			if top.isForm {
				formStack = formStack[:len(formStack)-1]
				top.thisForm.Submit = pickSubmit(top.thisForm, elementsByNode, elements)
			}
			stack = stack[:len(stack)-1]
		}
	}

	return elements, forms
}

func buildElement(gen *elementid.Generator, n *axtree.Node, bounds map[int]layout.Bounds) *Element {
	elType := classify(n)
	sig := domsig.Compute(n)
	id := gen.GenerateID(elType, n.Role, n.Name, sig, n.BackendDOMNodeID)

	label := n.Name
	if label == "" {
		label = n.Value
	}
	if label == "" {
		label = n.Prop("placeholder")
	}

	el := &Element{
		ID:          id,
		Type:        elType,
		Label:       label,
		Placeholder: n.Prop("placeholder"),
		Value:       n.Value,
		Href:        n.Prop("url"),
		State: State{
			Enabled:  !n.PropBool("disabled"),
			Visible:  true,
			Focused:  n.PropBool("focused"),
			Checked:  n.PropBool("checked"),
			Expanded: n.PropBool("expanded"),
			Selected: n.PropBool("selected"),
			Required: n.PropBool("required"),
			Invalid:  n.PropBool("invalid"),
		},
		node: n,
	}

	if n.HasBackendNode() {
		if b, ok := bounds[n.BackendDOMNodeID]; ok && !b.IsZero() {
			boundsCopy := b
			el.Bounds = &boundsCopy
		}
	}

	if elType == elementid.TypeSelect {
		for _, c := range n.Children {
			if c.Role == "option" {
				el.Options = append(el.Options, Option{
					Label:    c.Name,
					Selected: c.PropBool("selected"),
				})
			}
		}
	}

	return el
}

// pickSubmit finds the form's submit button: the first descendant button
// whose label matches the submit-word regex or whose inputType property is
// "submit"; else the form's last button field; else none.
func pickSubmit(form *Form, byNode map[*axtree.Node]*Element, all []*Element) string {
	idToElement := make(map[string]*Element, len(form.Fields))
	for _, el := range byElementsMatching(form.Fields, all) {
		idToElement[el.ID] = el
	}

	var lastButton string
	for _, fieldID := range form.Fields {
		el, ok := idToElement[fieldID]
		if !ok || el.Type != elementid.TypeButton {
			continue
		}
		lastButton = el.ID
		if submitRegexp.MatchString(el.Label) || strings.EqualFold(el.node.Prop("inputType"), "submit") {
			return el.ID
		}
	}
	return lastButton
}

func byElementsMatching(ids []string, all []*Element) []*Element {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	out := make([]*Element, 0, len(ids))
	for _, el := range all {
		if set[el.ID] {
			out = append(out, el)
		}
	}
	return out
}
