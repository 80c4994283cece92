package ucsm

import (
	"encoding/xml"
	"sort"
	"strings"

	"github.com/mitchellh/copystructure"
)

const (
	StatusCreated         = "created"
	StatusCreatedModified = "created,modified"
	StatusDeleted         = "deleted"
)

// ManagedObject is a management plane object. It is encoded as an XML element
// named after its class, with dn, status and the remaining attributes as XML attributes.
type ManagedObject struct {
	Class    string
	Dn       string
	Status   string
	Attrs    map[string]string
	Children []*ManagedObject
}

// NewMo returns a managed object of class at dn.
func NewMo(class, dn string, attrs map[string]string, children ...*ManagedObject) *ManagedObject {
	if attrs == nil {
		attrs = map[string]string{}
	}

	return &ManagedObject{
		Class:    class,
		Dn:       dn,
		Attrs:    attrs,
		Children: children,
	}
}

// Attr returns the named attribute, empty if unset.
func (mo *ManagedObject) Attr(name string) string {
	if mo == nil || mo.Attrs == nil {
		return ""
	}

	return mo.Attrs[name]
}

// Clone returns a deep copy of the object and its children.
func (mo *ManagedObject) Clone() *ManagedObject {
	if mo == nil {
		return nil
	}

	return copystructure.Must(copystructure.Copy(mo)).(*ManagedObject)
}

// ParentDn returns the dn of the containing object.
func ParentDn(dn string) string {
	idx := strings.LastIndex(dn, "/")
	if idx < 0 {
		return ""
	}

	return dn[:idx]
}

// MarshalXML implements xml.Marshaler.
func (mo *ManagedObject) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	start := xml.StartElement{Name: xml.Name{Local: mo.Class}}

	if mo.Dn != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "dn"}, Value: mo.Dn})
	}

	keys := make([]string, 0, len(mo.Attrs))
	for k := range mo.Attrs {
		if k == "dn" || k == "status" {
			continue
		}

		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: k}, Value: mo.Attrs[k]})
	}

	if mo.Status != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "status"}, Value: mo.Status})
	}

	if err := e.EncodeToken(start); err != nil {
		return err
	}

	for _, child := range mo.Children {
		if err := e.Encode(child); err != nil {
			return err
		}
	}

	return e.EncodeToken(start.End())
}

// UnmarshalXML implements xml.Unmarshaler.
func (mo *ManagedObject) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	mo.Class = start.Name.Local
	mo.Attrs = make(map[string]string, len(start.Attr))

	for _, a := range start.Attr {
		switch a.Name.Local {
		case "dn":
			mo.Dn = a.Value
		case "status":
			mo.Status = a.Value
		default:
			mo.Attrs[a.Name.Local] = a.Value
		}
	}

	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			child := &ManagedObject{}
			if err := child.UnmarshalXML(d, t); err != nil {
				return err
			}

			mo.Children = append(mo.Children, child)
		case xml.EndElement:
			return nil
		}
	}
}
