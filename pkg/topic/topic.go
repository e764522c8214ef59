// Package topic implements the pza topic algebra: parsing a pub/sub key
// into its namespace, instance name and layer stack, and composing class
// and attribute topics from a parent topic plus a leaf name.
package topic

import "strings"

const pivot = "pza"

// Topic is a parsed pub/sub key of the form
// "<namespace.../>pza/<instance>/<layer>/.../<leaf>".
type Topic struct {
	Namespace   string
	Instance    string
	Layers      []string
	IsAttribute bool
}

// FromString parses raw into a Topic. isAttribute controls whether the
// last layer is treated as an attribute leaf (excluded from
// ClassStackName) or as a class layer.
func FromString(raw string, isAttribute bool) Topic {
	parts := strings.Split(raw, "/")

	pivotIdx := -1
	for i, p := range parts {
		if p == pivot {
			pivotIdx = i
			break
		}
	}

	var namespaceParts []string
	var rest []string
	if pivotIdx >= 0 {
		namespaceParts = parts[:pivotIdx]
		rest = parts[pivotIdx+1:]
	} else {
		rest = parts
	}

	t := Topic{
		Namespace:   strings.Join(namespaceParts, "/"),
		IsAttribute: isAttribute,
	}
	if len(rest) > 0 {
		t.Instance = rest[0]
		if len(rest) > 1 {
			t.Layers = append([]string{}, rest[1:]...)
		}
	}
	return t
}

// ClassStackName joins the layer stack with "/". For an attribute topic the
// last layer (the attribute leaf) is excluded.
func (t Topic) ClassStackName() string {
	layers := t.Layers
	if t.IsAttribute && len(layers) > 0 {
		layers = layers[:len(layers)-1]
	}
	return strings.Join(layers, "/")
}

// LeafName returns the last layer, or "" if there are none.
func (t Topic) LeafName() string {
	if len(t.Layers) == 0 {
		return ""
	}
	return t.Layers[len(t.Layers)-1]
}

// RootTopic formats the pivot-rooted root topic for a namespace, e.g.
// RootTopic("foo") == "foo/pza", RootTopic("") == "pza".
func RootTopic(namespace string) string {
	if namespace == "" {
		return pivot
	}
	return namespace + "/" + pivot
}

// Join composes a child topic from a parent topic and a leaf name.
func Join(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// CmdTopic returns the inbound command topic for an attribute topic.
func CmdTopic(attributeTopic string) string {
	return attributeTopic + "/cmd"
}

// AttTopic returns the outbound state topic for an attribute topic.
func AttTopic(attributeTopic string) string {
	return attributeTopic + "/att"
}
