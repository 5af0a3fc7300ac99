// Package resource implements namespaced identifiers of the form "namespace:name".
package resource

import "strings"

// DefaultNamespace is assumed for identifiers written without a namespace.
const DefaultNamespace = "minecraft"

// Location is a namespaced identifier. The zero value is the empty identifier.
type Location struct {
	Namespace string
	Name      string
}

// Minecraft returns an identifier in the default namespace.
func Minecraft(name string) Location {
	return Location{Namespace: DefaultNamespace, Name: name}
}

// Parse splits s at the first colon. Identifiers without a colon are placed in the default namespace.
func Parse(s string) Location {
	if namespace, name, ok := strings.Cut(s, ":"); ok {
		return Location{Namespace: namespace, Name: name}
	}
	return Minecraft(s)
}

func (l Location) IsZero() bool {
	return l.Namespace == "" && l.Name == ""
}

func (l Location) String() string {
	if l.IsZero() {
		return ""
	}
	return l.Namespace + ":" + l.Name
}

// Short omits the default namespace.
func (l Location) Short() string {
	if l.Namespace == DefaultNamespace {
		return l.Name
	}
	return l.String()
}

// Less orders identifiers by namespace, then name.
func (l Location) Less(other Location) bool {
	if l.Namespace != other.Namespace {
		return l.Namespace < other.Namespace
	}
	return l.Name < other.Name
}
