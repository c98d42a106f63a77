package schema

type SchemaColumn struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`

	Nullable bool `json:"nullable,omitempty"`
}

// IndexDef declares an ordered index over one or more columns. Non-unique indexes order
// equal keys by record id.
type IndexDef struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
	Unique bool     `json:"unique,omitempty"`
}

// LinkDef is a named relation to records of Target. A backlink is the inverse view of
// the forward link Via declared on Target.
type LinkDef struct {
	Name   string `json:"name"`
	Target string `json:"target"`

	Backlink bool   `json:"backlink,omitempty"`
	Via      string `json:"via,omitempty"`
}
