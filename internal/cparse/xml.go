package cparse

import "encoding/xml"

// XML renders the structural model as an indented document, used by the
// diagnostic dump path instead of binding generation.
func (u *Unit) XML() ([]byte, error) {
	type unit struct {
		XMLName xml.Name   `xml:"unit"`
		Macros  []Macro    `xml:"macro"`
		Opaques []Typedef  `xml:"opaque-typedef"`
		Structs []Struct   `xml:"struct"`
		Enums   []Enum     `xml:"enum"`
		Funcs   []Function `xml:"function"`
	}
	doc := unit{
		Macros:  u.Macros,
		Opaques: u.Opaques,
		Structs: u.Structs,
		Enums:   u.Enums,
		Funcs:   u.Functions,
	}
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), data...), nil
}
