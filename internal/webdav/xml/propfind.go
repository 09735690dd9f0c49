package xml

import (
	"encoding/xml"
	"errors"
	"io"
)

var errInvalidPropfind = errors.New("xml: propfind body has no allprop, propname or prop element")

type namedElement struct {
	XMLName xml.Name
}

type propfindBody struct {
	XMLName  xml.Name       `xml:"DAV: propfind"`
	Allprop  *struct{}      `xml:"DAV: allprop"`
	Propname *struct{}      `xml:"DAV: propname"`
	Prop     *propListBody  `xml:"DAV: prop"`
}

type propListBody struct {
	Items []namedElement `xml:",any"`
}

// ParsePropfind reads and parses a PROPFIND request body. An empty body
// (r returns io.EOF immediately) is treated as an implicit allprop, per
// RFC 4918 §9.1: "a client may choose not to submit a request body ...
// treated as if a PROPFIND allprop request was made".
func ParsePropfind(r io.Reader) (*PropfindRequest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return &PropfindRequest{Allprop: true}, nil
	}

	var body propfindBody
	if err := xml.Unmarshal(data, &body); err != nil {
		return nil, err
	}

	switch {
	case body.Propname != nil:
		return &PropfindRequest{PropName: true}, nil
	case body.Prop != nil:
		req := &PropfindRequest{}
		for _, item := range body.Prop.Items {
			req.Named = append(req.Named, PropName{Namespace: item.XMLName.Space, Local: item.XMLName.Local})
		}
		return req, nil
	case body.Allprop != nil:
		return &PropfindRequest{Allprop: true}, nil
	}
	return nil, errInvalidPropfind
}
