package xml

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

var errInvalidProppatch = errors.New("xml: propertyupdate body must start with a propertyupdate element")

type rawPropItem struct {
	XMLName  xml.Name
	InnerXML string `xml:",innerxml"`
}

type rawPropList struct {
	Items []rawPropItem `xml:",any"`
}

type setOrRemoveBody struct {
	Prop rawPropList `xml:"DAV: prop"`
}

type propertyUpdateBody struct {
	XMLName xml.Name          `xml:"DAV: propertyupdate"`
	Set     []setOrRemoveBody `xml:"DAV: set"`
	Remove  []setOrRemoveBody `xml:"DAV: remove"`
}

// ParseProppatch reads and parses a PROPPATCH request body, tolerant of
// any ordering of set/remove blocks.
func ParseProppatch(r io.Reader) (*PropertyUpdate, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var body propertyUpdateBody
	if err := xml.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	if body.XMLName.Local != "propertyupdate" {
		return nil, errInvalidProppatch
	}

	update := &PropertyUpdate{}
	for _, block := range body.Set {
		for _, item := range block.Prop.Items {
			update.Set = append(update.Set, RawProp{
				Name:  PropName{Namespace: item.XMLName.Space, Local: item.XMLName.Local},
				Value: strings.TrimSpace(item.InnerXML),
			})
		}
	}
	for _, block := range body.Remove {
		for _, item := range block.Prop.Items {
			update.Remove = append(update.Remove, PropName{Namespace: item.XMLName.Space, Local: item.XMLName.Local})
		}
	}
	return update, nil
}
