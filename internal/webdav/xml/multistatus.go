package xml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
)

const xmlHeader = `<?xml version="1.0" encoding="utf-8"?>` + "\n"

type encMultistatus struct {
	XMLName   xml.Name      `xml:"D:multistatus"`
	Xmlns     string        `xml:"xmlns:D,attr"`
	Responses []encResponse `xml:"D:response"`
}

type encResponse struct {
	Href     string        `xml:"D:href"`
	Propstat []encPropstat `xml:"D:propstat,omitempty"`
	Status   string        `xml:"D:status,omitempty"`
}

type encPropstat struct {
	Prop   encRawProp `xml:"D:prop"`
	Status string     `xml:"D:status"`
}

// encRawProp carries pre-built inner XML because property element names
// are only known at runtime (one element per live or dead property),
// which struct tags cannot express; encoding/xml has no dynamic-tag
// marshalling path, so the <D:prop> children are assembled as text.
type encRawProp struct {
	Inner string `xml:",innerxml"`
}

// EncodeMultistatus renders a 207 Multi-Status document for PROPFIND or
// PROPPATCH responses, hrefs percent-encoded per RFC 4918 §8.3.
func EncodeMultistatus(responses []Response) ([]byte, error) {
	doc := encMultistatus{Xmlns: "DAV:"}
	for _, r := range responses {
		er := encResponse{Href: encodeHref(r.Href), Status: r.Status}
		for _, ps := range r.Propstats {
			er.Propstat = append(er.Propstat, encPropstat{
				Prop:   encRawProp{Inner: renderProps(ps.Props)},
				Status: ps.Status,
			})
		}
		doc.Responses = append(doc.Responses, er)
	}

	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderProps(props []PropValue) string {
	var b strings.Builder
	for _, p := range props {
		tag, nsAttr := qualifiedTag(p.Name)
		if !p.Found {
			fmt.Fprintf(&b, "<%s%s/>", tag, nsAttr)
			continue
		}
		if p.Value == "" {
			fmt.Fprintf(&b, "<%s%s/>", tag, nsAttr)
			continue
		}
		value := p.Value
		if !p.Raw {
			var esc bytes.Buffer
			xml.EscapeText(&esc, []byte(value))
			value = esc.String()
		}
		fmt.Fprintf(&b, "<%s%s>%s</%s>", tag, nsAttr, value, tag)
	}
	return b.String()
}

func qualifiedTag(name PropName) (tag, nsAttr string) {
	switch name.Namespace {
	case "", "DAV:":
		return "D:" + name.Local, ""
	default:
		return name.Local, ` xmlns="` + name.Namespace + `"`
	}
}

func encodeHref(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
