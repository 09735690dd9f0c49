// Package xml implements the WebDAV XML engine: parsing inbound PROPFIND,
// PROPPATCH and LOCK request bodies, and building multi-status and
// lock-discovery response documents in the DAV: namespace.
package xml

// PropName identifies a property by its XML local name and namespace.
// An empty Namespace denotes a name with no explicit namespace.
type PropName struct {
	Namespace string
	Local     string
}

// PropfindRequest is the parsed form of a PROPFIND request body. Exactly
// one of Allprop, PropName or Named applies, per RFC 4918 §9.1.
type PropfindRequest struct {
	Allprop  bool
	PropName bool
	Named    []PropName
}

// PropValue is one property to render inside a response's <prop> element,
// either as a found value (Found true) or a bare name for a 404 propstat.
type PropValue struct {
	Name  PropName
	Value string // raw inner XML/text; empty for resourcetype-style markers
	Raw   bool   // if true, Value is embedded as literal XML, not escaped text
	Found bool
}

// Propstat groups properties sharing one HTTP status inside a response.
type Propstat struct {
	Props  []PropValue
	Status string // e.g. "HTTP/1.1 200 OK"
}

// Response is one <D:response> entry in a multistatus document.
type Response struct {
	Href      string
	Propstats []Propstat
	Status    string // set instead of Propstats for whole-resource errors
}

// PropertyUpdate is the parsed form of a PROPPATCH request body.
type PropertyUpdate struct {
	Set    []RawProp
	Remove []PropName
}

// RawProp is a property set via PROPPATCH, carrying its unparsed inner
// content so arbitrary dead-property values survive round-tripping.
type RawProp struct {
	Name  PropName
	Value string
}

// LockInfo is the parsed form of a LOCK request body. Refresh is true
// when the body was empty: refresh the existing lock.
type LockInfo struct {
	Exclusive bool
	OwnerXML  string
	Refresh   bool
}
