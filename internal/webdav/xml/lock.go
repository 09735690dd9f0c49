package xml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
)

var errInvalidLockInfo = errors.New("xml: lockinfo body is malformed")
var errUnsupportedLockInfo = errors.New("xml: only exclusive write locks are supported")

type lockInfoBody struct {
	XMLName   xml.Name  `xml:"DAV: lockinfo"`
	Exclusive *struct{} `xml:"DAV: lockscope>exclusive"`
	Shared    *struct{} `xml:"DAV: lockscope>shared"`
	Write     *struct{} `xml:"DAV: locktype>write"`
	Owner     struct {
		InnerXML string `xml:",innerxml"`
	} `xml:"DAV: owner"`
}

type countingReader struct {
	n int
	r io.Reader
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

// ParseLockInfo reads and parses a LOCK request body. An empty body
// means the request is refreshing an existing lock, per RFC 4918 §9.10.2.
func ParseLockInfo(r io.Reader) (*LockInfo, error) {
	c := &countingReader{r: r}
	var body lockInfoBody
	if err := xml.NewDecoder(c).Decode(&body); err != nil {
		if err == io.EOF {
			if c.n == 0 {
				return &LockInfo{Refresh: true}, nil
			}
			return nil, errInvalidLockInfo
		}
		return nil, err
	}
	if body.Exclusive == nil || body.Shared != nil || body.Write == nil {
		return nil, errUnsupportedLockInfo
	}
	return &LockInfo{Exclusive: true, OwnerXML: body.Owner.InnerXML}, nil
}

// ActiveLock carries the fields needed to render a LOCK lockdiscovery
// response; it mirrors the lock manager's Lock but keeps this package
// free of a dependency on it.
type ActiveLock struct {
	Depth     string // "0" or "infinity"
	OwnerXML  string
	TimeoutS  int64 // seconds remaining; 0 renders "Second-0"
	Token     string
	LockRoot  string
}

// WriteLockDiscovery renders the <D:prop><D:lockdiscovery>...</D:lockdiscovery></D:prop>
// document returned by LOCK, grounded on RFC 4918 §9.10.8's activelock
// schema. It writes a complete document with its own XML declaration;
// PROPFIND does not report lockdiscovery.
func WriteLockDiscovery(w io.Writer, lock ActiveLock) error {
	_, err := io.WriteString(w, "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n"+
		"<D:prop xmlns:D=\"DAV:\"><D:lockdiscovery><D:activelock>\n"+
		"<D:locktype><D:write/></D:locktype>\n"+
		"<D:lockscope><D:exclusive/></D:lockscope>\n"+
		"<D:depth>"+escapeText(lock.Depth)+"</D:depth>\n"+
		"<D:owner>"+lock.OwnerXML+"</D:owner>\n"+
		"<D:timeout>Second-"+strconv.FormatInt(lock.TimeoutS, 10)+"</D:timeout>\n"+
		"<D:locktoken><D:href>"+escapeText(lock.Token)+"</D:href></D:locktoken>\n"+
		"<D:lockroot><D:href>"+escapeText(lock.LockRoot)+"</D:href></D:lockroot>\n"+
		"</D:activelock></D:lockdiscovery></D:prop>")
	return err
}

func escapeText(s string) string {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '&', '\'', '<', '>':
			var b bytes.Buffer
			xml.EscapeText(&b, []byte(s))
			return b.String()
		}
	}
	return s
}
