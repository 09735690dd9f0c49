package xml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePropfind_Empty(t *testing.T) {
	req, err := ParsePropfind(strings.NewReader(""))
	require.NoError(t, err)
	require.True(t, req.Allprop)
}

func TestParsePropfind_Allprop(t *testing.T) {
	body := `<?xml version="1.0"?><D:propfind xmlns:D="DAV:"><D:allprop/></D:propfind>`
	req, err := ParsePropfind(strings.NewReader(body))
	require.NoError(t, err)
	require.True(t, req.Allprop)
}

func TestParsePropfind_Propname(t *testing.T) {
	body := `<?xml version="1.0"?><D:propfind xmlns:D="DAV:"><D:propname/></D:propfind>`
	req, err := ParsePropfind(strings.NewReader(body))
	require.NoError(t, err)
	require.True(t, req.PropName)
}

func TestParsePropfind_NamedProps(t *testing.T) {
	body := `<?xml version="1.0"?>
<D:propfind xmlns:D="DAV:" xmlns:Z="http://example.com/">
  <D:prop><D:displayname/><Z:color/></D:prop>
</D:propfind>`
	req, err := ParsePropfind(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, req.Named, 2)
	require.Equal(t, PropName{Namespace: "DAV:", Local: "displayname"}, req.Named[0])
	require.Equal(t, PropName{Namespace: "http://example.com/", Local: "color"}, req.Named[1])
}

func TestParseProppatch_SetAndRemove(t *testing.T) {
	body := `<?xml version="1.0"?>
<D:propertyupdate xmlns:D="DAV:" xmlns:Z="http://example.com/">
  <D:set><D:prop><Z:color>blue</Z:color></D:prop></D:set>
  <D:remove><D:prop><Z:size/></D:prop></D:remove>
</D:propertyupdate>`
	update, err := ParseProppatch(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, update.Set, 1)
	require.Equal(t, "http://example.com/", update.Set[0].Name.Namespace)
	require.Equal(t, "color", update.Set[0].Name.Local)
	require.Equal(t, "blue", update.Set[0].Value)

	require.Len(t, update.Remove, 1)
	require.Equal(t, "size", update.Remove[0].Local)
}

func TestParseProppatch_RejectsWrongRoot(t *testing.T) {
	_, err := ParseProppatch(strings.NewReader(`<D:propfind xmlns:D="DAV:"/>`))
	require.Error(t, err)
}

func TestParseLockInfo_Exclusive(t *testing.T) {
	body := `<?xml version="1.0"?>
<D:lockinfo xmlns:D="DAV:">
  <D:lockscope><D:exclusive/></D:lockscope>
  <D:locktype><D:write/></D:locktype>
  <D:owner><D:href>http://example.com/~user/</D:href></D:owner>
</D:lockinfo>`
	info, err := ParseLockInfo(strings.NewReader(body))
	require.NoError(t, err)
	require.True(t, info.Exclusive)
	require.Contains(t, info.OwnerXML, "example.com")
}

func TestParseLockInfo_EmptyMeansRefresh(t *testing.T) {
	info, err := ParseLockInfo(strings.NewReader(""))
	require.NoError(t, err)
	require.True(t, info.Refresh)
}

func TestParseLockInfo_RejectsShared(t *testing.T) {
	body := `<?xml version="1.0"?>
<D:lockinfo xmlns:D="DAV:">
  <D:lockscope><D:shared/></D:lockscope>
  <D:locktype><D:write/></D:locktype>
  <D:owner>someone</D:owner>
</D:lockinfo>`
	_, err := ParseLockInfo(strings.NewReader(body))
	require.ErrorIs(t, err, errUnsupportedLockInfo)
}

func TestEncodeMultistatus_Basic(t *testing.T) {
	responses := []Response{
		{
			Href: "/docs/a file.txt",
			Propstats: []Propstat{
				{
					Status: "HTTP/1.1 200 OK",
					Props: []PropValue{
						{Name: PropName{Namespace: "DAV:", Local: "displayname"}, Value: "a file.txt", Found: true},
						{Name: PropName{Namespace: "DAV:", Local: "resourcetype"}, Value: "", Found: true},
					},
				},
			},
		},
	}
	out, err := EncodeMultistatus(responses)
	require.NoError(t, err)
	body := string(out)
	require.Contains(t, body, "<D:multistatus")
	require.Contains(t, body, "/docs/a%20file.txt")
	require.Contains(t, body, "<D:displayname>a file.txt</D:displayname>")
	require.Contains(t, body, "<D:resourcetype/>")
}

func TestEncodeMultistatus_ForeignNamespace(t *testing.T) {
	responses := []Response{
		{
			Href: "/f",
			Propstats: []Propstat{
				{
					Status: "HTTP/1.1 200 OK",
					Props: []PropValue{
						{Name: PropName{Namespace: "http://example.com/", Local: "color"}, Value: "blue", Found: true},
					},
				},
			},
		},
	}
	out, err := EncodeMultistatus(responses)
	require.NoError(t, err)
	require.Contains(t, string(out), `<color xmlns="http://example.com/">blue</color>`)
}

func TestWriteLockDiscovery(t *testing.T) {
	var buf strings.Builder
	err := WriteLockDiscovery(&buf, ActiveLock{
		Depth:    "0",
		OwnerXML: "someone",
		TimeoutS: 60,
		Token:    "opaquelocktoken:abc",
		LockRoot: "/docs/a.txt",
	})
	require.NoError(t, err)
	out := buf.String()
	require.Contains(t, out, "<D:depth>0</D:depth>")
	require.Contains(t, out, "Second-60")
	require.Contains(t, out, "opaquelocktoken:abc")
}
