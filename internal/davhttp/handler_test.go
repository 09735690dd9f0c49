package davhttp

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/davfs/davfsd/internal/cache"
	"github.com/davfs/davfsd/internal/mount"
	"github.com/davfs/davfsd/internal/webdav/lock"
	"github.com/davfs/davfsd/internal/webdav/property"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	docroot := t.TempDir()
	table, err := mount.NewTable(map[string]string{"/": docroot})
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	h := &Handler{
		Mounts: table,
		Props:  property.NewStore(),
		Locks:  lock.NewManager(cache.NewMemory(0), time.Hour),
	}
	srv := httptest.NewServer(NewRouter(h, logger))
	t.Cleanup(srv.Close)
	return srv, docroot
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, body string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestOptions_AdvertisesDavHeader(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doRequest(t, srv, "OPTIONS", "/", "", nil)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "1, 2", resp.Header.Get("Dav"))
}

func TestPut_ThenGet_RoundTrips(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doRequest(t, srv, "PUT", "/a.txt", "hello world", nil)
	require.Equal(t, 201, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, srv, "GET", "/a.txt", "", nil)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(data))
}

func TestPut_Overwrite_Returns201(t *testing.T) {
	srv, _ := newTestServer(t)

	doRequest(t, srv, "PUT", "/a.txt", "first", nil).Body.Close()
	resp := doRequest(t, srv, "PUT", "/a.txt", "second", nil)
	defer resp.Body.Close()
	require.Equal(t, 201, resp.StatusCode)
}

func TestPut_MissingParent_Returns409(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doRequest(t, srv, "PUT", "/missing/a.txt", "x", nil)
	defer resp.Body.Close()
	require.Equal(t, 409, resp.StatusCode)
}

func TestGet_Missing_Returns404(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doRequest(t, srv, "GET", "/nope.txt", "", nil)
	defer resp.Body.Close()
	require.Equal(t, 404, resp.StatusCode)
}

func TestMkcol_ThenPropfindDepthZero(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doRequest(t, srv, "MKCOL", "/d/", "", nil)
	require.Equal(t, 201, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, srv, "PROPFIND", "/d/", "", map[string]string{"Depth": "0"})
	defer resp.Body.Close()
	require.Equal(t, 207, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(data), "<D:collection/>")
	require.Contains(t, string(data), "<D:href>/d/</D:href>")
}

func TestMkcol_AlreadyExists_Returns405(t *testing.T) {
	srv, _ := newTestServer(t)
	doRequest(t, srv, "MKCOL", "/d/", "", nil).Body.Close()
	resp := doRequest(t, srv, "MKCOL", "/d/", "", nil)
	defer resp.Body.Close()
	require.Equal(t, 405, resp.StatusCode)
}

func TestMkcol_WithBody_Returns415(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doRequest(t, srv, "MKCOL", "/d2/", "<not-allowed/>", nil)
	defer resp.Body.Close()
	require.Equal(t, 415, resp.StatusCode)
}

func TestDelete_File(t *testing.T) {
	srv, docroot := newTestServer(t)
	doRequest(t, srv, "PUT", "/a.txt", "x", nil).Body.Close()

	resp := doRequest(t, srv, "DELETE", "/a.txt", "", nil)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	_, err := os.Stat(filepath.Join(docroot, "a.txt"))
	require.True(t, os.IsNotExist(err))
}

func TestDelete_RecursiveDirectory(t *testing.T) {
	srv, docroot := newTestServer(t)
	require.NoError(t, os.MkdirAll(filepath.Join(docroot, "d", "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docroot, "d", "f.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docroot, "d", "sub", "g.txt"), []byte("y"), 0o644))

	resp := doRequest(t, srv, "DELETE", "/d", "", nil)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	_, err := os.Stat(filepath.Join(docroot, "d"))
	require.True(t, os.IsNotExist(err))
}

func TestProppatch_SetThenPropfindNamed(t *testing.T) {
	srv, _ := newTestServer(t)
	doRequest(t, srv, "PUT", "/a.txt", "x", nil).Body.Close()

	patch := `<?xml version="1.0"?><D:propertyupdate xmlns:D="DAV:">
		<D:set><D:prop><foo xmlns="http://example.com/">bar</foo></D:prop></D:set>
	</D:propertyupdate>`
	resp := doRequest(t, srv, "PROPPATCH", "/a.txt", patch, nil)
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, 207, resp.StatusCode)
	require.Contains(t, string(data), "200 OK")

	find := `<?xml version="1.0"?><D:propfind xmlns:D="DAV:"><D:prop>
		<foo xmlns="http://example.com/"/>
	</D:prop></D:propfind>`
	resp = doRequest(t, srv, "PROPFIND", "/a.txt", find, map[string]string{"Depth": "0"})
	defer resp.Body.Close()
	data, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, 207, resp.StatusCode)
	require.Contains(t, string(data), "bar")
}

func TestCopy_CopiesContentAndDeadProps(t *testing.T) {
	srv, docroot := newTestServer(t)
	doRequest(t, srv, "PUT", "/a.txt", "payload", nil).Body.Close()

	store := property.NewStore()
	if store.Supported() {
		require.NoError(t, store.SetProp(filepath.Join(docroot, "a.txt"), property.Key{Name: "label"}, "v1"))
	}

	resp := doRequest(t, srv, "COPY", "/a.txt", "", map[string]string{"Destination": "http://host/b.txt"})
	defer resp.Body.Close()
	require.Equal(t, 201, resp.StatusCode)

	data, err := os.ReadFile(filepath.Join(docroot, "b.txt"))
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))

	if store.Supported() {
		v, ok := store.Get(filepath.Join(docroot, "b.txt"), property.Key{Name: "label"})
		require.True(t, ok)
		require.Equal(t, "v1", v)
	}
}

func TestMove_DestinationExists_Returns412WithOverwriteF(t *testing.T) {
	srv, _ := newTestServer(t)
	doRequest(t, srv, "PUT", "/a.txt", "1", nil).Body.Close()
	doRequest(t, srv, "PUT", "/b.txt", "2", nil).Body.Close()

	resp := doRequest(t, srv, "MOVE", "/a.txt", "", map[string]string{
		"Destination": "http://host/b.txt",
		"Overwrite":   "F",
	})
	defer resp.Body.Close()
	require.Equal(t, 412, resp.StatusCode)
}

func TestMove_OverwriteAllowed_Returns204(t *testing.T) {
	srv, docroot := newTestServer(t)
	doRequest(t, srv, "PUT", "/a.txt", "new", nil).Body.Close()
	doRequest(t, srv, "PUT", "/b.txt", "old", nil).Body.Close()

	resp := doRequest(t, srv, "MOVE", "/a.txt", "", map[string]string{"Destination": "http://host/b.txt"})
	defer resp.Body.Close()
	require.Equal(t, 204, resp.StatusCode)

	data, err := os.ReadFile(filepath.Join(docroot, "b.txt"))
	require.NoError(t, err)
	require.Equal(t, "new", string(data))
}

func TestLock_ThenUnlock(t *testing.T) {
	srv, _ := newTestServer(t)
	doRequest(t, srv, "PUT", "/a.txt", "x", nil).Body.Close()

	lockBody := `<?xml version="1.0"?><D:lockinfo xmlns:D="DAV:">
		<D:lockscope><D:exclusive/></D:lockscope>
		<D:locktype><D:write/></D:locktype>
		<D:owner><D:href>mailto:me@example.com</D:href></D:owner>
	</D:lockinfo>`
	resp := doRequest(t, srv, "LOCK", "/a.txt", lockBody, map[string]string{"Timeout": "Second-120"})
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Contains(t, string(data), "lockdiscovery")
	token := resp.Header.Get("Lock-Token")
	require.True(t, strings.HasPrefix(token, "<opaquelocktoken:"))
	resp.Body.Close()

	resp2 := doRequest(t, srv, "LOCK", "/a.txt", lockBody, nil)
	defer resp2.Body.Close()
	require.Equal(t, 423, resp2.StatusCode)

	token = strings.TrimSuffix(strings.TrimPrefix(token, "<"), ">")
	resp3 := doRequest(t, srv, "UNLOCK", "/a.txt", "", map[string]string{"Lock-Token": "<" + token + ">"})
	defer resp3.Body.Close()
	require.Equal(t, 204, resp3.StatusCode)
}

func TestUnlock_UnknownToken_Returns409(t *testing.T) {
	srv, _ := newTestServer(t)
	doRequest(t, srv, "PUT", "/a.txt", "x", nil).Body.Close()

	resp := doRequest(t, srv, "UNLOCK", "/a.txt", "", map[string]string{"Lock-Token": "<opaquelocktoken:nope>"})
	defer resp.Body.Close()
	require.Equal(t, 409, resp.StatusCode)
}
