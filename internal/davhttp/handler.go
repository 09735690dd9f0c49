// Package davhttp wires the path resolver, property store, XML engine and
// lock manager into gin HTTP handlers for the WebDAV methods.
package davhttp

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/davfs/davfsd/internal/mount"
	"github.com/davfs/davfsd/internal/webdav/lock"
	"github.com/davfs/davfsd/internal/webdav/property"
	davxml "github.com/davfs/davfsd/internal/webdav/xml"
)

// liveProps lists the DAV: live properties in the fixed order PROPFIND
// allprop renders them.
var liveProps = []string{
	"resourcetype",
	"getcontentlength",
	"getcontenttype",
	"creationdate",
	"getlastmodified",
	"displayname",
	"executable",
	"getetag",
}

// Handler dispatches WebDAV methods against a mount table, a dead-property
// store and a lock manager. One Handler serves every configured mountpoint.
type Handler struct {
	Mounts  *mount.Table
	Props   *property.Store
	Locks   *lock.Manager
	Dirlist DirlistOptions
}

func (h *Handler) resolveMount(c *gin.Context) (mount.Mountpoint, string, bool) {
	m, rel, ok := h.Mounts.Lookup(c.Request.URL.Path)
	if !ok {
		c.Status(http.StatusNotFound)
		return mount.Mountpoint{}, "", false
	}
	return m, rel, true
}

// requestURI is the canonical lock/display identifier for a request: an
// "http://" URL built from the Host header and the request path, used as
// the lock key and as the lockroot href.
func requestURI(c *gin.Context) string {
	host := c.Request.Host
	if host == "" {
		host = "localhost"
	}
	return "http://" + host + c.Request.URL.Path
}

// Options answers OPTIONS with the DAV compliance classes this server
// implements.
func (h *Handler) Options(c *gin.Context) {
	c.Header("Dav", "1, 2")
	c.Header("Allow", "OPTIONS, GET, HEAD, PUT, DELETE, MKCOL, COPY, MOVE, PROPFIND, PROPPATCH, LOCK, UNLOCK")
	c.Status(http.StatusOK)
}

// Get serves a file's bytes or a collection's HTML directory listing.
func (h *Handler) Get(c *gin.Context) {
	h.get(c, true)
}

// Head performs the same resolution and headers as Get but never writes
// a body.
func (h *Handler) Head(c *gin.Context) {
	h.get(c, false)
}

func (h *Handler) get(c *gin.Context, withBody bool) {
	m, rel, ok := h.resolveMount(c)
	if !ok {
		return
	}
	path, err := mount.ResolveStrict(m, rel)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	fi, err := os.Stat(path)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	if fi.IsDir() {
		entries, err := readDirEntries(path)
		if err != nil {
			c.Status(http.StatusForbidden)
			return
		}
		body := renderDirlist(c.Request.URL.Path, entries, h.Dirlist)
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.Header("Content-Length", strconv.Itoa(len(body)))
		if !withBody {
			c.Status(http.StatusOK)
			return
		}
		c.String(http.StatusOK, "%s", body)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		c.Status(http.StatusForbidden)
		return
	}
	defer f.Close()

	c.Header("Content-Type", contentTypeOf(path))
	c.Header("Content-Length", strconv.FormatInt(fi.Size(), 10))
	c.Header("Last-Modified", property.HTTPDate(fi.ModTime()))
	if !withBody {
		c.Status(http.StatusOK)
		return
	}
	c.Status(http.StatusOK)
	io.Copy(c.Writer, f)
}

func readDirEntries(path string) ([]os.FileInfo, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	out := make([]os.FileInfo, 0, len(entries))
	for _, e := range entries {
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, fi)
	}
	return out, nil
}

// Put creates or overwrites a file, streaming the request body in 32KiB
// chunks. It always answers 201 Created, whether or not a file already
// occupied the path — unlike COPY/MOVE, PUT has no Overwrite header to
// report back against, so there's no distinct "replaced" status to give.
func (h *Handler) Put(c *gin.Context) {
	m, rel, ok := h.resolveMount(c)
	if !ok {
		return
	}
	path, err := mount.ResolveParent(m, rel)
	if err != nil {
		c.Status(http.StatusConflict)
		return
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		c.Status(http.StatusForbidden)
		return
	}
	defer f.Close()

	buf := make([]byte, 32*1024)
	if _, err := io.CopyBuffer(f, c.Request.Body, buf); err != nil {
		c.Status(http.StatusForbidden)
		return
	}

	c.Status(http.StatusCreated)
}

// Delete removes a file or recursively removes a directory, depth-first,
// aborting with 403 on the first failure.
func (h *Handler) Delete(c *gin.Context) {
	m, rel, ok := h.resolveMount(c)
	if !ok {
		return
	}
	path, err := mount.ResolveStrict(m, rel)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	if err := removeRecursive(path); err != nil {
		c.Status(http.StatusForbidden)
		return
	}
	c.Status(http.StatusOK)
}

// removeRecursive walks path depth-first, removing regular files before
// their parent directory, and never follows a symlink out of the subtree
// (os.Remove/os.Lstat operate on the link itself, not its target).
func removeRecursive(path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return os.Remove(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := removeRecursive(filepath.Join(path, e.Name())); err != nil {
			return err
		}
	}
	return os.Remove(path)
}

// Mkcol creates a new collection. A request body is rejected with 415 since
// this server does not support the extended MKCOL variants some clients
// send.
func (h *Handler) Mkcol(c *gin.Context) {
	if n, _ := c.Request.Body.Read(make([]byte, 1)); n > 0 {
		c.Status(http.StatusUnsupportedMediaType)
		return
	}

	m, rel, ok := h.resolveMount(c)
	if !ok {
		return
	}
	path, err := mount.ResolveParent(m, rel)
	if err != nil {
		c.Status(http.StatusConflict)
		return
	}
	if _, err := os.Stat(path); err == nil {
		c.Status(http.StatusMethodNotAllowed)
		return
	}

	if err := os.Mkdir(path, 0o755); err != nil {
		c.Status(http.StatusForbidden)
		return
	}
	c.Status(http.StatusCreated)
}

// destination resolves the Destination header by stripping the scheme,
// "://" and host, leaving a request path to resolve against the same
// mount table as the source.
func destination(c *gin.Context) (string, bool) {
	raw := c.Request.Header.Get("Destination")
	if raw == "" {
		return "", false
	}
	if idx := strings.Index(raw, "://"); idx >= 0 {
		raw = raw[idx+3:]
		if slash := strings.IndexByte(raw, '/'); slash >= 0 {
			raw = raw[slash:]
		} else {
			raw = "/"
		}
	}
	return raw, true
}

func overwriteAllowed(c *gin.Context) bool {
	return strings.ToUpper(c.Request.Header.Get("Overwrite")) != "F"
}

// Copy duplicates a resource, recursing into collections and copying
// dead properties along with file contents.
func (h *Handler) Copy(c *gin.Context) {
	h.copyOrMove(c, false)
}

// Move renames a resource, falling back to copy-then-delete whenever
// rename(2) fails, as it does across filesystems.
func (h *Handler) Move(c *gin.Context) {
	h.copyOrMove(c, true)
}

func (h *Handler) copyOrMove(c *gin.Context, isMove bool) {
	srcMount, srcRel, ok := h.resolveMount(c)
	if !ok {
		return
	}
	srcPath, err := mount.ResolveStrict(srcMount, srcRel)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	destReqPath, ok := destination(c)
	if !ok {
		c.Status(http.StatusBadRequest)
		return
	}
	dstMount, dstRel, ok := h.Mounts.Lookup(destReqPath)
	if !ok {
		c.Status(http.StatusConflict)
		return
	}
	dstPath, err := mount.ResolveParent(dstMount, dstRel)
	if err != nil {
		c.Status(http.StatusConflict)
		return
	}

	overwritten := false
	if _, err := os.Stat(dstPath); err == nil {
		if !overwriteAllowed(c) {
			c.Status(http.StatusPreconditionFailed)
			return
		}
		if err := removeRecursive(dstPath); err != nil {
			c.Status(http.StatusForbidden)
			return
		}
		overwritten = true
	}

	if isMove {
		if err := os.Rename(srcPath, dstPath); err != nil {
			if err := copyRecursive(srcPath, dstPath, h.Props); err != nil {
				c.Status(http.StatusForbidden)
				return
			}
			if err := removeRecursive(srcPath); err != nil {
				c.Status(http.StatusForbidden)
				return
			}
		}
	} else {
		if err := copyRecursive(srcPath, dstPath, h.Props); err != nil {
			c.Status(http.StatusForbidden)
			return
		}
	}

	if overwritten {
		c.Status(http.StatusNoContent)
		return
	}
	c.Status(http.StatusCreated)
}

func copyRecursive(src, dst string, props *property.Store) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return err
	}

	if fi.IsDir() {
		if err := os.MkdirAll(dst, fi.Mode().Perm()); err != nil {
			return err
		}
		entries, err := os.ReadDir(src)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := copyRecursive(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name()), props); err != nil {
				return err
			}
		}
		return copyDeadProps(src, dst, props)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	buf := make([]byte, 32*1024)
	if _, err := io.CopyBuffer(out, in, buf); err != nil {
		return err
	}
	return copyDeadProps(src, dst, props)
}

func copyDeadProps(src, dst string, props *property.Store) error {
	if !props.Supported() {
		return nil
	}
	for key, value := range props.DeadProperties(src) {
		if err := props.SetProp(dst, key, value); err != nil {
			return err
		}
	}
	return nil
}

// depthHeader parses the Depth header, defaulting to infinity for
// collections and zero for non-collections when the header is absent.
func depthHeader(c *gin.Context, isCollection bool) string {
	d := c.Request.Header.Get("Depth")
	switch d {
	case "0", "1", "infinity":
		return d
	default:
		if isCollection {
			return "infinity"
		}
		return "0"
	}
}

// statusLine builds a propstat/response status line using the inbound
// request's own protocol string (e.g. "HTTP/1.1" or "HTTP/2.0") rather
// than a hardcoded one, so a client talking a different protocol version
// gets it echoed back the way the status line always has.
func statusLine(proto string, code int, reason string) string {
	return fmt.Sprintf("%s %d %s", proto, code, reason)
}

// Propfind reports live and dead properties for a resource, recursing
// into collections per the Depth header.
func (h *Handler) Propfind(c *gin.Context) {
	m, rel, ok := h.resolveMount(c)
	if !ok {
		return
	}
	path, err := mount.ResolveStrict(m, rel)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	fi, err := os.Stat(path)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	req, err := davxml.ParsePropfind(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	depth := depthHeader(c, fi.IsDir())
	proto := c.Request.Proto

	var responses []davxml.Response
	h.collectPropfind(&responses, m, rel, c.Request.URL.Path, req, depth, proto)

	body, err := davxml.EncodeMultistatus(responses)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Data(207, "application/xml; charset=utf-8", body)
}

// propfindEntryNames lists a directory's entries in raw filesystem
// order, unlike os.ReadDir which sorts by name — PROPFIND enumeration is
// not supposed to impose an ordering the way the GET directory listing
// does.
func propfindEntryNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Readdirnames(-1)
}

func (h *Handler) collectPropfind(out *[]davxml.Response, m mount.Mountpoint, rel, uri string, req *davxml.PropfindRequest, depth, proto string) {
	path, err := mount.ResolveStrict(m, rel)
	if err != nil {
		return
	}
	*out = append(*out, h.propfindOne(path, uri, req, proto))

	fi, err := os.Stat(path)
	if err != nil || !fi.IsDir() || depth == "0" {
		return
	}

	names, err := propfindEntryNames(path)
	if err != nil {
		return
	}

	childDepth := "0"
	if depth == "infinity" {
		childDepth = "infinity"
	}
	for _, name := range names {
		childRel := strings.TrimSuffix(rel, "/") + "/" + name
		childURI := strings.TrimSuffix(uri, "/") + "/" + name
		h.collectPropfind(out, m, childRel, childURI, req, childDepth, proto)
	}
}

func (h *Handler) propfindOne(path, uri string, req *davxml.PropfindRequest, proto string) davxml.Response {
	live, err := property.Stat(path, uri, contentTypeOf)
	if err != nil {
		return davxml.Response{Href: uri, Status: statusLine(proto, http.StatusNotFound, "Not Found")}
	}
	dead := h.Props.DeadProperties(path)

	switch {
	case req.PropName:
		var names []davxml.PropName
		for _, n := range liveProps {
			names = append(names, davxml.PropName{Namespace: "DAV:", Local: n})
		}
		for k := range dead {
			names = append(names, davxml.PropName{Namespace: k.Namespace, Local: k.Name})
		}
		props := make([]davxml.PropValue, 0, len(names))
		for _, n := range names {
			props = append(props, davxml.PropValue{Name: n})
		}
		return davxml.Response{Href: uri, Propstats: []davxml.Propstat{{Props: props, Status: statusLine(proto, http.StatusOK, "OK")}}}

	case req.Allprop:
		var props []davxml.PropValue
		for _, n := range liveProps {
			props = append(props, liveValue(n, live))
		}
		for k, v := range dead {
			props = append(props, davxml.PropValue{Name: davxml.PropName{Namespace: k.Namespace, Local: k.Name}, Value: v, Found: true})
		}
		return davxml.Response{Href: uri, Propstats: []davxml.Propstat{{Props: props, Status: statusLine(proto, http.StatusOK, "OK")}}}

	default:
		var found, missing []davxml.PropValue
		for _, name := range req.Named {
			if name.Namespace == "DAV:" || name.Namespace == "" {
				if isLiveProp(name.Local) {
					found = append(found, liveValue(name.Local, live))
					continue
				}
			}
			if v, ok := dead[property.Key{Namespace: name.Namespace, Name: name.Local}]; ok {
				found = append(found, davxml.PropValue{Name: name, Value: v, Found: true})
				continue
			}
			missing = append(missing, davxml.PropValue{Name: name})
		}

		var propstats []davxml.Propstat
		if len(found) > 0 {
			propstats = append(propstats, davxml.Propstat{Props: found, Status: statusLine(proto, http.StatusOK, "OK")})
		}
		if len(missing) > 0 {
			propstats = append(propstats, davxml.Propstat{Props: missing, Status: statusLine(proto, http.StatusNotFound, "Not Found")})
		}
		return davxml.Response{Href: uri, Propstats: propstats}
	}
}

func isLiveProp(name string) bool {
	for _, n := range liveProps {
		if n == name {
			return true
		}
	}
	return false
}

func liveValue(name string, live property.Live) davxml.PropValue {
	pn := davxml.PropName{Namespace: "DAV:", Local: name}
	switch name {
	case "resourcetype":
		rt := live.ResourceType()
		return davxml.PropValue{Name: pn, Value: rt, Raw: true, Found: true}
	case "getcontentlength":
		if live.Kind == property.KindCollection {
			return davxml.PropValue{Name: pn, Found: false}
		}
		return davxml.PropValue{Name: pn, Value: strconv.FormatInt(live.Size, 10), Found: true}
	case "getcontenttype":
		if live.Kind == property.KindCollection {
			return davxml.PropValue{Name: pn, Found: false}
		}
		return davxml.PropValue{Name: pn, Value: live.ContentType, Found: true}
	case "creationdate":
		return davxml.PropValue{Name: pn, Value: property.HTTPDate(live.CreationDate), Found: true}
	case "getlastmodified":
		return davxml.PropValue{Name: pn, Value: property.HTTPDate(live.LastModified), Found: true}
	case "displayname":
		return davxml.PropValue{Name: pn, Value: live.DisplayName, Found: true}
	case "executable":
		if !live.Executable {
			return davxml.PropValue{Name: pn, Found: false}
		}
		return davxml.PropValue{Name: pn, Value: "T", Found: true}
	case "getetag":
		return davxml.PropValue{Name: pn, Value: live.ETag, Found: true}
	}
	return davxml.PropValue{Name: pn, Found: false}
}

// Proppatch applies a PROPPATCH set/remove batch to a resource's dead
// properties, reporting per-property 200/403 status lines inside one
// multi-status response.
func (h *Handler) Proppatch(c *gin.Context) {
	m, rel, ok := h.resolveMount(c)
	if !ok {
		return
	}
	path, err := mount.ResolveStrict(m, rel)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	update, err := davxml.ParseProppatch(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	proto := c.Request.Proto
	var ok200, fail []davxml.PropValue
	for _, p := range update.Set {
		key := property.Key{Namespace: p.Name.Namespace, Name: p.Name.Local}
		if err := h.Props.SetProp(path, key, p.Value); err != nil {
			fail = append(fail, davxml.PropValue{Name: p.Name})
			continue
		}
		ok200 = append(ok200, davxml.PropValue{Name: p.Name})
	}
	for _, name := range update.Remove {
		key := property.Key{Namespace: name.Namespace, Name: name.Local}
		if err := h.Props.DelProp(path, key); err != nil {
			fail = append(fail, davxml.PropValue{Name: name})
			continue
		}
		ok200 = append(ok200, davxml.PropValue{Name: name})
	}

	var propstats []davxml.Propstat
	if len(ok200) > 0 {
		propstats = append(propstats, davxml.Propstat{Props: ok200, Status: statusLine(proto, http.StatusOK, "OK")})
	}
	if len(fail) > 0 {
		propstats = append(propstats, davxml.Propstat{Props: fail, Status: statusLine(proto, http.StatusForbidden, "Forbidden")})
	}

	body, err := davxml.EncodeMultistatus([]davxml.Response{{Href: c.Request.URL.Path, Propstats: propstats}})
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(207, "application/xml; charset=utf-8", body)
}

func parseTimeoutHeader(c *gin.Context) time.Duration {
	raw := c.Request.Header.Get("Timeout")
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "Infinite" {
			return 0
		}
		if strings.HasPrefix(part, "Second-") {
			if n, err := strconv.Atoi(strings.TrimPrefix(part, "Second-")); err == nil {
				return time.Duration(n) * time.Second
			}
		}
	}
	return 0
}

func depthForLock(c *gin.Context) lock.Depth {
	if c.Request.Header.Get("Depth") == "infinity" {
		return lock.DepthInfinity
	}
	return lock.DepthZero
}

func lockDepthString(d lock.Depth) string {
	if d == lock.DepthInfinity {
		return "infinity"
	}
	return "0"
}

// Lock acquires or refreshes an advisory lock, rendering a
// prop/lockdiscovery/activelock document via the lock manager.
func (h *Handler) Lock(c *gin.Context) {
	m, rel, ok := h.resolveMount(c)
	if !ok {
		return
	}
	// The resource need not exist yet: LOCK may create an empty file,
	// per RFC 4918 §7.3's "lock-null resource" allowance.
	_, resolveErr := mount.ResolveStrict(m, rel)

	uri := requestURI(c)
	info, err := davxml.ParseLockInfo(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	timeout := parseTimeoutHeader(c)
	ctx := c.Request.Context()

	var l lock.Lock
	status := http.StatusOK
	if info.Refresh {
		token := lockTokenFromHeader(c)
		l, err = h.Locks.Refresh(ctx, uri, token, timeout)
		if err != nil {
			c.Status(http.StatusPreconditionFailed)
			return
		}
	} else {
		created := false
		if resolveErr != nil {
			path, perr := mount.ResolveParent(m, rel)
			if perr != nil {
				c.Status(http.StatusConflict)
				return
			}
			f, ferr := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
			if ferr != nil {
				c.Status(http.StatusForbidden)
				return
			}
			f.Close()
			created = true
		}
		l, err = h.Locks.Acquire(ctx, uri, info.OwnerXML, depthForLock(c), timeout)
		if err != nil {
			c.Status(http.StatusLocked)
			return
		}
		if created {
			status = http.StatusCreated
		}
	}

	active := davxml.ActiveLock{
		Depth:    lockDepthString(l.Depth),
		OwnerXML: l.OwnerXML,
		TimeoutS: l.RemainingSeconds(time.Now()),
		Token:    l.Token,
		LockRoot: uri,
	}
	c.Header("Lock-Token", "<"+l.Token+">")
	c.Status(status)
	davxml.WriteLockDiscovery(c.Writer, active)
}

func lockTokenFromHeader(c *gin.Context) string {
	raw := c.Request.Header.Get("If")
	raw = strings.TrimPrefix(strings.TrimSuffix(raw, ")"), "(")
	raw = strings.TrimPrefix(raw, "<")
	raw = strings.TrimSuffix(raw, ">")
	return raw
}

// Unlock releases a lock identified by the Lock-Token header: 204 on
// success, 409 if the token is unknown or mismatched.
func (h *Handler) Unlock(c *gin.Context) {
	token := strings.TrimSuffix(strings.TrimPrefix(c.Request.Header.Get("Lock-Token"), "<"), ">")
	if token == "" {
		c.Status(http.StatusConflict)
		return
	}

	uri := requestURI(c)
	if err := h.Locks.Release(c.Request.Context(), uri, token); err != nil {
		c.Status(http.StatusConflict)
		return
	}
	c.Status(http.StatusNoContent)
}
