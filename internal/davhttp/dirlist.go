package davhttp

import (
	"fmt"
	"html"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// DirlistOptions configures the automatic HTML directory listing GET
// renders for a collection: optional stylesheet and script links, the
// CSS class applied to directory entries, and an optional wrapping div id.
type DirlistOptions struct {
	CSS            []string
	JavaScript     []string
	ClassDirectory string
	Div            string
}

// renderDirlist builds the HTML page served for a GET on a collection: a
// title, optional stylesheet/script links, and a <ul> of entries with
// ".." first, dotfiles hidden, and version-aware ordering. go-humanize
// renders human-readable byte sizes.
func renderDirlist(title string, entries []os.FileInfo, opts DirlistOptions) string {
	var b strings.Builder
	b.WriteString("<html><head><title>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title>")

	for _, href := range opts.CSS {
		fmt.Fprintf(&b, `<link rel="stylesheet" href="%s" type="text/css">`, html.EscapeString(href))
	}
	for _, src := range opts.JavaScript {
		fmt.Fprintf(&b, `<script src="%s"></script>`, html.EscapeString(src))
	}

	b.WriteString("</head><body>")
	if opts.Div != "" {
		fmt.Fprintf(&b, `<div id="%s">`, html.EscapeString(opts.Div))
	} else {
		b.WriteString("<div>")
	}
	b.WriteString("<ul>")

	writeItem(&b, opts.ClassDirectory, "..", true, 0)

	sorted := sortedVisibleEntries(entries)
	for _, fi := range sorted {
		writeItem(&b, opts.ClassDirectory, fi.Name(), fi.IsDir(), fi.Size())
	}

	b.WriteString("</ul></div></body></html>")
	return b.String()
}

func writeItem(b *strings.Builder, classDirectory, name string, isDir bool, size int64) {
	escaped := html.EscapeString(name)
	if isDir {
		class := "directory"
		if classDirectory != "" {
			class = classDirectory
		}
		fmt.Fprintf(b, `<li class="%s"><a href="%s/">%s/</a></li>`, html.EscapeString(class), escaped, escaped)
		return
	}
	fmt.Fprintf(b, `<li><a href="%s">%s (%s)</a></li>`, escaped, escaped, humanize.Bytes(uint64(size)))
}

// sortedVisibleEntries drops dotfiles and sorts the remainder the way
// Linux's versionsort does, giving embedded numeric runs their natural
// order instead of a plain lexicographic one.
func sortedVisibleEntries(entries []os.FileInfo) []os.FileInfo {
	visible := make([]os.FileInfo, 0, len(entries))
	for _, fi := range entries {
		if strings.HasPrefix(fi.Name(), ".") {
			continue
		}
		visible = append(visible, fi)
	}
	sort.Slice(visible, func(i, j int) bool {
		return versionLess(visible[i].Name(), visible[j].Name())
	})
	return visible
}

// versionLess compares names the way GNU versionsort does: runs of
// digits compare numerically, everything else compares byte-wise.
func versionLess(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			starta, startb := i, j
			for i < len(a) && isDigit(a[i]) {
				i++
			}
			for j < len(b) && isDigit(b[j]) {
				j++
			}
			na, nb := strings.TrimLeft(a[starta:i], "0"), strings.TrimLeft(b[startb:j], "0")
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			continue
		}
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	return len(a)-i < len(b)-j
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
