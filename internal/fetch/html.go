package fetch

import (
	"bytes"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxHTMLSniff  = 64 * 1024
	maxTitleRunes = 120
)

// describeHTML names an HTML page by its title, e.g. a login or error page
// served where a capabilities document was expected.
func describeHTML(r io.Reader) string {
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(r, maxHTMLSniff))
	if err != nil {
		return ""
	}

	title := strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	if title == "" {
		title = strings.Join(strings.Fields(doc.Find("h1").First().Text()), " ")
	}
	if title == "" {
		return "HTML page"
	}
	if r := []rune(title); len(r) > maxTitleRunes {
		title = string(r[:maxTitleRunes])
	}
	return `HTML page "` + title + `"`
}

// LooksLikeHTML reports whether body starts like an HTML document.
func LooksLikeHTML(body []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(body))
	if !bytes.HasPrefix(head, []byte("<")) {
		return false
	}
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.Contains(head, []byte("<html"))
}

// DescribeHTML is describeHTML for an already read body.
func DescribeHTML(body []byte) string {
	return describeHTML(bytes.NewReader(body))
}
